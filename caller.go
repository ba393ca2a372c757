package zaffi

import "fmt"

// caller performs native calls for one backend.
type caller interface {
    Name() string
    Call(fn uintptr, sig CallSignature, args []NativeArg) (NativeResult, error)
}

// platform joins the library loader with a call backend.
type platform struct {
    loader
    caller
}

// platformNative builds the Native used by DefaultRegistry.
func platformNative(cfg Config) (Native, error) {
    c, err := selectCaller(cfg.Backend)
    if err != nil {
        return nil, err
    }
    logDebug(map[string]any{"backend": c.Name()}, "call backend selected")
    return &platform{loader: newLoader(cfg.DlopenMode), caller: c}, nil
}

// NewNative returns the platform loader paired with the named backend.
func NewNative(backend string, mode LoadMode) (Native, error) {
    return platformNative(Config{Backend: backend, DlopenMode: mode})
}

func selectCaller(backend string) (caller, error) {
    switch backend {
    case "", BackendAuto:
        if initLibFFI() {
            return newLibffiCaller()
        }
        return newPuregoCaller()
    case BackendLibffi:
        return newLibffiCaller()
    case BackendPurego:
        return newPuregoCaller()
    }
    return nil, fmt.Errorf("unknown call backend '%s'", backend)
}

// loader opens libraries and resolves symbols for one platform.
type loader interface {
    Open(path string, mode LoadMode) (uintptr, error)
    Symbol(lib uintptr, name string) (uintptr, error)
}
