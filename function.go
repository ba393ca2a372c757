package zaffi

import (
    "fmt"
    "sync"
    "sync/atomic"
)

// FunctionHandle is a callable bound either to a library symbol or to a Go
// callable. The metadata fields are independent; each has its own lock and
// a call reads them one at a time.
type FunctionHandle struct {
    // symbol-bound identity
    registry *Registry
    lib      LibraryKey
    symbol   string
    useErrno bool

    // callback-bound identity
    callback Callable

    conv CallingConvention

    argMu       sync.RWMutex
    argtypes    []Value
    constrained bool

    resMu   sync.RWMutex
    restype Value

    checkMu  sync.RWMutex
    errcheck Callable

    nameMu sync.RWMutex
    name   string

    errno atomic.Int64
}

func newSymbolFunction(reg *Registry, key LibraryKey, symbol string, conv CallingConvention, useErrno bool) *FunctionHandle {
    return &FunctionHandle{
        registry: reg,
        lib:      key,
        symbol:   symbol,
        conv:     conv,
        useErrno: useErrno,
        name:     symbol,
    }
}

// NewCallbackFunction wraps fn for later use as a native callback.
func NewCallbackFunction(fn Value) (*FunctionHandle, error) {
    c, ok := fn.(Callable)
    if !ok {
        return nil, &NotCallableError{Role: "callback target", Kind: kindOf(fn)}
    }
    return &FunctionHandle{callback: c, conv: ConvDefault, name: "callback"}, nil
}

// IsCallback reports whether h wraps a Go callable rather than a symbol.
func (h *FunctionHandle) IsCallback() bool { return h.callback != nil }

// Library returns the owning library key, empty for callbacks.
func (h *FunctionHandle) Library() LibraryKey { return h.lib }

// Symbol returns the bound symbol name, empty for callbacks.
func (h *FunctionHandle) Symbol() string { return h.symbol }

// Convention returns the calling convention assigned at construction.
func (h *FunctionHandle) Convention() CallingConvention { return h.conv }

// ConventionName is the canonical convention name.
func (h *FunctionHandle) ConventionName() string { return h.conv.String() }

// ArgTypes returns the declared argument types, or nil when unconstrained.
func (h *FunctionHandle) ArgTypes() Tuple {
    h.argMu.RLock()
    defer h.argMu.RUnlock()
    if !h.constrained {
        return nil
    }
    return append(Tuple{}, h.argtypes...)
}

// SetArgTypes declares the argument types. nil clears the declaration;
// otherwise types must be a Tuple or []Value of type descriptors, which are
// resolved when the function is called.
func (h *FunctionHandle) SetArgTypes(types Value) error {
    var list []Value
    switch x := types.(type) {
    case nil:
        h.argMu.Lock()
        h.argtypes, h.constrained = nil, false
        h.argMu.Unlock()
        return nil
    case Tuple:
        list = x
    case []Value:
        list = x
    default:
        return &UnsupportedTypeError{Descriptor: describe(types), Role: "argtypes"}
    }
    h.argMu.Lock()
    h.argtypes = append([]Value{}, list...)
    h.constrained = true
    h.argMu.Unlock()
    return nil
}

// ReturnType returns the return specification source.
func (h *FunctionHandle) ReturnType() Value {
    h.resMu.RLock()
    defer h.resMu.RUnlock()
    return h.restype
}

// SetReturnType accepts nil, a type descriptor or a callable.
func (h *FunctionHandle) SetReturnType(v Value) error {
    switch v.(type) {
    case nil, NativeTypeDescriptor, Callable:
    default:
        return &InvalidReturnSpecError{Kind: kindOf(v)}
    }
    h.resMu.Lock()
    h.restype = v
    h.resMu.Unlock()
    return nil
}

// ErrCheck returns the error-check hook, nil when unset.
func (h *FunctionHandle) ErrCheck() Callable {
    h.checkMu.RLock()
    defer h.checkMu.RUnlock()
    return h.errcheck
}

// SetErrCheck sets the error-check hook; nil clears it.
func (h *FunctionHandle) SetErrCheck(v Value) error {
    var c Callable
    if v != nil {
        var ok bool
        if c, ok = v.(Callable); !ok {
            return &NotCallableError{Role: "errcheck", Kind: kindOf(v)}
        }
    }
    h.checkMu.Lock()
    h.errcheck = c
    h.checkMu.Unlock()
    return nil
}

// Name returns the display name.
func (h *FunctionHandle) Name() string {
    h.nameMu.RLock()
    defer h.nameMu.RUnlock()
    return h.name
}

// SetName replaces the display name.
func (h *FunctionHandle) SetName(name string) {
    h.nameMu.Lock()
    h.name = name
    h.nameMu.Unlock()
}

// LastErrno returns the errno captured by the most recent call when the
// owning library was opened with UseErrno.
func (h *FunctionHandle) LastErrno() int {
    return int(h.errno.Load())
}

func (h *FunctionHandle) signature() Signature {
    h.argMu.RLock()
    sig := Signature{ArgTypes: h.argtypes, Constrained: h.constrained}
    h.argMu.RUnlock()

    h.resMu.RLock()
    sig.ResType = h.restype
    h.resMu.RUnlock()

    sig.Conv = h.conv
    sig.UseErrno = h.useErrno
    return sig
}

// Call invokes the function. A fresh descriptor is built from the metadata
// as it stands now; the error-check hook, when set, receives the raw result,
// the handle and the arguments, and its output is the final result.
func (h *FunctionHandle) Call(args ...Value) (Value, error) {
    if h.callback != nil {
        return nil, &UnimplementedError{Feature: "calling a callback-bound function"}
    }

    ref, err := h.registry.Resolve(h.lib)
    if err != nil {
        return nil, err
    }
    d, err := BuildDescriptor(ref, h.symbol, h.signature())
    if err != nil {
        return nil, err
    }
    raw, err := d.Invoke(args...)
    if err != nil {
        return nil, err
    }
    if h.useErrno {
        h.errno.Store(int64(d.Errno()))
    }

    if check := h.ErrCheck(); check != nil {
        return check.Call(raw, h, append(Tuple{}, args...))
    }
    return raw, nil
}

func (h *FunctionHandle) String() string {
    if h.callback != nil {
        return fmt.Sprintf("<FunctionHandle %s>", h.Name())
    }
    return fmt.Sprintf("<FunctionHandle %s in %s>", h.Name(), h.lib)
}
