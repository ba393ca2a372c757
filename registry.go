package zaffi

import (
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"

    "github.com/puzpuzpuz/xsync"
)

// LibraryKey is the canonical path a library is registered under.
type LibraryKey string

// CallSignature is the native shape of one call.
type CallSignature struct {
    Args     []NativeType
    Ret      NativeType // TInvalid for void
    Conv     CallingConvention
    UseErrno bool
}

// Native is the platform service behind the registry: library loading, symbol
// lookup and the call itself.
type Native interface {
    Open(path string, mode LoadMode) (uintptr, error)
    Symbol(lib uintptr, name string) (uintptr, error)
    Call(fn uintptr, sig CallSignature, args []NativeArg) (NativeResult, error)
}

// LibraryRef is a registry entry. It is only handed out by Registry.Resolve.
type LibraryRef struct {
    Key    LibraryKey
    handle uintptr
    native Native
}

// Symbol resolves name in the library.
func (r *LibraryRef) Symbol(name string) (uintptr, error) {
    addr, err := r.native.Symbol(r.handle, name)
    if err != nil {
        return 0, &SymbolNotFoundError{Name: name, Library: string(r.Key), Diagnostic: err.Error()}
    }
    if addr == 0 {
        return 0, &SymbolNotFoundError{Name: name, Library: string(r.Key)}
    }
    return addr, nil
}

// Registry caches opened native libraries by canonical path. Entries are
// never removed.
type Registry struct {
    mu     xsync.RBMutex
    native Native
    libs   map[LibraryKey]*LibraryRef
    loads  map[LibraryKey]int
    total  int
}

// NewRegistry creates an empty registry over native.
func NewRegistry(native Native) *Registry {
    return &Registry{
        native: native,
        libs:   make(map[LibraryKey]*LibraryRef),
        loads:  make(map[LibraryKey]int),
    }
}

var (
    defaultRegistry     *Registry
    defaultRegistryErr  error
    defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process-wide registry, built on first use from
// LoadConfig with the platform loader and the configured call backend. Log
// settings are only touched when a ZAFFI_LOG_* variable is set, so earlier
// SetLogLevel or SetLogJSON calls survive the first open.
func DefaultRegistry() (*Registry, error) {
    defaultRegistryOnce.Do(func() {
        cfg, err := LoadConfig()
        if err != nil {
            defaultRegistryErr = err
            return
        }
        if logEnvSet(os.Getenv) {
            if err := cfg.Apply(); err != nil {
                defaultRegistryErr = err
                return
            }
        }
        n, err := platformNative(cfg)
        if err != nil {
            defaultRegistryErr = err
            return
        }
        defaultRegistry = NewRegistry(n)
    })
    return defaultRegistry, defaultRegistryErr
}

// Open registers path, loading it natively if no entry exists yet. The write
// lock is held across the lookup and the insert so one path is loaded once.
func (r *Registry) Open(path string, mode LoadMode) (LibraryKey, error) {
    key := Canonicalize(path)

    r.mu.Lock()
    defer r.mu.Unlock()

    if _, ok := r.libs[key]; ok {
        return key, nil
    }

    h, err := r.native.Open(string(key), mode)
    if err != nil {
        logError(map[string]any{"path": path}, "library load failed: %v", err)
        return "", &LoadError{Path: path, Diagnostic: err.Error()}
    }

    r.libs[key] = &LibraryRef{Key: key, handle: h, native: r.native}
    r.loads[key]++
    r.total++
    logInfo(map[string]any{"path": string(key), "mode": mode.String()}, "library loaded")
    return key, nil
}

// Resolve returns the entry for key.
func (r *Registry) Resolve(key LibraryKey) (*LibraryRef, error) {
    tk := r.mu.RLock()
    ref, ok := r.libs[key]
    r.mu.RUnlock(tk)
    if !ok {
        return nil, &LibraryNotFoundError{Key: key}
    }
    return ref, nil
}

// Loads returns the number of native loads performed.
func (r *Registry) Loads() int {
    tk := r.mu.RLock()
    defer r.mu.RUnlock(tk)
    return r.total
}

// LoadsOf returns the number of native loads performed for key.
func (r *Registry) LoadsOf(key LibraryKey) int {
    tk := r.mu.RLock()
    defer r.mu.RUnlock(tk)
    return r.loads[key]
}

// Keys lists the registered libraries in sorted order.
func (r *Registry) Keys() []LibraryKey {
    tk := r.mu.RLock()
    out := make([]LibraryKey, 0, len(r.libs))
    for k := range r.libs {
        out = append(out, k)
    }
    r.mu.RUnlock(tk)
    sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
    return out
}

// Canonicalize maps a library path to its registry key. Paths with a
// directory part become absolute and symlink free when they exist; bare
// names are kept so the platform search rules still apply. A bare name and
// the absolute path it resolves to are therefore different keys, and opening
// both loads the library twice through the native loader (which dlopen
// reference counts to one mapping).
func Canonicalize(path string) LibraryKey {
    if !strings.ContainsAny(path, `/\`) {
        return LibraryKey(path)
    }
    abs, err := filepath.Abs(path)
    if err != nil {
        return LibraryKey(filepath.Clean(path))
    }
    if _, err := os.Stat(abs); err == nil {
        if real, err := filepath.EvalSymlinks(abs); err == nil {
            abs = real
        }
    }
    return LibraryKey(abs)
}
