package zaffi

import (
    "fmt"
    "sync"
    "time"
)

// fakeFunc stands in for a native function.
type fakeFunc func(sig CallSignature, args []NativeArg) NativeResult

type fakeCall struct {
    Symbol string
    Sig    CallSignature
    Args   []NativeArg
}

// fakeNative implements Native without touching the platform loader.
type fakeNative struct {
    mu       sync.Mutex
    attempts map[string]int
    missing  map[string]bool // paths which fail to open
    funcs    map[string]fakeFunc
    addrs    []string
    calls    []fakeCall
    delay    time.Duration
}

func newFakeNative() *fakeNative {
    return &fakeNative{
        attempts: make(map[string]int),
        missing:  make(map[string]bool),
        funcs:    make(map[string]fakeFunc),
    }
}

func (f *fakeNative) define(name string, fn fakeFunc) {
    f.mu.Lock()
    f.funcs[name] = fn
    f.mu.Unlock()
}

// returns defines name as a function returning fixed bits.
func (f *fakeNative) returns(name string, bits uint64) {
    f.define(name, func(CallSignature, []NativeArg) NativeResult { return NativeResult{Bits: bits} })
}

func (f *fakeNative) Open(path string, mode LoadMode) (uintptr, error) {
    if f.delay > 0 {
        time.Sleep(f.delay)
    }
    f.mu.Lock()
    defer f.mu.Unlock()
    f.attempts[path]++
    if f.missing[path] {
        return 0, fmt.Errorf("%s: cannot open shared object file: No such file or directory", path)
    }
    return uintptr(len(f.attempts)), nil
}

func (f *fakeNative) Symbol(lib uintptr, name string) (uintptr, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if _, ok := f.funcs[name]; !ok {
        return 0, fmt.Errorf("undefined symbol: %s", name)
    }
    f.addrs = append(f.addrs, name)
    return uintptr(len(f.addrs)), nil
}

func (f *fakeNative) Call(fn uintptr, sig CallSignature, args []NativeArg) (NativeResult, error) {
    f.mu.Lock()
    if fn == 0 || int(fn) > len(f.addrs) {
        f.mu.Unlock()
        return NativeResult{}, fmt.Errorf("bad address %#x", fn)
    }
    name := f.addrs[fn-1]
    impl := f.funcs[name]
    f.calls = append(f.calls, fakeCall{Symbol: name, Sig: sig, Args: args})
    f.mu.Unlock()
    return impl(sig, args), nil
}

func (f *fakeNative) lastCall() fakeCall {
    f.mu.Lock()
    defer f.mu.Unlock()
    if len(f.calls) == 0 {
        return fakeCall{}
    }
    return f.calls[len(f.calls)-1]
}

func (f *fakeNative) attemptsFor(path string) int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.attempts[path]
}
