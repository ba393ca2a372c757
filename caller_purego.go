//go:build (darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64) && !android

package zaffi

import (
    "fmt"
    "math"
    "reflect"
    "runtime"
    "unsafe"

    "github.com/ebitengine/purego"
)

// purego passes at most this many arguments.
const maxPuregoArgs = 15

type puregoCaller struct{}

func newPuregoCaller() (caller, error) {
    return puregoCaller{}, nil
}

func (puregoCaller) Name() string { return BackendPurego }

// Call builds a Go function type matching sig, binds it to fn with
// purego.RegisterFunc and invokes it. The calling convention is fixed by the
// platform; purego has no stdcall distinction on the architectures it serves.
func (puregoCaller) Call(fn uintptr, sig CallSignature, args []NativeArg) (res NativeResult, err error) {
    if len(args) != len(sig.Args) {
        return res, fmt.Errorf("purego: %d argument types for %d arguments", len(sig.Args), len(args))
    }
    if len(args) > maxPuregoArgs {
        return res, fmt.Errorf("purego backend supports at most %d arguments, got %d", maxPuregoArgs, len(args))
    }

    var pin runtime.Pinner
    defer pin.Unpin()

    in := make([]reflect.Type, len(args))
    vals := make([]reflect.Value, len(args))
    for i, a := range args {
        t := sig.Args[i]
        bits := a.Bits
        if len(a.Buf) > 0 {
            pin.Pin(&a.Buf[0])
            bits = uint64(uintptr(unsafe.Pointer(&a.Buf[0])))
        }
        in[i] = goTypeOf(t)
        vals[i] = goValueOf(t, bits)
    }
    var out []reflect.Type
    if sig.Ret != TInvalid {
        out = []reflect.Type{goTypeOf(sig.Ret)}
    }

    fptr := reflect.New(reflect.FuncOf(in, out, false))
    defer func() {
        if r := recover(); r != nil {
            err = fmt.Errorf("purego: %v", r)
        }
    }()
    purego.RegisterFunc(fptr.Interface(), fn)

    if sig.UseErrno {
        runtime.LockOSThread()
        defer runtime.UnlockOSThread()
        clearErrno()
    }
    results := fptr.Elem().Call(vals)
    if sig.UseErrno {
        res.Errno = readErrno()
    }
    runtime.KeepAlive(args)

    if len(results) == 0 {
        return res, nil
    }
    rv := results[0]
    switch rv.Kind() {
    case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
        res.Bits = uint64(rv.Int())
    case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
        res.Bits = rv.Uint()
    case reflect.Float32:
        res.Bits = uint64(math.Float32bits(float32(rv.Float())))
    case reflect.Float64:
        res.Bits = math.Float64bits(rv.Float())
    case reflect.Bool:
        if rv.Bool() {
            res.Bits = 1
        }
    }
    if sig.Ret == TCharP && res.Bits != 0 {
        res.Str = cBytes(uintptr(res.Bits))
    }
    return res, nil
}

func goTypeOf(t NativeType) reflect.Type {
    switch t {
    case TInt8:
        return reflect.TypeOf(int8(0))
    case TUInt8:
        return reflect.TypeOf(uint8(0))
    case TInt16:
        return reflect.TypeOf(int16(0))
    case TUInt16:
        return reflect.TypeOf(uint16(0))
    case TInt32:
        return reflect.TypeOf(int32(0))
    case TUInt32:
        return reflect.TypeOf(uint32(0))
    case TInt64:
        return reflect.TypeOf(int64(0))
    case TUInt64:
        return reflect.TypeOf(uint64(0))
    case TFloat32:
        return reflect.TypeOf(float32(0))
    case TFloat64:
        return reflect.TypeOf(float64(0))
    case TBool:
        return reflect.TypeOf(false)
    }
    return reflect.TypeOf(uintptr(0))
}

func goValueOf(t NativeType, bits uint64) reflect.Value {
    switch t {
    case TInt8:
        return reflect.ValueOf(int8(bits))
    case TUInt8:
        return reflect.ValueOf(uint8(bits))
    case TInt16:
        return reflect.ValueOf(int16(bits))
    case TUInt16:
        return reflect.ValueOf(uint16(bits))
    case TInt32:
        return reflect.ValueOf(int32(bits))
    case TUInt32:
        return reflect.ValueOf(uint32(bits))
    case TInt64:
        return reflect.ValueOf(int64(bits))
    case TUInt64:
        return reflect.ValueOf(bits)
    case TFloat32:
        return reflect.ValueOf(math.Float32frombits(uint32(bits)))
    case TFloat64:
        return reflect.ValueOf(math.Float64frombits(bits))
    case TBool:
        return reflect.ValueOf(bits != 0)
    }
    return reflect.ValueOf(uintptr(bits))
}

// cBytes copies a NUL terminated C string.
func cBytes(p uintptr) []byte {
    base := unsafe.Pointer(p)
    n := 0
    for *(*byte)(unsafe.Add(base, n)) != 0 {
        n++
    }
    return append([]byte{}, unsafe.Slice((*byte)(base), n)...)
}
