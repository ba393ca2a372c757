package zaffi

import (
    "fmt"
)

// ReturnKind classifies how a native result is handed back.
type ReturnKind int

const (
    ReturnVoid ReturnKind = iota
    ReturnTyped
    ReturnTransformed
)

func (k ReturnKind) String() string {
    switch k {
    case ReturnTyped:
        return "typed"
    case ReturnTransformed:
        return "transformed"
    }
    return "void"
}

// ReturnSpec describes the return of a call. Transformed returns are read as
// int32 and piped through Transform.
type ReturnSpec struct {
    Kind      ReturnKind
    Type      NativeType
    Transform Callable
}

// nativeRet is the native return type the call interface is built with.
func (rs ReturnSpec) nativeRet() NativeType {
    switch rs.Kind {
    case ReturnTyped:
        return rs.Type
    case ReturnTransformed:
        return TInt32
    }
    return TInvalid
}

// ClassifyReturn turns a restype value into a ReturnSpec. A type descriptor
// wins over callability.
func ClassifyReturn(src Value) (ReturnSpec, error) {
    if src == nil {
        return ReturnSpec{Kind: ReturnVoid}, nil
    }
    if _, ok := src.(NativeTypeDescriptor); ok {
        t, err := ResolveDescriptor(src, "return")
        if err != nil {
            return ReturnSpec{}, err
        }
        return ReturnSpec{Kind: ReturnTyped, Type: t}, nil
    }
    if c, ok := src.(Callable); ok {
        return ReturnSpec{Kind: ReturnTransformed, Transform: c}, nil
    }
    return ReturnSpec{}, &InvalidReturnSpecError{Kind: kindOf(src)}
}

// Signature is the call metadata a descriptor is built from.
type Signature struct {
    ArgTypes    []Value // used when Constrained
    Constrained bool
    ResType     Value
    Conv        CallingConvention
    UseErrno    bool
}

// CallDescriptor is a call interface built for a single invocation.
type CallDescriptor struct {
    lib         *LibraryRef
    name        string
    addr        uintptr
    args        []NativeType
    constrained bool
    ret         ReturnSpec
    conv        CallingConvention
    useErrno    bool
    errno       int
}

// BuildDescriptor resolves the symbol, the return specification and the
// argument types, in that order.
func BuildDescriptor(lib *LibraryRef, name string, sig Signature) (*CallDescriptor, error) {
    addr, err := lib.Symbol(name)
    if err != nil {
        return nil, err
    }

    ret, err := ClassifyReturn(sig.ResType)
    if err != nil {
        return nil, err
    }

    d := &CallDescriptor{
        lib:         lib,
        name:        name,
        addr:        addr,
        constrained: sig.Constrained,
        ret:         ret,
        conv:        sig.Conv,
        useErrno:    sig.UseErrno,
    }
    if sig.Constrained {
        d.args = make([]NativeType, len(sig.ArgTypes))
        for i, at := range sig.ArgTypes {
            t, err := ResolveDescriptor(at, fmt.Sprintf("argument %d", i+1))
            if err != nil {
                return nil, err
            }
            d.args[i] = t
        }
    }

    logDebug(map[string]any{"symbol": name, "library": string(lib.Key), "convention": sig.Conv.String(),
        "return": ret.Kind.String()}, "call descriptor built")
    return d, nil
}

// Return reports the classified return specification.
func (d *CallDescriptor) Return() ReturnSpec { return d.ret }

// ArgTypes reports the declared argument types, nil when unconstrained.
func (d *CallDescriptor) ArgTypes() []NativeType {
    if !d.constrained {
        return nil
    }
    return append([]NativeType(nil), d.args...)
}

// Errno is the errno captured by the last Invoke when errno capture is on.
func (d *CallDescriptor) Errno() int { return d.errno }

// Invoke marshals args, performs the native call and decodes the result.
func (d *CallDescriptor) Invoke(args ...Value) (Value, error) {
    if d.constrained && len(args) != len(d.args) {
        return nil, &ArgumentCountError{Expected: len(d.args), Actual: len(args)}
    }

    nargs := make([]NativeArg, len(args))
    types := make([]NativeType, len(args))
    for i, v := range args {
        declared := TInvalid
        if d.constrained {
            declared = d.args[i]
        }
        a, err := marshalArg(i+1, declared, v)
        if err != nil {
            return nil, err
        }
        nargs[i] = a
        types[i] = a.Type
    }

    cs := CallSignature{Args: types, Ret: d.ret.nativeRet(), Conv: d.conv, UseErrno: d.useErrno}
    res, err := d.lib.native.Call(d.addr, cs, nargs)
    if err != nil {
        return nil, fmt.Errorf("calling '%s': %w", d.name, err)
    }
    writeBack(nargs)
    d.errno = res.Errno

    logDebug(map[string]any{"symbol": d.name, "args": len(args)}, "native call returned")
    return decodeResult(d.ret, res)
}
