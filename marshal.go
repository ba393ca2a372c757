package zaffi

import (
    "fmt"
    "math"
)

// NativeArg is one marshaled argument handed to a Native backend.
//
// Scalars travel in Bits, masked to the native width. Byte strings and arrays
// travel in Buf; the backend passes the address of Buf (or NULL when Buf is nil)
// and leaves any native writes in Buf for the caller to copy back.
type NativeArg struct {
    Type NativeType
    Bits uint64
    Buf  []byte

    array *Array
}

// NativeResult is the raw outcome of a native call.
type NativeResult struct {
    Bits  uint64
    Str   []byte // copy of the returned C string for char* returns, nil for NULL
    Errno int
}

func widthMask(t NativeType) uint64 {
    switch t.Size() {
    case 1:
        return 0xff
    case 2:
        return 0xffff
    case 4:
        return 0xffffffff
    }
    return math.MaxUint64
}

// encodeScalar converts a managed value to the bit pattern of native type t.
func encodeScalar(t NativeType, v Value) (uint64, error) {
    if s, ok := v.(*Simple); ok {
        if s.native == TCharP {
            return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
        }
        bits, _ := s.snapshot()
        v = decodeScalar(s.native, bits)
    }

    switch t {
    case TFloat32:
        f, ok := asFloat(v)
        if !ok {
            return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
        }
        return uint64(math.Float32bits(float32(f))), nil
    case TFloat64:
        f, ok := asFloat(v)
        if !ok {
            return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
        }
        return math.Float64bits(f), nil
    case TBool:
        switch x := v.(type) {
        case bool:
            if x {
                return 1, nil
            }
            return 0, nil
        }
        if u, ok := asBits(v); ok {
            if u != 0 {
                return 1, nil
            }
            return 0, nil
        }
        return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
    case TPointer, TCharP:
        switch x := v.(type) {
        case nil:
            return 0, nil
        case uintptr:
            return uint64(x), nil
        }
        if u, ok := asBits(v); ok {
            return u & widthMask(t), nil
        }
        return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
    }

    if !t.IsInteger() {
        return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
    }
    if b, ok := v.(bool); ok {
        if b {
            return 1, nil
        }
        return 0, nil
    }
    u, ok := asBits(v)
    if !ok {
        return 0, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
    }
    return u & widthMask(t), nil
}

// decodeScalar is the inverse of encodeScalar for scalar types.
func decodeScalar(t NativeType, bits uint64) Value {
    switch t {
    case TInt8:
        return int64(int8(bits))
    case TInt16:
        return int64(int16(bits))
    case TInt32:
        return int64(int32(bits))
    case TInt64:
        return int64(bits)
    case TUInt8:
        return uint64(uint8(bits))
    case TUInt16:
        return uint64(uint16(bits))
    case TUInt32:
        return uint64(uint32(bits))
    case TUInt64:
        return bits
    case TFloat32:
        return float64(math.Float32frombits(uint32(bits)))
    case TFloat64:
        return math.Float64frombits(bits)
    case TBool:
        return uint8(bits) != 0
    case TPointer, TCharP:
        if bits == 0 {
            return nil
        }
        return uintptr(bits)
    }
    return nil
}

// asBits returns the two's complement bit pattern of an integer value.
func asBits(v Value) (uint64, bool) {
    switch x := v.(type) {
    case int:
        return uint64(x), true
    case int8:
        return uint64(x), true
    case int16:
        return uint64(x), true
    case int32:
        return uint64(x), true
    case int64:
        return uint64(x), true
    case uint:
        return uint64(x), true
    case uint8:
        return uint64(x), true
    case uint16:
        return uint64(x), true
    case uint32:
        return uint64(x), true
    case uint64:
        return x, true
    case uintptr:
        return uint64(x), true
    }
    return 0, false
}

func asFloat(v Value) (float64, bool) {
    switch x := v.(type) {
    case float64:
        return x, true
    case float32:
        return float64(x), true
    case uint, uint8, uint16, uint32, uint64, uintptr:
        u, _ := asBits(v)
        return float64(u), true
    }
    if u, ok := asBits(v); ok {
        return float64(int64(u)), true
    }
    return 0, false
}

func byteStringOf(v Value) []byte {
    switch x := v.(type) {
    case []byte:
        return append([]byte(nil), x...)
    case string:
        return []byte(x)
    }
    return nil
}

// cstring returns b with a terminating NUL.
func cstring(b []byte) []byte {
    out := make([]byte, len(b)+1)
    copy(out, b)
    return out
}

// inferType picks a native type for a value passed without declared argtypes.
func inferType(v Value) (NativeType, bool) {
    switch x := v.(type) {
    case *Simple:
        return x.native, true
    case *Array:
        return TPointer, true
    case nil, uintptr:
        return TPointer, true
    case []byte, string:
        return TCharP, true
    case float32, float64:
        return TFloat64, true
    case bool:
        return TInt32, true
    case uint64, uint:
        u, _ := asBits(v)
        if u > math.MaxInt32 {
            return TInt64, true
        }
        return TInt32, true
    }
    if u, ok := asBits(v); ok {
        n := int64(u)
        if n < math.MinInt32 || n > math.MaxInt32 {
            return TInt64, true
        }
        return TInt32, true
    }
    return TInvalid, false
}

// marshalArg converts argument pos (1-based) to its native form. declared is
// TInvalid when the handle has no argtypes.
func marshalArg(pos int, declared NativeType, v Value) (NativeArg, error) {
    t := declared
    if t == TInvalid {
        var ok bool
        if t, ok = inferType(v); !ok {
            return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v)}
        }
    }
    arg := NativeArg{Type: t}

    switch x := v.(type) {
    case *Array:
        if !t.IsPointerLike() {
            return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
        }
        if x.n > 0 {
            arg.Buf = x.Bytes()
            arg.array = x
        }
        return arg, nil

    case *Simple:
        if x.native == TCharP {
            if !t.IsPointerLike() {
                return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
            }
            if _, s := x.snapshot(); s != nil {
                arg.Buf = cstring(s)
            }
            return arg, nil
        }

    case []byte, string:
        if !t.IsPointerLike() {
            return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
        }
        arg.Buf = cstring(byteStringOf(v))
        return arg, nil

    case nil:
        if !t.IsPointerLike() {
            return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
        }
        return arg, nil

    case bool, float32, float64, int, int8, int16, int32, int64,
        uint, uint8, uint16, uint32, uint64, uintptr:

    default:
        return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
    }

    bits, err := encodeScalar(t, v)
    if err != nil {
        return NativeArg{}, &UnsupportedArgumentTypeError{Position: pos, Kind: kindOf(v), Want: t}
    }
    arg.Bits = bits
    return arg, nil
}

// writeBack copies native writes into array arguments.
func writeBack(args []NativeArg) {
    for i := range args {
        a := args[i].array
        if a == nil || args[i].Buf == nil {
            continue
        }
        a.mu.Lock()
        copy(a.buf, args[i].Buf)
        a.mu.Unlock()
    }
}

// decodeResult turns a raw native result into the managed value described by rs.
func decodeResult(rs ReturnSpec, res NativeResult) (Value, error) {
    switch rs.Kind {
    case ReturnVoid:
        return nil, nil
    case ReturnTransformed:
        return rs.Transform.Call(int64(int32(uint32(res.Bits))))
    }
    switch rs.Type {
    case TCharP:
        if res.Bits == 0 {
            return nil, nil
        }
        if res.Str == nil {
            return []byte{}, nil
        }
        return append([]byte(nil), res.Str...), nil
    case TPointer:
        if res.Bits == 0 {
            return nil, nil
        }
        return uintptr(res.Bits), nil
    }
    return decodeScalar(rs.Type, res.Bits&widthMask(rs.Type)), nil
}
