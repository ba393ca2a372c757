package zaffi

import (
    "errors"
    "math"
    "reflect"
    "testing"
)

func TestInferType(t *testing.T) {
    arr, _ := NewArray(CInt, 2)
    cases := []struct {
        in   Value
        want NativeType
    }{
        {int64(3), TInt32},
        {int64(math.MaxInt32) + 1, TInt64},
        {int64(math.MinInt32) - 1, TInt64},
        {uint64(math.MaxUint32), TInt64},
        {7, TInt32},
        {2.5, TFloat64},
        {float32(1), TFloat64},
        {true, TInt32},
        {"hi", TCharP},
        {[]byte("hi"), TCharP},
        {nil, TPointer},
        {uintptr(1), TPointer},
        {arr, TPointer},
        {CShort.MustNew(3), TInt16},
    }
    for _, c := range cases {
        got, ok := inferType(c.in)
        if !ok || got != c.want {
            t.Errorf("inferType(%#v) = %v, %v; want %v", c.in, got, ok, c.want)
        }
    }
    if _, ok := inferType(struct{}{}); ok {
        t.Errorf("inferType accepted a struct")
    }
}

func TestMarshalArg(t *testing.T) {
    a, err := marshalArg(1, TInvalid, "abc")
    if err != nil || a.Type != TCharP || string(a.Buf) != "abc\x00" {
        t.Fatalf("string arg = %+v, %v", a, err)
    }

    a, err = marshalArg(1, TInt16, int64(-2))
    if err != nil || a.Bits != 0xfffe {
        t.Fatalf("int16 arg = %+v, %v", a, err)
    }

    a, err = marshalArg(1, TFloat64, CDouble.MustNew(0.5))
    if err != nil || math.Float64frombits(a.Bits) != 0.5 {
        t.Fatalf("c_double arg = %+v, %v", a, err)
    }

    arr, _ := ArrayOf(CUByte, 1, 2)
    a, err = marshalArg(1, TPointer, arr)
    if err != nil || !reflect.DeepEqual(a.Buf, []byte{1, 2}) {
        t.Fatalf("array arg = %+v, %v", a, err)
    }

    a, err = marshalArg(1, TCharP, nil)
    if err != nil || a.Buf != nil || a.Bits != 0 {
        t.Fatalf("NULL char* arg = %+v, %v", a, err)
    }
}

func TestMarshalArgRejects(t *testing.T) {
    arr, _ := NewArray(CInt, 1)
    cases := []struct {
        pos      int
        declared NativeType
        in       Value
    }{
        {2, TInt32, "abc"},
        {1, TInt32, arr},
        {3, TInt32, nil},
        {1, TInvalid, struct{}{}},
        {1, TFloat64, map[string]int{}},
        {4, TInt32, CCharP.MustNew("x")},
        {1, TInt32, 1.25},
    }
    for _, c := range cases {
        _, err := marshalArg(c.pos, c.declared, c.in)
        var uat *UnsupportedArgumentTypeError
        if !errors.As(err, &uat) {
            t.Errorf("marshalArg(%d, %v, %#v) expected UnsupportedArgumentTypeError, got %v", c.pos, c.declared, c.in, err)
            continue
        }
        if uat.Position != c.pos {
            t.Errorf("position = %d, want %d", uat.Position, c.pos)
        }
        if !errors.Is(err, ErrUnsupportedArgumentType) {
            t.Errorf("errors.Is failed for %v", err)
        }
    }
}

func TestDecodeResult(t *testing.T) {
    typed := func(nt NativeType) ReturnSpec { return ReturnSpec{Kind: ReturnTyped, Type: nt} }

    if v, _ := decodeResult(ReturnSpec{Kind: ReturnVoid}, NativeResult{Bits: 42}); v != nil {
        t.Errorf("void result = %v", v)
    }
    if v, _ := decodeResult(typed(TInt32), NativeResult{Bits: 0xffffffff}); v != int64(-1) {
        t.Errorf("int32 result = %v", v)
    }
    if v, _ := decodeResult(typed(TUInt16), NativeResult{Bits: 0x12345}); v != uint64(0x2345) {
        t.Errorf("uint16 result = %v", v)
    }
    if v, _ := decodeResult(typed(TCharP), NativeResult{}); v != nil {
        t.Errorf("NULL char* result = %v", v)
    }
    if v, _ := decodeResult(typed(TCharP), NativeResult{Bits: 0x1000, Str: []byte("ok")}); !reflect.DeepEqual(v, []byte("ok")) {
        t.Errorf("char* result = %#v", v)
    }
    if v, _ := decodeResult(typed(TPointer), NativeResult{}); v != nil {
        t.Errorf("NULL pointer result = %v", v)
    }
    if v, _ := decodeResult(typed(TPointer), NativeResult{Bits: 0x1000}); v != uintptr(0x1000) {
        t.Errorf("pointer result = %v", v)
    }
    if v, _ := decodeResult(typed(TBool), NativeResult{Bits: 0x100}); v != false {
        t.Errorf("bool reads only the low byte, got %v", v)
    }

    boom := errors.New("boom")
    tr := ReturnSpec{Kind: ReturnTransformed, Transform: CallableFunc(func(args ...Value) (Value, error) {
        if args[0] == int64(-2) {
            return nil, boom
        }
        return args[0], nil
    })}
    if v, _ := decodeResult(tr, NativeResult{Bits: 0x1_0000_0007}); v != int64(7) {
        t.Errorf("transformed result = %v", v)
    }
    if _, err := decodeResult(tr, NativeResult{Bits: 0xfffffffe}); err != boom {
        t.Errorf("transform error not propagated unchanged: %v", err)
    }
}

func TestWriteBack(t *testing.T) {
    arr, _ := ArrayOf(CInt, 1, 2)
    a, err := marshalArg(1, TPointer, arr)
    if err != nil {
        t.Fatal(err)
    }
    writeBits(a.Buf[4:8], TInt32, uint64(uint32(0xffffffff)))
    writeBack([]NativeArg{a})
    if v, _ := arr.Get(1); v != int64(-1) {
        t.Fatalf("arr[1] after write back = %v", v)
    }
}
