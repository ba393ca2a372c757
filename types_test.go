package zaffi

import (
    "errors"
    "math"
    "reflect"
    "testing"
    "unsafe"
)

func TestResolveTagTable(t *testing.T) {
    ptr := unsafe.Sizeof(uintptr(0))
    cases := []struct {
        tag  string
        want NativeType
        size uintptr
    }{
        {"i", TInt32, 4}, {"l", TInt32, 4},
        {"I", TUInt32, 4}, {"L", TUInt32, 4},
        {"q", TInt64, 8}, {"Q", TUInt64, 8},
        {"b", TInt8, 1}, {"B", TUInt8, 1},
        {"h", TInt16, 2}, {"H", TUInt16, 2},
        {"f", TFloat32, 4}, {"d", TFloat64, 8},
        {"?", TBool, 1},
        {"P", TPointer, ptr}, {"z", TCharP, ptr},
    }
    for _, c := range cases {
        got, err := ResolveTag(c.tag)
        if err != nil {
            t.Fatalf("ResolveTag(%q) unexpected error: %v", c.tag, err)
        }
        if got != c.want {
            t.Errorf("ResolveTag(%q) = %v, want %v", c.tag, got, c.want)
        }
        if got.Size() != c.size {
            t.Errorf("%v.Size() = %d, want %d", got, got.Size(), c.size)
        }
    }
    if len(TagTable()) != len(cases) {
        t.Fatalf("TagTable() has %d entries, want %d", len(TagTable()), len(cases))
    }
}

func TestResolveTagUnknown(t *testing.T) {
    for _, tag := range []string{"x", "", "ii", "u"} {
        _, err := ResolveTag(tag)
        if !errors.Is(err, ErrUnsupportedType) {
            t.Errorf("ResolveTag(%q) expected ErrUnsupportedType, got %v", tag, err)
        }
    }
}

func TestResolveDescriptor(t *testing.T) {
    if got, err := ResolveDescriptor(CDouble, "return"); err != nil || got != TFloat64 {
        t.Fatalf("ResolveDescriptor(c_double) = %v, %v", got, err)
    }

    _, err := ResolveDescriptor(42, "argument 2")
    var ute *UnsupportedTypeError
    if !errors.As(err, &ute) {
        t.Fatalf("expected UnsupportedTypeError, got %v", err)
    }
    if ute.Role != "argument 2" || ute.Descriptor != "int" {
        t.Errorf("unexpected error fields: %+v", ute)
    }

    _, err = ResolveDescriptor(NewSimpleType("c_wat", "x"), "return")
    if !errors.As(err, &ute) || ute.Tag != "x" || ute.Descriptor != "c_wat" {
        t.Errorf("expected bad tag error naming c_wat, got %v", err)
    }

    _, err = ResolveDescriptor(NewSimpleType("c_long_tag", "ll"), "argument 1")
    if !errors.Is(err, ErrUnsupportedType) {
        t.Errorf("multi-character tag expected ErrUnsupportedType, got %v", err)
    }
}

func TestScalarRoundTrip(t *testing.T) {
    cases := []struct {
        tag string
        in  Value
    }{
        {"b", int64(math.MinInt8)}, {"b", int64(math.MaxInt8)},
        {"B", uint64(math.MaxUint8)}, {"B", uint64(0)},
        {"h", int64(math.MinInt16)}, {"H", uint64(math.MaxUint16)},
        {"i", int64(math.MinInt32)}, {"i", int64(math.MaxInt32)}, {"l", int64(-7)},
        {"I", uint64(math.MaxUint32)}, {"L", uint64(12)},
        {"q", int64(math.MinInt64)}, {"q", int64(math.MaxInt64)},
        {"Q", uint64(math.MaxUint64)},
        {"f", float64(1.5)}, {"f", float64(-0.25)},
        {"d", math.Pi}, {"d", math.Inf(-1)},
        {"?", true}, {"?", false},
        {"P", nil}, {"P", uintptr(0xdead0)},
    }
    for _, c := range cases {
        nt, err := ResolveTag(c.tag)
        if err != nil {
            t.Fatal(err)
        }
        bits, err := encodeScalar(nt, c.in)
        if err != nil {
            t.Fatalf("encodeScalar(%s, %v) unexpected error: %v", nt, c.in, err)
        }
        if out := decodeScalar(nt, bits); !reflect.DeepEqual(out, c.in) {
            t.Errorf("round trip %q: %#v -> %#x -> %#v", c.tag, c.in, bits, out)
        }
    }
}

func TestEncodeScalarMasksToWidth(t *testing.T) {
    bits, err := encodeScalar(TUInt8, int64(-1))
    if err != nil || bits != 0xff {
        t.Fatalf("encodeScalar(uint8, -1) = %#x, %v", bits, err)
    }
    if v := decodeScalar(TInt8, bits); v != int64(-1) {
        t.Errorf("decodeScalar(int8, 0xff) = %v, want -1", v)
    }
    if _, err := encodeScalar(TInt32, 1.5); err == nil {
        t.Errorf("float accepted for int32")
    }
    if _, err := encodeScalar(TFloat64, "x"); err == nil {
        t.Errorf("string accepted for double")
    }
}

func TestSizeof(t *testing.T) {
    if n, err := Sizeof(CShort); err != nil || n != 2 {
        t.Fatalf("Sizeof(c_short) = %d, %v", n, err)
    }
    if _, err := Sizeof("c_int"); !errors.Is(err, ErrUnsupportedType) {
        t.Fatalf("Sizeof(string) expected ErrUnsupportedType, got %v", err)
    }
}

func TestNativeTypeNames(t *testing.T) {
    if TPointer.String() != "void*" || TCharP.String() != "char*" || TUInt16.String() != "uint16" {
        t.Fatalf("unexpected names %s %s %s", TPointer, TCharP, TUInt16)
    }
    if TInt32.Tag() != "i" || TUInt32.Tag() != "I" {
        t.Fatalf("unexpected canonical tags %s %s", TInt32.Tag(), TUInt32.Tag())
    }
    tags := TagTable()
    for i := 1; i < len(tags); i++ {
        if tags[i-1].Tag > tags[i].Tag {
            t.Fatalf("TagTable not sorted at %d: %v", i, tags)
        }
    }
}
