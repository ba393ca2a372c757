package zaffi

import (
    "encoding/binary"
    "fmt"
    "math"
    "sync"
)

// Value is a managed value crossing the FFI boundary.
//
// Boxed forms produced by this package:
//   signed integers   int64
//   unsigned integers uint64
//   floats            float64
//   bool              bool
//   raw pointers      uintptr
//   byte strings      []byte
//   no value          nil
type Value = any

// Callable is anything the runtime can invoke.
type Callable interface {
    Call(args ...Value) (Value, error)
}

// CallableFunc adapts a Go function to Callable.
type CallableFunc func(args ...Value) (Value, error)

// Call invokes f.
func (f CallableFunc) Call(args ...Value) (Value, error) {
    return f(args...)
}

// NativeTypeDescriptor is implemented by values which name a native type
// through a one-character tag.
type NativeTypeDescriptor interface {
    TypeTag() string
}

// IsCallable reports whether v can be invoked.
func IsCallable(v Value) bool {
    _, ok := v.(Callable)
    return ok
}

// Tuple is the ordered argument tuple handed to errcheck hooks.
type Tuple []Value

// ============================================================================
// Simple types
// ============================================================================

// SimpleType is a scalar native type descriptor such as c_int.
type SimpleType struct {
    name string
    tag  string
}

// NewSimpleType declares a descriptor. The tag is not checked here; an
// unknown tag fails when the descriptor is used in a call.
func NewSimpleType(name, tag string) *SimpleType {
    return &SimpleType{name: name, tag: tag}
}

// TypeTag returns the descriptor tag.
func (st *SimpleType) TypeTag() string { return st.tag }

// Name returns the descriptor name.
func (st *SimpleType) Name() string { return st.name }

func (st *SimpleType) String() string { return st.name }

// New boxes v as an instance of st.
func (st *SimpleType) New(v Value) (*Simple, error) {
    t, err := ResolveDescriptor(st, "value")
    if err != nil {
        return nil, err
    }
    bits, str, err := simpleEncode(t, v)
    if err != nil {
        return nil, err
    }
    return &Simple{typ: st, native: t, bits: bits, str: str}, nil
}

// MustNew is New for literals known to be valid.
func (st *SimpleType) MustNew(v Value) *Simple {
    s, err := st.New(v)
    if err != nil {
        panic(err)
    }
    return s
}

// Standard descriptors.
var (
    CInt       = NewSimpleType("c_int", "i")
    CLong      = NewSimpleType("c_long", "l")
    CUInt      = NewSimpleType("c_uint", "I")
    CULong     = NewSimpleType("c_ulong", "L")
    CLongLong  = NewSimpleType("c_longlong", "q")
    CULongLong = NewSimpleType("c_ulonglong", "Q")
    CByte      = NewSimpleType("c_byte", "b")
    CUByte     = NewSimpleType("c_ubyte", "B")
    CShort     = NewSimpleType("c_short", "h")
    CUShort    = NewSimpleType("c_ushort", "H")
    CFloat     = NewSimpleType("c_float", "f")
    CDouble    = NewSimpleType("c_double", "d")
    CBool      = NewSimpleType("c_bool", "?")
    CVoidP     = NewSimpleType("c_void_p", "P")
    CCharP     = NewSimpleType("c_char_p", "z")
)

// Simple is a typed scalar value, the managed counterpart of c_int(5).
type Simple struct {
    mu     sync.RWMutex
    typ    *SimpleType
    native NativeType
    bits   uint64
    str    []byte // z only
}

// Type returns the descriptor the value was created from.
func (s *Simple) Type() *SimpleType { return s.typ }

// NativeType returns the resolved native type.
func (s *Simple) NativeType() NativeType { return s.native }

// Value returns the boxed managed value.
func (s *Simple) Value() Value {
    s.mu.RLock()
    defer s.mu.RUnlock()
    if s.native == TCharP {
        if s.str == nil {
            return nil
        }
        return append([]byte(nil), s.str...)
    }
    return decodeScalar(s.native, s.bits)
}

// Set replaces the held value.
func (s *Simple) Set(v Value) error {
    bits, str, err := simpleEncode(s.native, v)
    if err != nil {
        return err
    }
    s.mu.Lock()
    s.bits = bits
    s.str = str
    s.mu.Unlock()
    return nil
}

func (s *Simple) String() string {
    return fmt.Sprintf("%s(%v)", s.typ.name, s.Value())
}

func simpleEncode(t NativeType, v Value) (uint64, []byte, error) {
    switch v.(type) {
    case []byte, string:
        if t != TCharP {
            return 0, nil, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
        }
        return 0, byteStringOf(v), nil
    }
    if t == TCharP && v != nil {
        return 0, nil, fmt.Errorf("cannot convert %s to %s", kindOf(v), t)
    }
    bits, err := encodeScalar(t, v)
    return bits, nil, err
}

func (s *Simple) snapshot() (uint64, []byte) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.bits, s.str
}

// ============================================================================
// Arrays
// ============================================================================

// Array is a fixed-size array of one simple element type, passed to native code
// as a pointer to its first element. Native writes are visible after the call.
type Array struct {
    mu   sync.Mutex
    elem *SimpleType
    et   NativeType
    n    int
    buf  []byte
}

// NewArray allocates a zeroed array of n elements.
func NewArray(elem *SimpleType, n int) (*Array, error) {
    et, err := ResolveDescriptor(elem, "array element")
    if err != nil {
        return nil, err
    }
    if et == TCharP {
        return nil, &UnimplementedError{Feature: "arrays of char*"}
    }
    if n < 0 {
        return nil, fmt.Errorf("array length must not be negative (got %d)", n)
    }
    if n > math.MaxInt/int(et.Size()) {
        return nil, fmt.Errorf("array of %d %s elements is too large", n, elem.name)
    }
    return &Array{elem: elem, et: et, n: n, buf: make([]byte, int(et.Size())*n)}, nil
}

// ArrayOf builds an array holding vals.
func ArrayOf(elem *SimpleType, vals ...Value) (*Array, error) {
    a, err := NewArray(elem, len(vals))
    if err != nil {
        return nil, err
    }
    for i, v := range vals {
        if err := a.Set(i, v); err != nil {
            return nil, err
        }
    }
    return a, nil
}

// Len returns the element count.
func (a *Array) Len() int { return a.n }

// Elem returns the element descriptor.
func (a *Array) Elem() *SimpleType { return a.elem }

// Get returns element i.
func (a *Array) Get(i int) (Value, error) {
    if i < 0 || i >= a.n {
        return nil, fmt.Errorf("array index %d out of range [0,%d)", i, a.n)
    }
    sz := int(a.et.Size())
    a.mu.Lock()
    bits := readBits(a.buf[i*sz:(i+1)*sz], a.et)
    a.mu.Unlock()
    return decodeScalar(a.et, bits), nil
}

// Set stores v at element i.
func (a *Array) Set(i int, v Value) error {
    if i < 0 || i >= a.n {
        return fmt.Errorf("array index %d out of range [0,%d)", i, a.n)
    }
    bits, err := encodeScalar(a.et, v)
    if err != nil {
        return err
    }
    sz := int(a.et.Size())
    a.mu.Lock()
    writeBits(a.buf[i*sz:(i+1)*sz], a.et, bits)
    a.mu.Unlock()
    return nil
}

// Bytes returns a copy of the backing buffer.
func (a *Array) Bytes() []byte {
    a.mu.Lock()
    defer a.mu.Unlock()
    return append([]byte(nil), a.buf...)
}

func (a *Array) String() string {
    return fmt.Sprintf("%s_Array_%d", a.elem.name, a.n)
}

// readBits loads one element in native byte order.
func readBits(b []byte, t NativeType) uint64 {
    switch t.Size() {
    case 1:
        return uint64(b[0])
    case 2:
        return uint64(binary.NativeEndian.Uint16(b))
    case 4:
        return uint64(binary.NativeEndian.Uint32(b))
    }
    return binary.NativeEndian.Uint64(b)
}

func writeBits(b []byte, t NativeType, bits uint64) {
    switch t.Size() {
    case 1:
        b[0] = byte(bits)
    case 2:
        binary.NativeEndian.PutUint16(b, uint16(bits))
    case 4:
        binary.NativeEndian.PutUint32(b, uint32(bits))
    default:
        binary.NativeEndian.PutUint64(b, bits)
    }
}

// kindOf names the managed kind of v for diagnostics.
func kindOf(v Value) string {
    switch x := v.(type) {
    case nil:
        return "None"
    case *Simple:
        return x.typ.name
    case *Array:
        return x.String()
    case *SimpleType:
        return "type " + x.name
    case Callable:
        return "callable"
    }
    return fmt.Sprintf("%T", v)
}

// standard descriptor per tag; "l" and "L" resolve to the long variants
var standardTypes = map[string]*SimpleType{}

func init() {
    for _, st := range []*SimpleType{CInt, CLong, CUInt, CULong, CLongLong, CULongLong, CByte, CUByte,
        CShort, CUShort, CFloat, CDouble, CBool, CVoidP, CCharP} {
        standardTypes[st.tag] = st
    }
}

// LookupSimpleType returns the standard descriptor for a tag.
func LookupSimpleType(tag string) (*SimpleType, error) {
    if st, ok := standardTypes[tag]; ok {
        return st, nil
    }
    return nil, &UnsupportedTypeError{Tag: tag}
}
