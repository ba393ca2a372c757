package zaffi

import (
    "fmt"
    "sort"
    "unsafe"
)

// NativeType is the native representation selected by a one-character type tag.
type NativeType int

const (
    TInvalid NativeType = iota
    TInt8
    TUInt8
    TInt16
    TUInt16
    TInt32
    TUInt32
    TInt64
    TUInt64
    TFloat32
    TFloat64
    TBool
    TPointer
    TCharP
)

// tagTable is the wire vocabulary between managed type descriptors and native types.
var tagTable = map[string]NativeType{
    "i": TInt32,
    "l": TInt32,
    "I": TUInt32,
    "L": TUInt32,
    "q": TInt64,
    "Q": TUInt64,
    "b": TInt8,
    "B": TUInt8,
    "h": TInt16,
    "H": TUInt16,
    "f": TFloat32,
    "d": TFloat64,
    "?": TBool,
    "P": TPointer,
    "z": TCharP,
}

// canonical tag per type, used when a type has to be printed back as a tag
var typeTags = map[NativeType]string{
    TInt32:   "i",
    TUInt32:  "I",
    TInt64:   "q",
    TUInt64:  "Q",
    TInt8:    "b",
    TUInt8:   "B",
    TInt16:   "h",
    TUInt16:  "H",
    TFloat32: "f",
    TFloat64: "d",
    TBool:    "?",
    TPointer: "P",
    TCharP:   "z",
}

// ResolveTag maps a type tag to its native type.
func ResolveTag(tag string) (NativeType, error) {
    if t, ok := tagTable[tag]; ok {
        return t, nil
    }
    return TInvalid, &UnsupportedTypeError{Tag: tag}
}

// ResolveDescriptor maps a managed type descriptor to its native type. role names
// where the descriptor was found ("argument 2", "return") for diagnostics.
func ResolveDescriptor(obj Value, role string) (NativeType, error) {
    d, ok := obj.(NativeTypeDescriptor)
    if !ok {
        return TInvalid, &UnsupportedTypeError{Descriptor: describe(obj), Role: role}
    }
    tag := d.TypeTag()
    if len(tag) != 1 {
        return TInvalid, &UnsupportedTypeError{Tag: tag, Descriptor: describe(obj), Role: role}
    }
    t, ok := tagTable[tag]
    if !ok {
        return TInvalid, &UnsupportedTypeError{Tag: tag, Descriptor: describe(obj), Role: role}
    }
    return t, nil
}

// Tag returns the canonical tag of t.
func (t NativeType) Tag() string {
    return typeTags[t]
}

// Size returns the native size of t in bytes.
func (t NativeType) Size() uintptr {
    switch t {
    case TInt8, TUInt8, TBool:
        return 1
    case TInt16, TUInt16:
        return 2
    case TInt32, TUInt32, TFloat32:
        return 4
    case TInt64, TUInt64, TFloat64:
        return 8
    case TPointer, TCharP:
        return unsafe.Sizeof(uintptr(0))
    }
    return 0
}

// IsInteger reports whether t is one of the fixed-width integer types.
func (t NativeType) IsInteger() bool {
    return t >= TInt8 && t <= TUInt64
}

// IsSigned reports whether t is a signed integer type.
func (t NativeType) IsSigned() bool {
    switch t {
    case TInt8, TInt16, TInt32, TInt64:
        return true
    }
    return false
}

// IsFloat reports whether t is float32 or float64.
func (t NativeType) IsFloat() bool {
    return t == TFloat32 || t == TFloat64
}

// IsPointerLike reports whether t is passed as an address.
func (t NativeType) IsPointerLike() bool {
    return t == TPointer || t == TCharP
}

func (t NativeType) String() string {
    switch t {
    case TInt8:
        return "int8"
    case TUInt8:
        return "uint8"
    case TInt16:
        return "int16"
    case TUInt16:
        return "uint16"
    case TInt32:
        return "int32"
    case TUInt32:
        return "uint32"
    case TInt64:
        return "int64"
    case TUInt64:
        return "uint64"
    case TFloat32:
        return "float32"
    case TFloat64:
        return "float64"
    case TBool:
        return "bool"
    case TPointer:
        return "void*"
    case TCharP:
        return "char*"
    }
    return "invalid"
}

// Sizeof returns the native size of the type named by a descriptor.
func Sizeof(desc Value) (uintptr, error) {
    t, err := ResolveDescriptor(desc, "sizeof")
    if err != nil {
        return 0, err
    }
    return t.Size(), nil
}

// TagInfo describes one entry of the tag table.
type TagInfo struct {
    Tag  string `json:"tag"`
    Type string `json:"type"`
    Size int    `json:"size"`
}

// TagTable lists the supported tags in stable order.
func TagTable() []TagInfo {
    out := make([]TagInfo, 0, len(tagTable))
    for tag, t := range tagTable {
        out = append(out, TagInfo{Tag: tag, Type: t.String(), Size: int(t.Size())})
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
    return out
}

func describe(v Value) string {
    switch x := v.(type) {
    case nil:
        return "None"
    case *SimpleType:
        return x.Name()
    case fmt.Stringer:
        return x.String()
    }
    return fmt.Sprintf("%T", v)
}
