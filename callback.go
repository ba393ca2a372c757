package zaffi

import (
    "fmt"
    "strings"
)

// CallbackSignature is the native shape a callback would be exposed with.
type CallbackSignature struct {
    ArgTypes []Value
    ResType  Value
    Conv     CallingConvention
}

// Validate resolves every type in the signature.
func (s CallbackSignature) Validate() error {
    for i, at := range s.ArgTypes {
        if _, err := ResolveDescriptor(at, fmt.Sprintf("callback argument %d", i+1)); err != nil {
            return err
        }
    }
    if s.ResType != nil {
        if _, err := ResolveDescriptor(s.ResType, "callback return"); err != nil {
            return err
        }
    }
    return nil
}

func (s CallbackSignature) String() string {
    parts := make([]string, len(s.ArgTypes))
    for i, at := range s.ArgTypes {
        parts[i] = describe(at)
    }
    ret := "None"
    if s.ResType != nil {
        ret = describe(s.ResType)
    }
    return fmt.Sprintf("%s(%s) -> %s", s.Conv, strings.Join(parts, ", "), ret)
}

// Callback holds a Go callable meant to be exposed to native code. Only
// construction is supported; native code cannot call into it yet.
type Callback struct {
    target Callable
}

// NewCallback validates that target is callable.
func NewCallback(target Value) (*Callback, error) {
    c, ok := target.(Callable)
    if !ok {
        return nil, &NotCallableError{Role: "callback target", Kind: kindOf(target)}
    }
    return &Callback{target: c}, nil
}

// Target returns the wrapped callable.
func (cb *Callback) Target() Callable { return cb.target }

// Attach binds a native signature to the callback.
func (cb *Callback) Attach(sig CallbackSignature) error {
    if err := sig.Validate(); err != nil {
        return err
    }
    return &UnimplementedError{Feature: "callback signature attachment"}
}

// Invoke calls the callback the way native code would.
func (cb *Callback) Invoke(args ...Value) (Value, error) {
    return nil, &UnimplementedError{Feature: "native callback invocation"}
}

// Address returns the native function pointer for the callback.
func (cb *Callback) Address() (uintptr, error) {
    return 0, &UnimplementedError{Feature: "native callback address"}
}
