package zaffi

import (
    "errors"
    "fmt"
)

// Error kinds. Every typed error below matches exactly one of these with errors.Is.
var (
    ErrLoad                    = errors.New("library load failed")
    ErrSymbolNotFound          = errors.New("symbol not found")
    ErrLibraryNotFound         = errors.New("library not found")
    ErrUnsupportedType         = errors.New("unsupported type")
    ErrInvalidReturnSpec       = errors.New("invalid return type")
    ErrArgumentCount           = errors.New("argument count mismatch")
    ErrUnsupportedArgumentType = errors.New("unsupported argument type")
    ErrNotCallable             = errors.New("not callable")
    ErrUnimplemented           = errors.New("not implemented")
)

// LoadError reports a failed native library open.
type LoadError struct {
    Path       string
    Diagnostic string
}

func (e *LoadError) Error() string {
    return fmt.Sprintf("failed to load library '%s': %s", e.Path, e.Diagnostic)
}

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// SymbolNotFoundError reports a symbol missing from a loaded library.
type SymbolNotFoundError struct {
    Name       string
    Library    string
    Diagnostic string
}

func (e *SymbolNotFoundError) Error() string {
    msg := fmt.Sprintf("function '%s' not found in library '%s'", e.Name, e.Library)
    if e.Diagnostic != "" {
        msg += ": " + e.Diagnostic
    }
    return msg
}

func (e *SymbolNotFoundError) Is(target error) bool { return target == ErrSymbolNotFound }

// LibraryNotFoundError reports a registry key with no entry.
type LibraryNotFoundError struct {
    Key LibraryKey
}

func (e *LibraryNotFoundError) Error() string {
    return fmt.Sprintf("library '%s' not found or unloaded", string(e.Key))
}

func (e *LibraryNotFoundError) Is(target error) bool { return target == ErrLibraryNotFound }

// UnsupportedTypeError reports an unknown tag or a value which is not a type descriptor.
type UnsupportedTypeError struct {
    Tag        string
    Descriptor string
    Role       string
}

func (e *UnsupportedTypeError) Error() string {
    switch {
    case e.Role != "" && e.Tag != "":
        return fmt.Sprintf("invalid type tag '%s' on %s descriptor %s", e.Tag, e.Role, e.Descriptor)
    case e.Role != "":
        return fmt.Sprintf("%s descriptor %s does not expose a one-character type tag", e.Role, e.Descriptor)
    }
    return fmt.Sprintf("unsupported type tag '%s'", e.Tag)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// InvalidReturnSpecError reports a return type which is neither None, a type
// descriptor nor a callable.
type InvalidReturnSpecError struct {
    Kind string
}

func (e *InvalidReturnSpecError) Error() string {
    return fmt.Sprintf("restype must be a type descriptor, a callable, or None, not %s", e.Kind)
}

func (e *InvalidReturnSpecError) Is(target error) bool { return target == ErrInvalidReturnSpec }

// ArgumentCountError reports a call-site arity mismatch.
type ArgumentCountError struct {
    Expected int
    Actual   int
}

func (e *ArgumentCountError) Error() string {
    return fmt.Sprintf("this function takes %d argument(s): expected %d, got %d", e.Expected, e.Expected, e.Actual)
}

func (e *ArgumentCountError) Is(target error) bool { return target == ErrArgumentCount }

// UnsupportedArgumentTypeError reports an argument with no marshaling adapter.
type UnsupportedArgumentTypeError struct {
    Position int // 1-based
    Kind     string
    Want     NativeType
}

func (e *UnsupportedArgumentTypeError) Error() string {
    if e.Want != TInvalid {
        return fmt.Sprintf("argument %d: cannot convert %s to %s", e.Position, e.Kind, e.Want)
    }
    return fmt.Sprintf("argument %d: don't know how to convert %s", e.Position, e.Kind)
}

func (e *UnsupportedArgumentTypeError) Is(target error) bool {
    return target == ErrUnsupportedArgumentType
}

// NotCallableError reports a non-invocable value where a callable is required.
type NotCallableError struct {
    Role string
    Kind string
}

func (e *NotCallableError) Error() string {
    return fmt.Sprintf("%s must be callable, not %s", e.Role, e.Kind)
}

func (e *NotCallableError) Is(target error) bool { return target == ErrNotCallable }

// UnimplementedError reports a deliberately unimplemented feature.
type UnimplementedError struct {
    Feature string
}

func (e *UnimplementedError) Error() string {
    return fmt.Sprintf("%s is not implemented", e.Feature)
}

func (e *UnimplementedError) Is(target error) bool { return target == ErrUnimplemented }
