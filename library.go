package zaffi

import "fmt"

// LibraryOptions are the optional open parameters of a library handle.
type LibraryOptions struct {
    Mode     LoadMode  // dlopen mode; zero uses the configured default
    UseErrno bool      // capture errno (GetLastError on Windows) after each call
    Registry *Registry // nil uses DefaultRegistry
}

// Library is an opened shared library. The four constructors differ only in
// the calling convention handed to the functions they create.
type Library struct {
    reg  *Registry
    key  LibraryKey
    name string
    conv CallingConvention
    opts LibraryOptions
}

// OpenLibrary opens path through the registry with the given default convention.
func OpenLibrary(path string, conv CallingConvention, opts LibraryOptions) (*Library, error) {
    reg := opts.Registry
    if reg == nil {
        var err error
        if reg, err = DefaultRegistry(); err != nil {
            return nil, err
        }
    }
    key, err := reg.Open(path, opts.Mode)
    if err != nil {
        return nil, err
    }
    return &Library{reg: reg, key: key, name: path, conv: conv, opts: opts}, nil
}

func firstOptions(opts []LibraryOptions) LibraryOptions {
    if len(opts) > 0 {
        return opts[0]
    }
    return LibraryOptions{}
}

// CDLL opens a library whose functions use the C calling convention.
func CDLL(path string, opts ...LibraryOptions) (*Library, error) {
    return OpenLibrary(path, ConvCdecl, firstOptions(opts))
}

// PyDLL is CDLL for libraries called without releasing the interpreter.
// This runtime has no such lock, so it behaves as CDLL.
func PyDLL(path string, opts ...LibraryOptions) (*Library, error) {
    return OpenLibrary(path, ConvCdecl, firstOptions(opts))
}

// WinDLL opens a library whose functions use stdcall.
func WinDLL(path string, opts ...LibraryOptions) (*Library, error) {
    return OpenLibrary(path, ConvStdcall, firstOptions(opts))
}

// OleDLL opens a library whose functions use stdcall. HRESULT translation is
// not performed.
func OleDLL(path string, opts ...LibraryOptions) (*Library, error) {
    return OpenLibrary(path, ConvStdcall, firstOptions(opts))
}

// Name is the path the library was opened with.
func (l *Library) Name() string { return l.name }

// Handle is the registry key of the library.
func (l *Library) Handle() LibraryKey { return l.key }

// Convention is the convention given to functions created from l.
func (l *Library) Convention() CallingConvention { return l.conv }

// Registry returns the registry l was opened in.
func (l *Library) Registry() *Registry { return l.reg }

// Attr returns a declared member (_name, _handle) or else a new function
// handle for the symbol name.
func (l *Library) Attr(name string) (Value, error) {
    switch name {
    case "_name":
        return l.name, nil
    case "_handle":
        return l.key, nil
    }
    return l.ResolveOrCreate(name)
}

// ResolveOrCreate returns a new symbol-bound function handle for name. Every
// call creates a distinct handle with its own metadata. The symbol itself is
// looked up when the handle is called.
func (l *Library) ResolveOrCreate(name string) (*FunctionHandle, error) {
    if name == "" {
        return nil, &SymbolNotFoundError{Name: name, Library: string(l.key)}
    }
    if _, err := l.reg.Resolve(l.key); err != nil {
        return nil, err
    }
    return newSymbolFunction(l.reg, l.key, name, l.conv, l.opts.UseErrno), nil
}

func (l *Library) String() string {
    return fmt.Sprintf("<Library '%s', %s>", l.name, l.conv)
}
