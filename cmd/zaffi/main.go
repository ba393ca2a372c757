// Command zaffi calls one function from a shared library and prints the
// result as JSON.
package main

import (
    "encoding/json"
    "flag"
    "fmt"
    "io"
    "os"

    "golang.org/x/term"

    "zaffi"
)

type options struct {
    lib      string
    sym      string
    argtypes string
    restype  string
    conv     string
    query    string
    backend  string
    mode     string
    errno    bool
    types    bool
    args     []string
}

func parseFlags(fs *flag.FlagSet, argv []string) (options, error) {
    var o options
    fs.StringVar(&o.lib, "lib", "", "shared library path or name")
    fs.StringVar(&o.sym, "sym", "", "symbol to call")
    fs.StringVar(&o.argtypes, "argtypes", "", "argument type tags, e.g. 'id' or 'i,d' (default: infer)")
    fs.StringVar(&o.restype, "restype", "i", "return type tag or 'void'")
    fs.StringVar(&o.conv, "conv", "cdecl", "calling convention: cdecl or stdcall")
    fs.StringVar(&o.query, "q", "", "jq filter applied to the JSON output")
    fs.StringVar(&o.backend, "backend", "", "call backend: auto, libffi or purego (default from ZAFFI_BACKEND)")
    fs.StringVar(&o.mode, "mode", "", "dlopen mode, e.g. 'now|global'")
    fs.BoolVar(&o.errno, "errno", false, "capture errno after the call")
    fs.BoolVar(&o.types, "types", false, "print the type tag table and exit")
    if err := fs.Parse(argv); err != nil {
        return o, err
    }
    o.args = fs.Args()
    if !o.types && (o.lib == "" || o.sym == "") {
        return o, fmt.Errorf("-lib and -sym are required")
    }
    return o, nil
}

func main() {
    fs := flag.NewFlagSet("zaffi", flag.ContinueOnError)
    o, err := parseFlags(fs, os.Args[1:])
    if err != nil {
        if err == flag.ErrHelp {
            os.Exit(0)
        }
        fmt.Fprintln(os.Stderr, err)
        os.Exit(2)
    }

    code := 0
    if err := run(o, os.Stdout); err != nil {
        fmt.Fprintln(os.Stderr, "zaffi:", err)
        code = 1
    }
    zaffi.FlushLogging()
    os.Exit(code)
}

func run(o options, w io.Writer) error {
    if o.types {
        return emit(w, zaffi.TagTable(), o.query)
    }

    cfg, err := zaffi.LoadConfig()
    if err != nil {
        return err
    }
    if err := cfg.Apply(); err != nil {
        return err
    }
    if o.backend != "" {
        cfg.Backend = o.backend
    }
    if o.mode != "" {
        if cfg.DlopenMode, err = zaffi.ParseLoadMode(o.mode); err != nil {
            return err
        }
    }
    conv, err := zaffi.ParseConvention(o.conv)
    if err != nil {
        return err
    }

    native, err := zaffi.NewNative(cfg.Backend, cfg.DlopenMode)
    if err != nil {
        return err
    }
    reg := zaffi.NewRegistry(native)
    lib, err := zaffi.OpenLibrary(o.lib, conv, zaffi.LibraryOptions{UseErrno: o.errno, Registry: reg})
    if err != nil {
        return err
    }
    fn, err := lib.ResolveOrCreate(o.sym)
    if err != nil {
        return err
    }

    tags := splitTags(o.argtypes)
    if len(tags) > 0 {
        descs, err := descriptors(tags)
        if err != nil {
            return err
        }
        if err := fn.SetArgTypes(descs); err != nil {
            return err
        }
    }
    rt, err := restypeOf(o.restype)
    if err != nil {
        return err
    }
    if err := fn.SetReturnType(rt); err != nil {
        return err
    }

    args, err := parseArgs(tags, o.args)
    if err != nil {
        return err
    }
    res, err := fn.Call(args...)
    if err != nil {
        return err
    }

    out := map[string]any{
        "library":    string(lib.Handle()),
        "symbol":     fn.Symbol(),
        "convention": fn.ConventionName(),
        "result":     jsonable(res),
    }
    if o.errno {
        out["errno"] = fn.LastErrno()
        out["errno_text"] = zaffi.ErrnoText(fn.LastErrno())
    }
    return emit(w, out, o.query)
}

// emit writes v as JSON, indented when stdout is a terminal.
func emit(w io.Writer, v any, query string) error {
    b, err := json.Marshal(v)
    if err != nil {
        return err
    }
    var docs []any
    if query != "" {
        if docs, err = runQuery(query, b); err != nil {
            return err
        }
    } else {
        docs = []any{json.RawMessage(b)}
    }

    pretty := false
    if f, ok := w.(*os.File); ok {
        pretty = term.IsTerminal(int(f.Fd()))
    }
    for _, d := range docs {
        var out []byte
        if pretty {
            out, err = json.MarshalIndent(d, "", "  ")
        } else {
            out, err = json.Marshal(d)
        }
        if err != nil {
            return err
        }
        fmt.Fprintln(w, string(out))
    }
    return nil
}
