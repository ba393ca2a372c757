package main

import (
    "bytes"
    "flag"
    "io"
    "reflect"
    "strings"
    "testing"

    "zaffi"
)

func TestSplitTags(t *testing.T) {
    cases := map[string][]string{
        "":       nil,
        "idz":    {"i", "d", "z"},
        "i,d, z": {"i", "d", "z"},
        " P ":    {"P"},
    }
    for in, want := range cases {
        if got := splitTags(in); !reflect.DeepEqual(got, want) {
            t.Errorf("splitTags(%q) = %v, want %v", in, got, want)
        }
    }
}

func TestParseArg(t *testing.T) {
    cases := []struct {
        tag, word string
        want      zaffi.Value
    }{
        {"", "42", int64(42)},
        {"", "-0x10", int64(-16)},
        {"", "2.5", 2.5},
        {"", "true", true},
        {"", "null", nil},
        {"", "abc", []byte("abc")},
        {"B", "255", uint64(255)},
        {"h", "-300", int64(-300)},
        {"P", "0x1000", uintptr(0x1000)},
        {"P", "null", nil},
        {"z", "hi", []byte("hi")},
        {"d", "1e3", 1000.0},
        {"?", "1", true},
    }
    for _, c := range cases {
        got, err := parseArg(c.tag, c.word)
        if err != nil {
            t.Errorf("parseArg(%q, %q) error: %v", c.tag, c.word, err)
            continue
        }
        if !reflect.DeepEqual(got, c.want) {
            t.Errorf("parseArg(%q, %q) = %#v, want %#v", c.tag, c.word, got, c.want)
        }
    }

    for _, c := range [][2]string{{"b", "300"}, {"B", "-1"}, {"x", "1"}, {"f", "pi"}, {"?", "maybe"}} {
        if _, err := parseArg(c[0], c[1]); err == nil {
            t.Errorf("parseArg(%q, %q) accepted", c[0], c[1])
        }
    }
}

func TestParseArgsMismatchedTags(t *testing.T) {
    got, err := parseArgs([]string{"i"}, []string{"7", "x"})
    if err != nil {
        t.Fatal(err)
    }
    if !reflect.DeepEqual(got, []zaffi.Value{int64(7), []byte("x")}) {
        t.Fatalf("parseArgs = %#v", got)
    }
    if _, err := parseArgs([]string{"i"}, []string{"seven"}); err == nil || !strings.Contains(err.Error(), "argument 1") {
        t.Fatalf("expected error naming argument 1, got %v", err)
    }
}

func TestRestypeOf(t *testing.T) {
    for _, s := range []string{"", "void", "none"} {
        if v, err := restypeOf(s); v != nil || err != nil {
            t.Errorf("restypeOf(%q) = %v, %v", s, v, err)
        }
    }
    if v, err := restypeOf("d"); err != nil || v != zaffi.CDouble {
        t.Errorf("restypeOf(d) = %v, %v", v, err)
    }
    if _, err := restypeOf("x"); err == nil {
        t.Errorf("restypeOf(x) accepted")
    }
}

func TestParseFlags(t *testing.T) {
    newFS := func() *flag.FlagSet {
        fs := flag.NewFlagSet("zaffi", flag.ContinueOnError)
        fs.SetOutput(io.Discard)
        return fs
    }

    if _, err := parseFlags(newFS(), []string{"-lib", "libc.so.6"}); err == nil {
        t.Fatalf("missing -sym accepted")
    }
    if _, err := parseFlags(newFS(), []string{"-types"}); err != nil {
        t.Fatalf("-types alone rejected: %v", err)
    }

    o, err := parseFlags(newFS(), []string{"-lib", "libc.so.6", "-sym", "abs", "-argtypes", "i", "--", "-5"})
    if err != nil {
        t.Fatal(err)
    }
    if o.restype != "i" || o.conv != "cdecl" || !reflect.DeepEqual(o.args, []string{"-5"}) {
        t.Fatalf("unexpected options %+v", o)
    }
}

func TestRunQuery(t *testing.T) {
    out, err := runQuery(".result + 1", []byte(`{"result": 41}`))
    if err != nil {
        t.Fatal(err)
    }
    if len(out) != 1 || out[0] != 42.0 {
        t.Fatalf("runQuery = %#v", out)
    }
    if _, err := runQuery(".[", []byte(`{}`)); err == nil {
        t.Fatalf("bad query accepted")
    }
    if _, err := runQuery(".a.b", []byte(`{"a": 1}`)); err == nil {
        t.Fatalf("runtime query error not reported")
    }
}

func TestRunTypes(t *testing.T) {
    var buf bytes.Buffer
    if err := run(options{types: true}, &buf); err != nil {
        t.Fatal(err)
    }
    if !strings.Contains(buf.String(), `"tag":"i"`) {
        t.Fatalf("tag table output %q", buf.String())
    }

    buf.Reset()
    if err := run(options{types: true, query: `.[] | select(.tag == "d") | .size`}, &buf); err != nil {
        t.Fatal(err)
    }
    if strings.TrimSpace(buf.String()) != "8" {
        t.Fatalf("query output %q", buf.String())
    }
}

func TestJsonable(t *testing.T) {
    if v := jsonable([]byte("hi")); v != "hi" {
        t.Errorf("bytes rendered as %#v", v)
    }
    if v := jsonable(uintptr(255)); v != "0xff" {
        t.Errorf("pointer rendered as %#v", v)
    }
    if v := jsonable(int64(3)); v != int64(3) {
        t.Errorf("int rendered as %#v", v)
    }
}
