package main

import (
    "encoding/json"
    "fmt"
    "strconv"
    "strings"

    "github.com/itchyny/gojq"

    "zaffi"
)

// splitTags turns "i,d,z" or "idz" into single-character tags.
func splitTags(s string) []string {
    s = strings.TrimSpace(s)
    if s == "" {
        return nil
    }
    if strings.ContainsAny(s, ", ") {
        return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
    }
    out := make([]string, 0, len(s))
    for _, r := range s {
        out = append(out, string(r))
    }
    return out
}

// parseArg converts a command line word to the value passed for tag. An empty
// tag means no argtypes were declared and the kind is guessed from the text.
func parseArg(tag, word string) (zaffi.Value, error) {
    if tag == "" {
        if n, err := strconv.ParseInt(word, 0, 64); err == nil {
            return n, nil
        }
        if f, err := strconv.ParseFloat(word, 64); err == nil {
            return f, nil
        }
        if b, err := strconv.ParseBool(word); err == nil && (word == "true" || word == "false") {
            return b, nil
        }
        if word == "null" {
            return nil, nil
        }
        return []byte(word), nil
    }

    t, err := zaffi.ResolveTag(tag)
    if err != nil {
        return nil, err
    }
    switch {
    case t == zaffi.TCharP:
        if word == "null" {
            return nil, nil
        }
        return []byte(word), nil
    case t == zaffi.TPointer:
        if word == "null" || word == "0" {
            return nil, nil
        }
        u, err := strconv.ParseUint(word, 0, 64)
        if err != nil {
            return nil, fmt.Errorf("bad pointer '%s': %w", word, err)
        }
        return uintptr(u), nil
    case t == zaffi.TBool:
        b, err := strconv.ParseBool(word)
        if err != nil {
            return nil, fmt.Errorf("bad bool '%s': %w", word, err)
        }
        return b, nil
    case t.IsFloat():
        f, err := strconv.ParseFloat(word, 64)
        if err != nil {
            return nil, fmt.Errorf("bad float '%s': %w", word, err)
        }
        return f, nil
    case t.IsSigned():
        n, err := strconv.ParseInt(word, 0, int(t.Size())*8)
        if err != nil {
            return nil, fmt.Errorf("bad %s '%s': %w", t, word, err)
        }
        return n, nil
    }
    u, err := strconv.ParseUint(word, 0, int(t.Size())*8)
    if err != nil {
        return nil, fmt.Errorf("bad %s '%s': %w", t, word, err)
    }
    return u, nil
}

// parseArgs pairs words with tags. With tags present the counts must match,
// otherwise the call itself reports the mismatch.
func parseArgs(tags, words []string) ([]zaffi.Value, error) {
    out := make([]zaffi.Value, len(words))
    for i, w := range words {
        tag := ""
        if i < len(tags) {
            tag = tags[i]
        }
        v, err := parseArg(tag, w)
        if err != nil {
            return nil, fmt.Errorf("argument %d: %w", i+1, err)
        }
        out[i] = v
    }
    return out, nil
}

// descriptors maps tags to the standard type descriptors.
func descriptors(tags []string) (zaffi.Tuple, error) {
    out := make(zaffi.Tuple, len(tags))
    for i, tag := range tags {
        st, err := zaffi.LookupSimpleType(tag)
        if err != nil {
            return nil, err
        }
        out[i] = st
    }
    return out, nil
}

// restypeOf maps the -restype flag to a return type source.
func restypeOf(s string) (zaffi.Value, error) {
    switch s {
    case "", "void", "none", "None":
        return nil, nil
    }
    return zaffi.LookupSimpleType(s)
}

// jsonable converts a call result to something encoding/json renders well.
func jsonable(v zaffi.Value) any {
    switch x := v.(type) {
    case []byte:
        return string(x)
    case uintptr:
        return fmt.Sprintf("0x%x", x)
    }
    return v
}

// runQuery filters a JSON document through a jq expression.
func runQuery(query string, doc []byte) ([]any, error) {
    q, err := gojq.Parse(query)
    if err != nil {
        return nil, fmt.Errorf("invalid query string: %w", err)
    }
    var iv any
    if err := json.Unmarshal(doc, &iv); err != nil {
        return nil, fmt.Errorf("could not decode result: %w", err)
    }

    var out []any
    iter := q.Run(iv)
    for {
        v, ok := iter.Next()
        if !ok {
            break
        }
        if err, ok := v.(error); ok {
            return nil, err
        }
        out = append(out, v)
    }
    return out, nil
}
