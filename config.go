package zaffi

import (
    "fmt"
    "os"
    "sort"
    "strings"
)

// Call backend names.
const (
    BackendAuto   = "auto"
    BackendLibffi = "libffi"
    BackendPurego = "purego"
)

// LoadMode mirrors the dlopen mode bits. The zero value defers to Config.
type LoadMode uint

const (
    ModeLazy LoadMode = 1 << iota
    ModeNow
    ModeGlobal
    ModeLocal
)

// Config holds the environment switches read at startup.
type Config struct {
    Backend    string   // ZAFFI_BACKEND
    DlopenMode LoadMode // ZAFFI_DLOPEN_MODE
    LogLevel   int      // ZAFFI_LOG_LEVEL
    LogJSON    bool     // ZAFFI_LOG_JSON
    LogFile    string   // ZAFFI_LOG_FILE
}

// DefaultConfig returns the settings used when no variable is set.
func DefaultConfig() Config {
    return Config{
        Backend:    BackendAuto,
        DlopenMode: ModeLazy,
        LogLevel:   LOG_WARNING,
    }
}

// LoadConfig reads ZAFFI_* variables on top of DefaultConfig.
func LoadConfig() (Config, error) {
    return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) (Config, error) {
    c := DefaultConfig()

    if v := getenv("ZAFFI_BACKEND"); v != "" {
        switch b := strings.ToLower(v); b {
        case BackendAuto, BackendLibffi, BackendPurego:
            c.Backend = b
        default:
            return c, fmt.Errorf("ZAFFI_BACKEND: unknown backend '%s'", v)
        }
    }

    if v := getenv("ZAFFI_DLOPEN_MODE"); v != "" {
        m, err := ParseLoadMode(v)
        if err != nil {
            return c, fmt.Errorf("ZAFFI_DLOPEN_MODE: %w", err)
        }
        c.DlopenMode = m
    }

    if v := getenv("ZAFFI_LOG_LEVEL"); v != "" {
        l, err := ParseLogLevel(v)
        if err != nil {
            return c, fmt.Errorf("ZAFFI_LOG_LEVEL: %w", err)
        }
        c.LogLevel = l
    }

    switch strings.ToLower(getenv("ZAFFI_LOG_JSON")) {
    case "1", "true", "yes", "on":
        c.LogJSON = true
    }
    c.LogFile = getenv("ZAFFI_LOG_FILE")
    return c, nil
}

// ParseLoadMode accepts a '|' or ',' separated list of lazy, now, global, local.
func ParseLoadMode(s string) (LoadMode, error) {
    var m LoadMode
    for _, part := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
        return r == '|' || r == ',' || r == ' '
    }) {
        switch strings.TrimPrefix(part, "rtld_") {
        case "lazy":
            m |= ModeLazy
        case "now":
            m |= ModeNow
        case "global":
            m |= ModeGlobal
        case "local":
            m |= ModeLocal
        default:
            return 0, fmt.Errorf("unknown mode '%s'", part)
        }
    }
    if m&ModeLazy != 0 && m&ModeNow != 0 {
        return 0, fmt.Errorf("lazy and now are exclusive")
    }
    return m, nil
}

func (m LoadMode) String() string {
    if m == 0 {
        return "default"
    }
    var parts []string
    for bit, name := range map[LoadMode]string{ModeLazy: "lazy", ModeNow: "now", ModeGlobal: "global", ModeLocal: "local"} {
        if m&bit != 0 {
            parts = append(parts, name)
        }
    }
    sort.Strings(parts)
    return strings.Join(parts, "|")
}

// logEnvSet reports whether any logging variable is present.
func logEnvSet(getenv func(string) string) bool {
    for _, k := range []string{"ZAFFI_LOG_LEVEL", "ZAFFI_LOG_JSON", "ZAFFI_LOG_FILE"} {
        if getenv(k) != "" {
            return true
        }
    }
    return false
}

// Apply pushes the logging settings into the logger.
func (c Config) Apply() error {
    SetLogLevel(c.LogLevel)
    SetLogJSON(c.LogJSON)
    if c.LogFile != "" {
        return SetLogFile(c.LogFile)
    }
    return nil
}

func sortedKeys(m map[string]any) []string {
    keys := make([]string, 0, len(m))
    for k := range m {
        keys = append(keys, k)
    }
    sort.Strings(keys)
    return keys
}
