package zaffi

import (
    "fmt"
    "runtime"
    "strings"
)

// CallingConvention selects the native ABI used for a call.
type CallingConvention int

const (
    ConvDefault CallingConvention = iota
    ConvCdecl
    ConvStdcall
)

func (c CallingConvention) String() string {
    switch c {
    case ConvCdecl:
        return "cdecl"
    case ConvStdcall:
        return "stdcall"
    }
    return "default"
}

// ParseConvention accepts the names produced by String.
func ParseConvention(s string) (CallingConvention, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "default":
        return ConvDefault, nil
    case "cdecl", "c":
        return ConvCdecl, nil
    case "stdcall", "winapi":
        return ConvStdcall, nil
    }
    return ConvDefault, fmt.Errorf("unknown calling convention '%s'", s)
}

// libffi ABI values. Only 32-bit x86 distinguishes stdcall from the
// platform default; everywhere else both collapse to the default ABI.
const (
    ffiAbiSysv    = 1 // x86, arm, arm64, riscv64
    ffiAbiUnix64  = 2 // amd64 unix
    ffiAbiWin64   = 3 // amd64 windows
    ffiAbiStdcall = 5 // x86 only
)

// ffiABI maps a convention to the libffi ABI for the running platform.
func (c CallingConvention) ffiABI() int {
    switch runtime.GOARCH {
    case "386":
        if c == ConvStdcall {
            return ffiAbiStdcall
        }
        return ffiAbiSysv
    case "amd64":
        if runtime.GOOS == "windows" {
            return ffiAbiWin64
        }
        return ffiAbiUnix64
    }
    return ffiAbiSysv
}
