//go:build windows

package zaffi

import "golang.org/x/sys/windows"

var (
    modkernel32      = windows.NewLazySystemDLL("kernel32.dll")
    procGetLastError = modkernel32.NewProc("GetLastError")
    procSetLastError = modkernel32.NewProc("SetLastError")
)

// ErrnoText describes a GetLastError value captured by a use_errno library.
func ErrnoText(n int) string {
    return windows.Errno(n).Error()
}

func clearErrno() {
    procSetLastError.Call(0)
}

func readErrno() int {
    r, _, _ := procGetLastError.Call()
    return int(r)
}
