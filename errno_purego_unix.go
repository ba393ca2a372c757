//go:build (darwin || freebsd || linux || netbsd) && (amd64 || arm64) && !android

package zaffi

import (
    "runtime"
    "sync"
    "unsafe"

    "github.com/ebitengine/purego"
)

// The purego backend reaches errno through libc's per-thread accessor. The
// caller keeps the goroutine on one OS thread between clear and read.
var (
    errnoOnce     sync.Once
    errnoLocation func() unsafe.Pointer
)

func errnoAccessor() string {
    switch runtime.GOOS {
    case "linux":
        return "__errno_location"
    case "netbsd":
        return "__errno"
    }
    return "__error"
}

func errnoPtr() *int32 {
    errnoOnce.Do(func() {
        addr, err := purego.Dlsym(purego.RTLD_DEFAULT, errnoAccessor())
        if err != nil || addr == 0 {
            return
        }
        purego.RegisterFunc(&errnoLocation, addr)
    })
    if errnoLocation == nil {
        return nil
    }
    return (*int32)(errnoLocation())
}

func clearErrno() {
    if p := errnoPtr(); p != nil {
        *p = 0
    }
}

func readErrno() int {
    if p := errnoPtr(); p != nil {
        return int(*p)
    }
    return 0
}
