//go:build !((darwin || freebsd || linux || netbsd || windows) && (amd64 || arm64) && !android)

package zaffi

import (
    "fmt"
    "runtime"
)

func newPuregoCaller() (caller, error) {
    return nil, fmt.Errorf("purego backend is not available on %s/%s", runtime.GOOS, runtime.GOARCH)
}
