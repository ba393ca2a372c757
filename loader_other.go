//go:build !((darwin || freebsd || linux || netbsd) && !android) && !windows

package zaffi

import (
    "fmt"
    "runtime"
)

type noLoader struct{}

func newLoader(LoadMode) loader {
    return noLoader{}
}

func (noLoader) Open(path string, _ LoadMode) (uintptr, error) {
    return 0, fmt.Errorf("dynamic loading is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}

func (noLoader) Symbol(uintptr, string) (uintptr, error) {
    return 0, fmt.Errorf("dynamic loading is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}
