//go:build (darwin || freebsd || linux || netbsd) && !android

package zaffi

import (
    "github.com/ebitengine/purego"
)

type dlLoader struct {
    defaultMode LoadMode
}

func newLoader(defaultMode LoadMode) loader {
    return dlLoader{defaultMode: defaultMode}
}

// Open loads a shared library with dlopen.
func (l dlLoader) Open(path string, mode LoadMode) (uintptr, error) {
    if mode == 0 {
        mode = l.defaultMode
    }
    return purego.Dlopen(path, dlopenFlags(mode))
}

// Symbol retrieves a symbol from a loaded library.
func (l dlLoader) Symbol(lib uintptr, name string) (uintptr, error) {
    return purego.Dlsym(lib, name)
}

func dlopenFlags(mode LoadMode) int {
    flags := purego.RTLD_LAZY
    if mode&ModeNow != 0 {
        flags = purego.RTLD_NOW
    }
    if mode&ModeGlobal != 0 {
        flags |= purego.RTLD_GLOBAL
    } else {
        flags |= purego.RTLD_LOCAL
    }
    return flags
}
