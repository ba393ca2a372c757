//go:build windows

package zaffi

import (
    "path/filepath"

    "golang.org/x/sys/windows"
)

type dllLoader struct{}

func newLoader(LoadMode) loader {
    return dllLoader{}
}

// Open loads a DLL. Absolute paths resolve their own dependencies from the
// DLL's directory. Load modes have no Windows equivalent and are ignored.
func (dllLoader) Open(path string, _ LoadMode) (uintptr, error) {
    var flags uintptr
    if filepath.IsAbs(path) {
        flags = windows.LOAD_WITH_ALTERED_SEARCH_PATH
    }
    h, err := windows.LoadLibraryEx(path, 0, flags)
    if err != nil {
        return 0, err
    }
    return uintptr(h), nil
}

func (dllLoader) Symbol(lib uintptr, name string) (uintptr, error) {
    return windows.GetProcAddress(windows.Handle(lib), name)
}
