//go:build windows || noffi || !cgo
// +build windows noffi !cgo

package zaffi

import "fmt"

// libffi is only reachable through cgo on unix; this build uses purego alone.

func initLibFFI() bool {
    return false
}

func newLibffiCaller() (caller, error) {
    return nil, fmt.Errorf("libffi backend disabled in this build (use a cgo-enabled unix build)")
}
