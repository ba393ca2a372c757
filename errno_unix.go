//go:build unix

package zaffi

import "golang.org/x/sys/unix"

// ErrnoText describes an errno value captured by a use_errno library.
func ErrnoText(n int) string {
    return unix.Errno(n).Error()
}
