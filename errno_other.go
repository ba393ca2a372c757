//go:build !unix && !windows

package zaffi

import "fmt"

// ErrnoText describes an errno value captured by a use_errno library.
func ErrnoText(n int) string {
    return fmt.Sprintf("errno %d", n)
}
