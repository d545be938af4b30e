//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package logger

// isTerminal always reports false; colors are only enabled on unix terminals.
func isTerminal(uintptr) bool {
	return false
}
