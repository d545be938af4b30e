//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package file

import "os"

// Advisory locking is unavailable; exclusivity is the operator's concern.
func lockFile(*os.File) error { return nil }

func unlockFile(*os.File) error { return nil }
