//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package filelock

import "os"

// Platforms without flock get no cross-process exclusion; the lock file is
// still created so callers behave the same.
func tryLock(_ *os.File) (bool, error) { return true, nil }

func unlock(_ *os.File) error { return nil }
