//go:build unix

package registry

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// errFlockUnsupported is never returned on unix; see flock_other.go.
var errFlockUnsupported = errors.New("flock not supported on this platform")

// flockExclusive acquires an exclusive blocking lock on the file.
// It waits until the lock is available.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

// flockShared acquires a shared blocking lock on the file. Multiple
// processes can hold shared locks concurrently.
func flockShared(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_SH)
}

// flockUnlock releases a lock on the file.
func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
