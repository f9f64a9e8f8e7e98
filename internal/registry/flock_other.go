//go:build !unix

package registry

import (
	"errors"
	"os"
)

var errFlockUnsupported = errors.New("flock not supported on this platform")

func flockExclusive(f *os.File) error { return errFlockUnsupported }

func flockShared(f *os.File) error { return errFlockUnsupported }

func flockUnlock(f *os.File) error { return nil }
