package registry

import (
	"fmt"
	"os"
	"path/filepath"
)

// The lock lives in its own file because save() replaces the registry file
// by rename: an flock taken on registry.json would follow the old inode and
// stop excluding anyone after the first save.
const lockName = "registry.lock"

// Guard holds the advisory lock on a registry directory for the duration of
// one load-mutate-save cycle. Release it with Close on every exit path.
type Guard struct {
	dir      string
	lockFile *os.File
	unlocked bool
}

// Locked blocks until the exclusive lock on the registry in dir is held.
// Mutating commands block rather than fail on contention; registry cycles
// are fast enough that no timeout is applied.
func Locked(dir string) (*Guard, error) {
	return acquire(dir, flockExclusive)
}

// LockedShared takes the shared lock for read-only commands. Concurrent
// readers coexist; a writer holding the exclusive lock blocks them.
func LockedShared(dir string) (*Guard, error) {
	return acquire(dir, flockShared)
}

func acquire(dir string, lock func(*os.File) error) (*Guard, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, lockName), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := lock(f); err != nil {
		if err == errFlockUnsupported {
			// No advisory locking on this platform: proceed unlocked and let
			// the caller warn once.
			return &Guard{dir: dir, lockFile: f, unlocked: true}, nil
		}
		_ = f.Close()
		return nil, fmt.Errorf("locking registry: %w", err)
	}

	return &Guard{dir: dir, lockFile: f}, nil
}

// Unlocked reports whether the guard is operating without a real lock
// because the platform cannot provide one.
func (g *Guard) Unlocked() bool {
	return g.unlocked
}

// Load reads the registry under the guard. On ErrCorrupt the returned
// registry is usable (empty) and the error is advisory.
func (g *Guard) Load() (*Registry, error) {
	return load(filepath.Join(g.dir, fileName))
}

// Save persists the registry atomically under the guard.
func (g *Guard) Save(reg *Registry) error {
	return save(filepath.Join(g.dir, fileName), reg)
}

// Close releases the lock and the underlying file.
func (g *Guard) Close() error {
	if g.lockFile == nil {
		return nil
	}
	if !g.unlocked {
		_ = flockUnlock(g.lockFile)
	}
	err := g.lockFile.Close()
	g.lockFile = nil
	return err
}
