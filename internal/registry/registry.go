// Package registry persists the set of paths veiled manages, along with
// accumulated savings stats. The file lives at ~/.config/veiled/registry.json
// and is the only state shared across process invocations, so every
// load-mutate-save cycle happens under the advisory lock in lock.go and
// every save is an atomic replace.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const fileName = "registry.json"

// ErrCorrupt marks a registry file that exists but cannot be parsed.
// Callers fall back to an empty registry and surface a warning; the next
// save rewrites the file.
var ErrCorrupt = errors.New("registry file is corrupt")

// Exclusion is one path veiled has excluded and tracks. At most one entry
// exists per absolute path.
type Exclusion struct {
	Path      string    `json:"path"`
	AppliedAt time.Time `json:"applied_at"`
}

// Registry is the persisted registry document.
type Registry struct {
	Exclusions  []Exclusion `json:"exclusions"`
	SavedBytes  uint64      `json:"saved_bytes"`
	LastChecked *time.Time  `json:"last_checked,omitempty"`

	// LastUpdateCheck is the unix timestamp of the last self-update probe,
	// used to keep auto-update on a 24h cooldown.
	LastUpdateCheck int64 `json:"last_update_check,omitempty"`
}

// DefaultDir returns the directory holding the registry and its lock file.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".config", "veiled"), nil
}

// Contains reports whether path has an entry.
func (r *Registry) Contains(path string) bool {
	for _, e := range r.Exclusions {
		if e.Path == path {
			return true
		}
	}
	return false
}

// Add records path as managed. Adding an already present path is a no-op,
// preserving the original applied_at. Reports whether an entry was created.
func (r *Registry) Add(path string, appliedAt time.Time) bool {
	if r.Contains(path) {
		return false
	}
	r.Exclusions = append(r.Exclusions, Exclusion{Path: path, AppliedAt: appliedAt})
	return true
}

// Remove drops the entry for path. Reports whether an entry existed.
func (r *Registry) Remove(path string) bool {
	for i, e := range r.Exclusions {
		if e.Path == path {
			r.Exclusions = append(r.Exclusions[:i], r.Exclusions[i+1:]...)
			return true
		}
	}
	return false
}

// Paths returns the managed paths in registry order.
func (r *Registry) Paths() []string {
	paths := make([]string, len(r.Exclusions))
	for i, e := range r.Exclusions {
		paths[i] = e.Path
	}
	return paths
}

// load reads the registry document at path. Missing file yields an empty
// registry; unreadable JSON yields an empty registry plus ErrCorrupt so the
// caller can warn and continue.
func load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return &Registry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &reg, nil
}

// save writes the registry atomically: temp file in the same directory,
// then rename, so a crash mid-write never leaves a torn file behind.
func save(path string, reg *Registry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	tmp, err := os.CreateTemp(dir, fileName+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp registry: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp registry: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
