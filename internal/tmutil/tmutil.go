// Package tmutil adapts the Time Machine exclusion attribute behind the
// tmutil(8) command. Each call shells out once; parsing of tmutil output is
// kept in standalone functions so it can be tested against captured samples
// without a macOS host.
package tmutil

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrNotFound means the target path no longer exists on disk.
	ErrNotFound = errors.New("path does not exist")

	// ErrPermissionDenied means tmutil refused the operation, typically
	// because the binary lacks Full Disk Access.
	ErrPermissionDenied = errors.New("tmutil: operation not permitted")
)

// ApplierError is an unexpected tmutil failure for a single path. Callers
// skip the path and keep going.
type ApplierError struct {
	Op     string
	Path   string
	Stderr string
}

func (e *ApplierError) Error() string {
	return fmt.Sprintf("tmutil %s %s: %s", e.Op, e.Path, e.Stderr)
}

// Applier is the per-path exclusion attribute interface consumed by the
// engine. Implementations must be safe for sequential use; the engine never
// issues concurrent calls.
type Applier interface {
	IsExcluded(path string) (bool, error)
	Exclude(path string) error
	Unexclude(path string) error
}

// Tmutil is the real Applier backed by the tmutil binary.
type Tmutil struct{}

var _ Applier = Tmutil{}

// CheckAccess probes whether tmutil queries work at all. It is used to
// surface the Full Disk Access hint before a run starts failing per-path.
func CheckAccess() error {
	out, err := exec.Command("tmutil", "isexcluded", "/").CombinedOutput()
	if err != nil {
		return classify("isexcluded", "/", string(out), err)
	}
	return nil
}

// IsExcluded reports whether Time Machine currently excludes path.
// It never mutates state. A nonexistent path reports false without error,
// matching tmutil's own behavior.
func (Tmutil) IsExcluded(path string) (bool, error) {
	out, err := exec.Command("tmutil", "isexcluded", path).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, classify("isexcluded", path, string(exitErr.Stderr), err)
		}
		return false, fmt.Errorf("running tmutil: %w", err)
	}
	return parseIsExcluded(string(out)), nil
}

// Exclude turns on the exclusion mark for path. Excluding an already
// excluded path succeeds; tmutil addexclusion is itself idempotent.
func (t Tmutil) Exclude(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	return run("addexclusion", path)
}

// Unexclude clears the exclusion mark for path. Unexcluding a path that is
// not excluded succeeds silently.
func (t Tmutil) Unexclude(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	excluded, err := t.IsExcluded(path)
	if err != nil {
		return err
	}
	if !excluded {
		return nil
	}
	return run("removeexclusion", path)
}

func run(op, path string) error {
	out, err := exec.Command("tmutil", op, path).CombinedOutput()
	if err != nil {
		return classify(op, path, string(out), err)
	}
	return nil
}

// classify maps a failed tmutil invocation onto the error taxonomy.
func classify(op, path, stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if isPermissionOutput(msg) {
		return fmt.Errorf("%w (grant Full Disk Access to the terminal running veiled)", ErrPermissionDenied)
	}
	if msg == "" {
		msg = err.Error()
	}
	return &ApplierError{Op: op, Path: path, Stderr: msg}
}

// tmutil prints `[Excluded] /path` or `[NotExcluded] /path`.
func parseIsExcluded(output string) bool {
	return strings.Contains(output, "[Excluded]") && !strings.Contains(output, "[NotExcluded]")
}

// isPermissionOutput matches the stderr tmutil emits when the calling
// process lacks Full Disk Access.
func isPermissionOutput(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "operation not permitted") ||
		strings.Contains(lower, "not privileged")
}
