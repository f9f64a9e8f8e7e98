// Package engine ties the scanner, the tmutil applier, and the registry
// into the reconciliation pipeline behind every mutating command. One rule
// governs it: re-running with an unchanged filesystem is a no-op, and a
// crash at any point leaves the registry either at its previous state or
// its new one, never in between.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adeonir/veiled/internal/config"
	"github.com/adeonir/veiled/internal/disksize"
	"github.com/adeonir/veiled/internal/registry"
	"github.com/adeonir/veiled/internal/scanner"
	"github.com/adeonir/veiled/internal/tmutil"
)

// ErrNotManaged means a removal target has no registry entry.
var ErrNotManaged = errors.New("path is not managed by veiled")

// Engine reconciles desired exclusions against Time Machine state.
type Engine struct {
	cfg        *config.Config
	configPath string
	stateDir   string
	applier    tmutil.Applier
	log        *slog.Logger
	now        func() time.Time
}

// New builds an engine. stateDir holds the registry; configPath is where
// config mutations (add/remove/reset) are persisted.
func New(cfg *config.Config, configPath, stateDir string, applier tmutil.Applier, log *slog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		configPath: configPath,
		stateDir:   stateDir,
		applier:    applier,
		log:        log,
		now:        time.Now,
	}
}

// Summary reports what one Run changed.
type Summary struct {
	New              int // paths newly excluded and registered
	Reapplied        int // managed paths whose host mark had drifted and was restored
	AlreadyManaged   int // candidates that were registry hits
	PrunedStale      int // registry entries whose path vanished
	Errors           int // per-path failures, skipped without registering
	PermissionDenied bool
	TotalManaged     int
	SavedBytes       uint64
}

// Run executes the full reconciliation pass. Per-path failures are
// diagnostics, never fatal; only registry I/O or lock failure returns an
// error.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	guard, err := registry.Locked(e.stateDir)
	if err != nil {
		return nil, err
	}
	defer guard.Close()
	e.warnUnlocked(guard)

	reg := e.loadOrEmpty(guard)
	var sum Summary

	// Eager pruning: entries whose path vanished are dropped before
	// anything else, so the drift check below only touches live paths.
	for _, path := range reg.Paths() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			e.log.Debug("pruning stale entry", "path", path)
			reg.Remove(path)
			sum.PrunedStale++
		}
	}

	// Drift check: a managed path whose host mark was cleared out-of-band
	// gets re-applied; the single registry entry stays.
	for _, path := range reg.Paths() {
		excluded, err := e.applier.IsExcluded(path)
		if err != nil {
			e.perPathFailure(&sum, "checking exclusion", path, err)
			continue
		}
		if excluded {
			continue
		}
		switch err := e.applier.Exclude(path); {
		case err == nil:
			sum.Reapplied++
		case errors.Is(err, tmutil.ErrNotFound):
			reg.Remove(path)
			sum.PrunedStale++
		default:
			e.perPathFailure(&sum, "re-applying exclusion", path, err)
		}
	}

	// The candidate set is fully aggregated and deduplicated before any
	// exclusion is applied.
	candidates := scanner.Scan(ctx, scanner.Options{
		SearchPaths: e.cfg.SearchPaths,
		IgnorePaths: e.cfg.IgnorePaths,
		ExtraPaths:  e.cfg.ExtraExclusions,
	}, e.log)

	for _, cand := range candidates {
		if reg.Contains(cand) {
			// The drift loop above already confirmed the host mark for
			// every entry, so no second host call is needed here.
			sum.AlreadyManaged++
			continue
		}

		excluded, err := e.applier.IsExcluded(cand)
		if err != nil {
			e.perPathFailure(&sum, "checking exclusion", cand, err)
			continue
		}
		if excluded {
			// Marked by an earlier crashed run or by the user directly:
			// adopt it without touching the host again.
			reg.Add(cand, e.now())
			sum.New++
			continue
		}

		switch err := e.applier.Exclude(cand); {
		case err == nil:
			reg.Add(cand, e.now())
			sum.New++
		case errors.Is(err, tmutil.ErrNotFound):
			// Vanished between scan and apply; drop silently.
		default:
			e.perPathFailure(&sum, "applying exclusion", cand, err)
		}
	}

	if sum.New > 0 || sum.PrunedStale > 0 {
		reg.SavedBytes = disksize.TotalSize(reg.Paths())
	}
	now := e.now()
	reg.LastChecked = &now

	if err := guard.Save(reg); err != nil {
		return nil, err
	}

	sum.TotalManaged = len(reg.Exclusions)
	sum.SavedBytes = reg.SavedBytes
	return &sum, nil
}

// Add excludes one user-chosen directory and registers it. The path is
// recorded in the config so later runs keep it even if it would never be
// discovered by scanning. Returns the canonical path.
func (e *Engine) Add(path string) (string, error) {
	canonical, err := canonicalDir(path)
	if err != nil {
		return "", err
	}

	if !contains(e.cfg.ExtraExclusions, canonical) {
		e.cfg.ExtraExclusions = append(e.cfg.ExtraExclusions, canonical)
		if err := config.Save(e.cfg, e.configPath); err != nil {
			return "", err
		}
	}

	if err := e.applier.Exclude(canonical); err != nil {
		return "", err
	}

	guard, err := registry.Locked(e.stateDir)
	if err != nil {
		return "", err
	}
	defer guard.Close()
	e.warnUnlocked(guard)

	reg := e.loadOrEmpty(guard)
	reg.Add(canonical, e.now())
	if err := guard.Save(reg); err != nil {
		return "", err
	}
	return canonical, nil
}

// Remove releases one managed path: host mark cleared, registry entry and
// any config extra dropped. A path that vanished from disk is still
// deregistered.
func (e *Engine) Remove(path string) (string, error) {
	canonical, err := canonicalDir(path)
	if err != nil {
		return "", err
	}

	guard, err := registry.Locked(e.stateDir)
	if err != nil {
		return "", err
	}
	defer guard.Close()
	e.warnUnlocked(guard)

	reg := e.loadOrEmpty(guard)
	if !reg.Contains(canonical) {
		return "", fmt.Errorf("%s: %w", canonical, ErrNotManaged)
	}

	if err := e.applier.Unexclude(canonical); err != nil && !errors.Is(err, tmutil.ErrNotFound) {
		return "", err
	}

	reg.Remove(canonical)
	if err := guard.Save(reg); err != nil {
		return "", err
	}

	if idx := index(e.cfg.ExtraExclusions, canonical); idx >= 0 {
		e.cfg.ExtraExclusions = append(e.cfg.ExtraExclusions[:idx], e.cfg.ExtraExclusions[idx+1:]...)
		if err := config.Save(e.cfg, e.configPath); err != nil {
			return "", err
		}
	}
	return canonical, nil
}

// Reset releases every managed exclusion. Per-path failures are logged and
// the reset keeps going; the registry always ends up empty. Returns how
// many host marks were cleared.
func (e *Engine) Reset() (int, error) {
	guard, err := registry.Locked(e.stateDir)
	if err != nil {
		return 0, err
	}
	defer guard.Close()
	e.warnUnlocked(guard)

	reg := e.loadOrEmpty(guard)

	removed := 0
	for _, path := range reg.Paths() {
		if err := e.applier.Unexclude(path); err != nil && !errors.Is(err, tmutil.ErrNotFound) {
			e.log.Warn("releasing exclusion failed", "path", path, "error", err)
			continue
		}
		removed++
	}

	if err := guard.Save(&registry.Registry{}); err != nil {
		return removed, err
	}

	if len(e.cfg.ExtraExclusions) > 0 {
		e.cfg.ExtraExclusions = nil
		if err := config.Save(e.cfg, e.configPath); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// List returns the managed exclusions under a shared lock. Read-only:
// stale entries are reported as-is and pruned by the next Run.
func (e *Engine) List() ([]registry.Exclusion, error) {
	reg, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return reg.Exclusions, nil
}

// Status returns the current registry snapshot under a shared lock.
func (e *Engine) Status() (*registry.Registry, error) {
	return e.snapshot()
}

func (e *Engine) snapshot() (*registry.Registry, error) {
	guard, err := registry.LockedShared(e.stateDir)
	if err != nil {
		return nil, err
	}
	defer guard.Close()
	return e.loadOrEmpty(guard), nil
}

// loadOrEmpty loads under the guard, downgrading corruption to a warning.
// The empty registry it falls back to is rewritten by the next save.
func (e *Engine) loadOrEmpty(guard *registry.Guard) *registry.Registry {
	reg, err := guard.Load()
	if err != nil {
		if errors.Is(err, registry.ErrCorrupt) {
			e.log.Warn("registry file unreadable, starting from empty", "error", err)
			return reg
		}
		e.log.Warn("loading registry failed, starting from empty", "error", err)
		return &registry.Registry{}
	}
	return reg
}

func (e *Engine) warnUnlocked(guard *registry.Guard) {
	if guard.Unlocked() {
		e.log.Warn("advisory locking unavailable, proceeding unlocked")
	}
}

func (e *Engine) perPathFailure(sum *Summary, op, path string, err error) {
	if errors.Is(err, tmutil.ErrPermissionDenied) {
		sum.PermissionDenied = true
	}
	e.log.Debug(op+" failed", "path", path, "error", err)
	sum.Errors++
}

// canonicalDir expands, absolutizes, and resolves path, requiring an
// existing directory.
func canonicalDir(path string) (string, error) {
	expanded := config.ExpandTilde(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%s: %w", abs, tmutil.ErrNotFound)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("%s: %w", resolved, tmutil.ErrNotFound)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s: not a directory", resolved)
	}
	return resolved, nil
}

func contains(list []string, s string) bool {
	return index(list, s) >= 0
}

func index(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
