package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adeonir/veiled/internal/config"
	"github.com/adeonir/veiled/internal/tmutil"
)

// fakeApplier is an in-memory host mechanism. It mimics tmutil's contract:
// idempotent set/clear, NotFound for missing paths, injectable failures.
type fakeApplier struct {
	excluded     map[string]bool
	failWith     map[string]error
	excludeCalls map[string]int
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{
		excluded:     make(map[string]bool),
		failWith:     make(map[string]error),
		excludeCalls: make(map[string]int),
	}
}

func (f *fakeApplier) IsExcluded(path string) (bool, error) {
	return f.excluded[path], nil
}

func (f *fakeApplier) Exclude(path string) error {
	if err := f.failWith[path]; err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return tmutil.ErrNotFound
	}
	f.excludeCalls[path]++
	f.excluded[path] = true
	return nil
}

func (f *fakeApplier) Unexclude(path string) error {
	if err := f.failWith[path]; err != nil {
		return err
	}
	delete(f.excluded, path)
	return nil
}

type fixture struct {
	engine  *Engine
	applier *fakeApplier
	cfg     *config.Config
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	stateDir := t.TempDir()
	configPath := filepath.Join(t.TempDir(), "config.json")

	cfg := &config.Config{
		SearchPaths:     []string{root},
		ExtraExclusions: []string{},
		IgnorePaths:     []string{},
	}
	applier := newFakeApplier()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		engine:  New(cfg, configPath, stateDir, applier, log),
		applier: applier,
		cfg:     cfg,
		root:    root,
	}
}

func (f *fixture) mkdir(t *testing.T, rel string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExcludesAndRegistersCandidates(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "myapp/node_modules")
	target := f.mkdir(t, "api/target")
	f.mkdir(t, "myapp/src")

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.New != 2 {
		t.Errorf("New = %d, want 2", sum.New)
	}
	if !f.applier.excluded[nm] || !f.applier.excluded[target] {
		t.Error("host marks missing after run")
	}

	list, err := f.engine.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("registry has %d entries, want 2", len(list))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "myapp/node_modules")

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if sum.New != 0 {
		t.Errorf("second run New = %d, want 0", sum.New)
	}
	if sum.AlreadyManaged != 1 {
		t.Errorf("AlreadyManaged = %d, want 1", sum.AlreadyManaged)
	}
	if f.applier.excludeCalls[nm] != 1 {
		t.Errorf("Exclude called %d times for %s, want 1", f.applier.excludeCalls[nm], nm)
	}
}

func TestRunNeverRegistersChildOfExcludedDir(t *testing.T) {
	f := newFixture(t)
	f.mkdir(t, "app/node_modules/pkg/dist")

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	list, err := f.engine.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Path != filepath.Join(f.root, "app", "node_modules") {
		t.Errorf("unexpected registry entries: %+v", list)
	}
}

func TestRunReappliesDriftedExclusion(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "myapp/node_modules")

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// External actor clears the host mark behind our back.
	delete(f.applier.excluded, nm)

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if sum.Reapplied != 1 {
		t.Errorf("Reapplied = %d, want 1", sum.Reapplied)
	}
	if sum.New != 0 {
		t.Errorf("New = %d, want 0", sum.New)
	}
	if !f.applier.excluded[nm] {
		t.Error("host mark not restored")
	}

	list, _ := f.engine.List()
	if len(list) != 1 {
		t.Errorf("registry has %d entries, want single preserved entry", len(list))
	}
}

func TestRunAdoptsAlreadyExcludedCandidate(t *testing.T) {
	// Crash window: a previous run applied the host mark but died before
	// saving the registry. The next run must register the path without a
	// second exclusion call and without duplicating anything.
	f := newFixture(t)
	nm := f.mkdir(t, "myapp/node_modules")
	f.applier.excluded[nm] = true

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.New != 1 {
		t.Errorf("New = %d, want 1", sum.New)
	}
	if f.applier.excludeCalls[nm] != 0 {
		t.Errorf("Exclude called %d times, want 0 (already marked)", f.applier.excludeCalls[nm])
	}

	list, _ := f.engine.List()
	if len(list) != 1 {
		t.Errorf("registry has %d entries, want 1", len(list))
	}
}

func TestRunPrunesStaleEntries(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "myapp/node_modules")

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(f.root, "myapp")); err != nil {
		t.Fatal(err)
	}

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if sum.PrunedStale != 1 {
		t.Errorf("PrunedStale = %d, want 1", sum.PrunedStale)
	}
	list, _ := f.engine.List()
	for _, e := range list {
		if e.Path == nm {
			t.Error("stale entry survived the run")
		}
	}
}

func TestRunSkipsFailingPathAndContinues(t *testing.T) {
	f := newFixture(t)
	bad := f.mkdir(t, "bad/node_modules")
	good := f.mkdir(t, "good/target")
	f.applier.failWith[bad] = &tmutil.ApplierError{Op: "addexclusion", Path: bad, Stderr: "boom"}

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Errors != 1 {
		t.Errorf("Errors = %d, want 1", sum.Errors)
	}
	if sum.New != 1 || !f.applier.excluded[good] {
		t.Error("healthy path was not excluded despite sibling failure")
	}

	list, _ := f.engine.List()
	if len(list) != 1 {
		t.Errorf("failed path must not be registered, got %d entries", len(list))
	}
}

func TestRunFlagsPermissionDeniedOnce(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "app/node_modules")
	f.applier.failWith[nm] = tmutil.ErrPermissionDenied

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !sum.PermissionDenied {
		t.Error("PermissionDenied flag not set")
	}
}

func TestRunIncludesConfiguredExtraExclusions(t *testing.T) {
	f := newFixture(t)
	custom := t.TempDir()
	f.cfg.ExtraExclusions = []string{custom}

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.New != 1 || !f.applier.excluded[custom] {
		t.Error("extra exclusion from config was not applied")
	}
}

func TestRunStampsLastChecked(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	f.engine.now = func() time.Time { return fixed }

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	status, err := f.engine.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.LastChecked == nil || !status.LastChecked.Equal(fixed) {
		t.Errorf("LastChecked = %v, want %v", status.LastChecked, fixed)
	}
}

func TestRunRecoversFromCorruptRegistry(t *testing.T) {
	f := newFixture(t)
	f.mkdir(t, "app/node_modules")

	if err := os.WriteFile(filepath.Join(f.engine.stateDir, "registry.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := f.engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.New != 1 {
		t.Errorf("New = %d, want 1 after corruption fallback", sum.New)
	}

	// The save must have replaced the corrupt file with valid JSON.
	list, err := f.engine.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("registry has %d entries, want 1", len(list))
	}
}

func TestAddRegistersExistingDirectory(t *testing.T) {
	f := newFixture(t)
	custom := t.TempDir()

	canonical, err := f.engine.Add(custom)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !f.applier.excluded[canonical] {
		t.Error("host mark not applied")
	}
	list, _ := f.engine.List()
	if len(list) != 1 || list[0].Path != canonical {
		t.Errorf("unexpected registry entries: %+v", list)
	}
	if !contains(f.cfg.ExtraExclusions, canonical) {
		t.Error("path not persisted to config extras")
	}
}

func TestAddMissingPathFailsWithNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Add("/tmp/definitely-missing-veiled-test")
	if !errors.Is(err, tmutil.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, _ := f.engine.List()
	if len(list) != 0 {
		t.Error("failed add must register nothing")
	}
}

func TestRemoveReleasesManagedPath(t *testing.T) {
	f := newFixture(t)
	custom := t.TempDir()
	canonical, err := f.engine.Add(custom)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := f.engine.Remove(custom); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if f.applier.excluded[canonical] {
		t.Error("host mark still set")
	}
	list, _ := f.engine.List()
	if len(list) != 0 {
		t.Error("registry entry still present")
	}
	if contains(f.cfg.ExtraExclusions, canonical) {
		t.Error("config extra still present")
	}
}

func TestRemoveUnmanagedPathFails(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	_, err := f.engine.Remove(dir)
	if !errors.Is(err, ErrNotManaged) {
		t.Fatalf("expected ErrNotManaged, got %v", err)
	}
}

func TestResetClearsEverything(t *testing.T) {
	f := newFixture(t)
	nm := f.mkdir(t, "a/node_modules")
	target := f.mkdir(t, "b/target")

	if _, err := f.engine.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	removed, err := f.engine.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if f.applier.excluded[nm] || f.applier.excluded[target] {
		t.Error("host marks survive reset")
	}

	list, _ := f.engine.List()
	if len(list) != 0 {
		t.Errorf("registry has %d entries after reset, want 0", len(list))
	}
}
