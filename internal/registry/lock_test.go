package registry

import (
	"testing"
	"time"
)

func TestGuardLoadSaveCycle(t *testing.T) {
	dir := t.TempDir()

	guard, err := Locked(dir)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	defer guard.Close()

	reg, err := guard.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	reg.Add("/Users/dev/project/.venv", time.Now())
	if err := guard.Save(reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := guard.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := LockedShared(dir)
	if err != nil {
		t.Fatalf("LockedShared: %v", err)
	}
	defer reader.Close()

	loaded, err := reader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Contains("/Users/dev/project/.venv") {
		t.Error("saved entry not visible under shared lock")
	}
}

func TestExclusiveLockBlocksSecondHolder(t *testing.T) {
	dir := t.TempDir()

	guard, err := Locked(dir)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if guard.Unlocked() {
		t.Skip("platform has no advisory locking")
	}

	acquired := make(chan struct{})
	go func() {
		second, err := Locked(dir)
		if err == nil {
			_ = second.Close()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second exclusive lock acquired while first still held")
	case <-time.After(100 * time.Millisecond):
		// Still blocked, as expected.
	}

	_ = guard.Close()

	select {
	case <-acquired:
		// Released lock let the waiter through.
	case <-time.After(2 * time.Second):
		t.Fatal("second lock never acquired after release")
	}
}

func TestSharedLocksCoexist(t *testing.T) {
	dir := t.TempDir()

	a, err := LockedShared(dir)
	if err != nil {
		t.Fatalf("LockedShared: %v", err)
	}
	defer a.Close()
	if a.Unlocked() {
		t.Skip("platform has no advisory locking")
	}

	done := make(chan error, 1)
	go func() {
		b, err := LockedShared(dir)
		if err == nil {
			_ = b.Close()
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second shared lock: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second shared lock blocked")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	guard, err := Locked(t.TempDir())
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	if err := guard.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := guard.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
