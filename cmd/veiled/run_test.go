package main

import (
	"testing"
	"time"

	"github.com/adeonir/veiled/internal/registry"
)

func TestUpdateDueFirstCheck(t *testing.T) {
	dir := t.TempDir()

	due, err := updateDue(dir, time.Now())
	if err != nil {
		t.Fatalf("updateDue: %v", err)
	}
	if !due {
		t.Error("first check must be due")
	}
}

func TestUpdateDueRespectsCooldown(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	if _, err := updateDue(dir, now); err != nil {
		t.Fatalf("updateDue: %v", err)
	}

	due, err := updateDue(dir, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("updateDue: %v", err)
	}
	if due {
		t.Error("check inside the cooldown must not be due")
	}

	due, err = updateDue(dir, now.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("updateDue: %v", err)
	}
	if !due {
		t.Error("check after the cooldown must be due")
	}
}

func TestUpdateDuePreservesRegistryContents(t *testing.T) {
	dir := t.TempDir()

	guard, err := registry.Locked(dir)
	if err != nil {
		t.Fatalf("Locked: %v", err)
	}
	reg := &registry.Registry{}
	reg.Add("/Users/dev/app/node_modules", time.Now())
	if err := guard.Save(reg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_ = guard.Close()

	if _, err := updateDue(dir, time.Now()); err != nil {
		t.Fatalf("updateDue: %v", err)
	}

	reader, err := registry.LockedShared(dir)
	if err != nil {
		t.Fatalf("LockedShared: %v", err)
	}
	defer reader.Close()
	loaded, err := reader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Contains("/Users/dev/app/node_modules") {
		t.Error("cooldown stamp wiped registry entries")
	}
	if loaded.LastUpdateCheck == 0 {
		t.Error("cooldown stamp not persisted")
	}
}
