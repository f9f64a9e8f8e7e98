// Package disksize measures how much disk space the managed exclusions
// cover. Sizes are best-effort: unreadable entries are skipped rather than
// surfaced, since the result only feeds the savings summary.
package disksize

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirSize returns the total size in bytes of all regular files under path.
// Symlinks are never followed. A missing or unreadable path counts as zero.
func DirSize(path string) uint64 {
	var total uint64
	stack := []string{path}

	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.Type()&os.ModeSymlink != 0 {
				continue
			}
			if entry.IsDir() {
				stack = append(stack, filepath.Join(dir, entry.Name()))
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if size := info.Size(); size > 0 {
				total += uint64(size)
			}
		}
	}

	return total
}

// TotalSize sums DirSize over all paths.
func TotalSize(paths []string) uint64 {
	var total uint64
	for _, p := range paths {
		total += DirSize(p)
	}
	return total
}

const (
	kb = 1 << 10
	mb = 1 << 20
	gb = 1 << 30
)

// Format renders bytes as a human-readable size with one decimal.
// Everything below a megabyte is shown in KB, matching the summary output.
func Format(bytes uint64) string {
	v := float64(bytes)
	switch {
	case v >= gb:
		return fmt.Sprintf("%.1f GB", v/gb)
	case v >= mb:
		return fmt.Sprintf("%.1f MB", v/mb)
	default:
		return fmt.Sprintf("%.1f KB", v/kb)
	}
}
