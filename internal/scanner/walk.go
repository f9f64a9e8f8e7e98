package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adeonir/veiled/internal/catalog"
)

// walkResult is what one traversal of a search root produces: artifact
// directories matched by name, and git repository roots found on the way.
type walkResult struct {
	candidates []string
	repos      []string
}

// walkRoot traverses root, yielding builtin-named directories and
// collecting git repository roots. A matched artifact directory is yielded
// and never descended into; its contents are moot once it is excluded.
// Ignored paths are pruned wherever the walk meets them. Unreadable
// directories are skipped silently.
func walkRoot(root string, ignored map[string]bool) walkResult {
	var res walkResult

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		name := d.Name()
		if name == ".git" {
			// Repo marker: a .git file (worktree) counts too, but only a
			// directory needs pruning from the walk.
			res.repos = append(res.repos, filepath.Dir(path))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			return nil
		}
		if ignored[path] {
			return filepath.SkipDir
		}
		if path != root && catalog.IsBuiltin(name) {
			res.candidates = append(res.candidates, path)
			return filepath.SkipDir
		}
		return nil
	})

	return res
}

// ignoreSet resolves ignore paths into a lookup set keyed by clean
// absolute path.
func ignoreSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		}
	}
	return set
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
