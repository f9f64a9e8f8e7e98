// Package scanner discovers exclusion candidates under the configured
// search paths. Two strategies feed one result set: git repositories are
// asked for their ignored directories, and every tree is walked for builtin
// artifact names. The walk descends into repositories too, catching
// artifact directories an incomplete .gitignore misses.
package scanner

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds the per-repository git invocations. Fixed,
// independent of how many repositories the walk finds.
const defaultConcurrency = 8

// Options configure one scan.
type Options struct {
	SearchPaths []string
	IgnorePaths []string

	// ExtraPaths are user-declared exclusion paths merged into the result
	// set; they go through the same dedup as discovered candidates.
	ExtraPaths  []string
	Concurrency int
}

func (o Options) concurrency() int {
	if o.Concurrency > 0 {
		return o.Concurrency
	}
	return defaultConcurrency
}

// Scan walks the search paths and returns the deduplicated candidate set,
// sorted. A root that fails, whether the directory is missing or git is
// unavailable, is logged and skipped; it never aborts the scan.
func Scan(ctx context.Context, opts Options, log *slog.Logger) []string {
	ignored := ignoreSet(opts.IgnorePaths)

	var candidates []string
	var repos []string
	for _, root := range opts.SearchPaths {
		abs, err := filepath.Abs(root)
		if err != nil {
			log.Debug("skipping search path", "path", root, "error", err)
			continue
		}
		if !isDir(abs) {
			log.Debug("search path is not a directory", "path", abs)
			continue
		}
		res := walkRoot(abs, ignored)
		candidates = append(candidates, res.candidates...)
		repos = append(repos, res.repos...)
	}

	// Fan the git invocations out with bounded concurrency. Each slot of
	// results belongs to one repository, so the workers share nothing;
	// aggregation happens only after Wait.
	results := make([][]string, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())
	for i, repo := range repos {
		i, repo := i, repo
		g.Go(func() error {
			dirs, err := gitIgnoredDirs(gctx, repo)
			if err != nil {
				log.Debug("ignored-directory listing failed", "repo", repo, "error", err)
				return nil
			}
			results[i] = dirs
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures are per-repo diagnostics

	for _, dirs := range results {
		candidates = append(candidates, dirs...)
	}

	for _, extra := range opts.ExtraPaths {
		if abs, err := filepath.Abs(extra); err == nil {
			candidates = append(candidates, abs)
		}
	}

	return dedupe(candidates)
}
