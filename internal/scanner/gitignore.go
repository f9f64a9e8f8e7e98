package scanner

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// gitIgnoredDirs lists the directories git ignores under repo. Any failure
// (git missing, not actually a repository, permission trouble) is returned
// to the caller, which treats it as "no candidates from this root".
func gitIgnoredDirs(ctx context.Context, repo string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", repo,
		"ls-files", "--others", "--ignored", "--exclude-standard", "--directory")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files in %s: %w", repo, err)
	}
	return parseIgnoredDirs(repo, string(out)), nil
}

// parseIgnoredDirs extracts directory paths from git ls-files --directory
// output. Directories carry a trailing slash; plain file entries are
// dropped so that only whole artifact directories get excluded.
func parseIgnoredDirs(repo, output string) []string {
	var dirs []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasSuffix(line, "/") {
			continue
		}
		rel := strings.TrimSuffix(line, "/")
		if rel == "" || rel == "." {
			continue
		}
		dirs = append(dirs, filepath.Join(repo, rel))
	}
	return dirs
}
