package scanner

import (
	"sort"
	"strings"
)

// dedupe removes exact duplicates and any path that lives under another
// path in the set. Excluding an ancestor already covers its children, so a
// child entry would only clutter the registry. The result is sorted.
func dedupe(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}

	uniq := make([]string, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	sort.Strings(uniq)

	kept := uniq[:0:0]
	for _, p := range uniq {
		if !hasAncestor(kept, p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func hasAncestor(kept []string, path string) bool {
	for _, k := range kept {
		if strings.HasPrefix(path, k+"/") {
			return true
		}
	}
	return false
}
