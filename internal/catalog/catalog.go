// Package catalog holds the builtin set of development artifact directory
// names that are safe to exclude from Time Machine backups wholesale.
//
// Some names are generic ("dist", "build", "tmp") and can collide with
// directories that hold committed source. veiled only matches directory
// names, never contents, so the false-positive surface is limited to
// projects that commit data under these names.
package catalog

// builtinDirs maps known artifact directory names for O(1) lookup.
var builtinDirs = map[string]bool{
	// JavaScript / TypeScript
	"node_modules":  true,
	".next":         true,
	".nuxt":         true,
	"dist":          true, // generic: may match non-JS distribution directories
	"build":         true, // generic: may match C/Make output that includes source
	"out":           true, // generic: may match custom output directories
	".turbo":        true,
	".cache":        true,
	".vite":         true,
	".vercel":       true,
	".output":       true,
	".parcel-cache": true,
	"coverage":      true,
	".nyc_output":   true,

	// Python
	".venv":         true,
	"venv":          true,
	"__pycache__":   true,
	".mypy_cache":   true,
	".pytest_cache": true,

	// Rust / JVM
	"target":  true, // generic: Cargo convention, occasionally repurposed
	".gradle": true,

	// Go / PHP
	"vendor": true, // generic: Go vendor trees may contain committed source

	// iOS / Swift
	"Pods":   true,
	".build": true,

	// IDEs and misc
	".idea": true,
	"tmp":   true, // generic: project-level temp dirs may hold relevant data
	".tmp":  true,
}

// IsBuiltin reports whether name is a known artifact directory name.
// The match is exact and case-sensitive.
func IsBuiltin(name string) bool {
	return builtinDirs[name]
}
