// Package constants provides shared constants used across the qlbundle codebase.
// This package has no dependencies to avoid circular imports.
package constants

// Bundle layout. A pack lives at qlpacks/<scope>/<name>/<version>/qlpack.yml.
const (
	QLPacksDir    = "qlpacks"
	ManifestFile  = "qlpack.yml"
	LockFile      = "codeql-pack.lock.yml"
	ExtensionFile = "Customizations.qll"
)

// ToolchainExecutable is the toolchain binary at the root of an extracted
// bundle.
const ToolchainExecutable = "codeql"

// Files and directories stripped from a pack before it is recompiled.
var RecreateStripPaths = []string{
	LockFile,
	".codeql",
	".cache",
}

// PrecompiledQueryExt is the extension of precompiled query artifacts.
const PrecompiledQueryExt = ".qlx"

// Scratch tree names, created under the run-scoped scratch root.
const (
	StandardPacksDir  = "standard-qlpacks"
	RepackedPacksDir  = "repacked-qlpacks"
	RecreatedPacksDir = "recreated-qlpacks"
	RebundleDir       = "rebundle"
)
