package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// PackSpec describes a pack to write to disk.
type PackSpec struct {
	Name      string // scope/name
	Version   string
	Library   bool
	Extractor string
	// Dependencies maps pack names to version constraints.
	Dependencies map[string]string
	// EmptyDependencies writes "dependencies: {}" when Dependencies is empty.
	EmptyDependencies bool
	// Customization adds <scope>/<name_>/Customizations.qll to the pack.
	Customization bool
	// ExtensionPoint adds a top level Customizations.qll, as a customizable
	// base pack has.
	ExtensionPoint bool
	// Files are extra files relative to the version directory.
	Files map[string]string
}

// ManifestYAML renders the pack's qlpack.yml.
func (s PackSpec) ManifestYAML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", s.Name)
	fmt.Fprintf(&b, "version: %s\n", s.Version)
	if s.Library {
		b.WriteString("library: true\n")
	}
	if s.Extractor != "" {
		fmt.Fprintf(&b, "extractor: %s\n", s.Extractor)
	}
	switch {
	case len(s.Dependencies) > 0:
		b.WriteString("dependencies:\n")
		names := make([]string, 0, len(s.Dependencies))
		for name := range s.Dependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %q\n", name, s.Dependencies[name])
		}
	case s.EmptyDependencies:
		b.WriteString("dependencies: {}\n")
	}
	return b.String()
}

func (s PackSpec) scopeAndName() (string, string) {
	scope, name, _ := strings.Cut(s.Name, "/")
	return scope, name
}

// WritePack writes the pack into versionDir and returns its manifest path.
func WritePack(t *testing.T, fs afero.Fs, versionDir string, spec PackSpec) string {
	t.Helper()

	files := map[string]string{constants.ManifestFile: spec.ManifestYAML()}
	if spec.Customization {
		scope, name := spec.scopeAndName()
		rel := filepath.Join(scope, strings.ReplaceAll(name, "-", "_"), constants.ExtensionFile)
		files[rel] = "import " + spec.Extractor + "\n"
	}
	if spec.ExtensionPoint {
		files[constants.ExtensionFile] = "// extension point\n"
	}
	for rel, content := range spec.Files {
		files[rel] = content
	}
	WriteFiles(t, fs, versionDir, files)
	return filepath.Join(versionDir, constants.ManifestFile)
}

// WriteFiles writes files relative to root.
func WriteFiles(t *testing.T, fs afero.Fs, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// Exists reports whether path exists.
func Exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := filesystem.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

// TestBundle is a bundle directory plus a workspace of packs to add, both in
// a temp directory on the real filesystem.
type TestBundle struct {
	FS        afero.Fs
	Root      string // the bundle directory holding qlpacks/
	Workspace string
	Scratch   string
}

// NewTestBundle creates an empty bundle and workspace.
func NewTestBundle(t *testing.T) *TestBundle {
	t.Helper()

	tmp := t.TempDir()
	b := &TestBundle{
		FS:        filesystem.NewOS(),
		Root:      filepath.Join(tmp, "codeql"),
		Workspace: filepath.Join(tmp, "workspace"),
		Scratch:   filepath.Join(tmp, "scratch"),
	}
	require.NoError(t, os.MkdirAll(b.QLPacks(), 0755))
	require.NoError(t, os.MkdirAll(b.Workspace, 0755))
	return b
}

// QLPacks is the bundle's qlpacks directory.
func (b *TestBundle) QLPacks() string {
	return filepath.Join(b.Root, constants.QLPacksDir)
}

// PackDir is where a pack lives inside the bundle.
func (b *TestBundle) PackDir(name, version string) string {
	return filepath.Join(b.QLPacks(), filepath.FromSlash(name), version)
}

// AddBundlePack writes a pack into the bundle's qlpacks tree and returns its
// manifest path.
func (b *TestBundle) AddBundlePack(t *testing.T, spec PackSpec) string {
	t.Helper()
	return WritePack(t, b.FS, b.PackDir(spec.Name, spec.Version), spec)
}

// AddWorkspacePack writes a pack into the workspace under dir and returns
// its manifest path.
func (b *TestBundle) AddWorkspacePack(t *testing.T, dir string, spec PackSpec) string {
	t.Helper()
	return WritePack(t, b.FS, filepath.Join(b.Workspace, dir), spec)
}

// Manifest returns the bundle pack's qlpack.yml content.
func (b *TestBundle) Manifest(t *testing.T, name, version string) string {
	t.Helper()
	return ReadFile(t, b.FS, filepath.Join(b.PackDir(name, version), constants.ManifestFile))
}
