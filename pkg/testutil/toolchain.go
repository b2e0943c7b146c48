package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/toolchain"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/spf13/afero"
)

// RecreatedMarker is written into every pack the fake toolchain recreates.
const RecreatedMarker = ".recreated"

// ToolchainCall records one operation performed by FakeToolchain.
type ToolchainCall struct {
	Op              string // version, ls, bundle, create, rebundle, recreate
	Pack            string // scope/name, empty for version and ls
	Source          string
	Output          string
	AdditionalPacks []string
}

// FakeToolchain implements toolchain.Toolchain by copying pack trees. A pack
// is "bundled" or "created" into <output>/<scope>/<name>/<version>, and like
// the real toolchain it refuses to write over an existing pack.
type FakeToolchain struct {
	FS      afero.Fs
	Release string
	// Fail makes an operation fail, keyed by "op:scope/name".
	Fail map[string]error

	mu    sync.Mutex
	calls []ToolchainCall
}

var _ toolchain.Toolchain = (*FakeToolchain)(nil)

// NewFakeToolchain creates a fake toolchain over fs.
func NewFakeToolchain(fs afero.Fs) *FakeToolchain {
	return &FakeToolchain{FS: fs, Release: "2.15.1", Fail: map[string]error{}}
}

// Calls returns the recorded calls.
func (f *FakeToolchain) Calls() []ToolchainCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ToolchainCall(nil), f.calls...)
}

// PacksFor returns the sorted pack names the operation was called for.
func (f *FakeToolchain) PacksFor(op string) []string {
	var names []string
	for _, c := range f.Calls() {
		if c.Op == op {
			names = append(names, c.Pack)
		}
	}
	sort.Strings(names)
	return names
}

func (f *FakeToolchain) record(call ToolchainCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if err, ok := f.Fail[call.Op+":"+call.Pack]; ok {
		return err
	}
	return nil
}

func (f *FakeToolchain) Version(ctx context.Context) (types.VersionInfo, error) {
	if err := f.record(ToolchainCall{Op: "version"}); err != nil {
		return types.VersionInfo{}, err
	}
	return types.VersionInfo{ProductName: "CodeQL", Version: f.Release}, nil
}

func (f *FakeToolchain) ListPacks(ctx context.Context, root string) ([]types.RawPackage, error) {
	if err := f.record(ToolchainCall{Op: "ls", Source: root}); err != nil {
		return nil, err
	}

	var packs []types.RawPackage
	err := afero.Walk(f.FS, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".codeql" {
			return filepath.SkipDir
		}
		if info.IsDir() || info.Name() != constants.ManifestFile {
			return nil
		}
		m, err := manifest.Load(f.FS, path)
		if err != nil {
			return err
		}
		raw := types.RawPackage{
			Path:      path,
			Name:      m.Name(),
			Version:   m.Version(),
			Library:   m.Library(),
			Extractor: m.Extractor(),
		}
		deps, _ := m.Dependencies()
		for name, constraint := range deps {
			raw.Dependencies = append(raw.Dependencies, types.Dependency{Name: name, Constraint: constraint})
		}
		packs = append(packs, raw)
		return nil
	})
	if err != nil {
		return nil, errors.Toolchain(2, err.Error(), []string{"pack", "ls", root})
	}
	return packs, nil
}

func (f *FakeToolchain) identity(manifestPath string) (types.Identity, error) {
	m, err := manifest.Load(f.FS, manifestPath)
	if err != nil {
		return types.Identity{}, err
	}
	return types.ParseIdentity(m.Name(), m.Version())
}

// place copies the pack at manifestPath into output.
func (f *FakeToolchain) place(op, manifestPath, output string, additional []string, mutate func(dir string) error) error {
	id, err := f.identity(manifestPath)
	if err != nil {
		return err
	}
	if err := f.record(ToolchainCall{
		Op:              op,
		Pack:            id.FullName(),
		Source:          manifestPath,
		Output:          output,
		AdditionalPacks: additional,
	}); err != nil {
		return err
	}

	dst := filepath.Join(output, id.RelPath())
	exists, err := filesystem.Exists(f.FS, dst)
	if err != nil {
		return err
	}
	if exists {
		return errors.Toolchain(1, "pack already exists at "+dst, []string{"pack", op, manifestPath})
	}
	if err := filesystem.NewBatch(f.FS).CopyTree(filepath.Dir(manifestPath), dst).Run(context.Background()); err != nil {
		return err
	}
	if mutate != nil {
		return mutate(dst)
	}
	return nil
}

func manifestPathOf(packPath string) string {
	if strings.HasSuffix(packPath, constants.ManifestFile) {
		return packPath
	}
	return filepath.Join(packPath, constants.ManifestFile)
}

func (f *FakeToolchain) BundlePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error {
	return f.place("bundle", manifestPathOf(packPath), outputPath, additionalPacks, nil)
}

func (f *FakeToolchain) CreatePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error {
	return f.place("create", manifestPathOf(packPath), outputPath, additionalPacks, nil)
}

// RebundlePack bundles the pack into outputPath and removes the source, as
// the real client moves it to scratch first.
func (f *FakeToolchain) RebundlePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error {
	if outputPath == "" {
		outputPath = filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(packPath))))
	}
	if err := f.place("rebundle", packPath, outputPath, additionalPacks, nil); err != nil {
		return err
	}
	return filesystem.RemoveAll(f.FS, filepath.Dir(packPath))
}

// RecreatePack creates the pack into outputPath and marks it as recompiled.
func (f *FakeToolchain) RecreatePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error {
	if outputPath == "" {
		outputPath = filepath.Dir(filepath.Dir(filepath.Dir(filepath.Dir(packPath))))
	}
	return f.place("recreate", packPath, outputPath, additionalPacks, func(dir string) error {
		return afero.WriteFile(f.FS, filepath.Join(dir, RecreatedMarker), []byte("recreated\n"), 0644)
	})
}
