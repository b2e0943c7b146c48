package repository

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Lister is the introspection half of the toolchain.
type Lister interface {
	ListPacks(ctx context.Context, root string) ([]types.RawPackage, error)
}

// View is a read-only view of the packs in a directory tree.
type View struct {
	lister Lister
	fs     afero.Fs
	logger zerolog.Logger
}

// New creates a repository view.
func New(lister Lister, fs afero.Fs) *View {
	return &View{
		lister: lister,
		fs:     fs,
		logger: logging.GetLogger("repository"),
	}
}

// List enumerates the packs below root.
func (v *View) List(ctx context.Context, root string) ([]types.Package, error) {
	raws, err := v.lister.ListPacks(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrIntrospection, "cannot list packs").
			WithDetail("root", root)
	}

	packages := make([]types.Package, 0, len(raws))
	for _, raw := range raws {
		pkg, err := v.describe(raw)
		if err != nil {
			return nil, err
		}
		v.logger.Trace().
			Str("pack", pkg.String()).
			Str("role", pkg.Role.String()).
			Str("extractor", pkg.CompatibilityTag).
			Msg("Listed pack")
		packages = append(packages, pkg)
	}
	return packages, nil
}

// Snapshot enumerates root and returns the packs as a snapshot.
func (v *View) Snapshot(ctx context.Context, root string) (types.Snapshot, error) {
	packages, err := v.List(ctx, root)
	if err != nil {
		return types.Snapshot{}, err
	}
	snapshot := types.NewSnapshot(root, packages)
	v.logger.Debug().
		Str("root", root).
		Int("query", len(snapshot.ByRole(types.RoleQuery))).
		Int("library", len(snapshot.ByRole(types.RoleLibrary))).
		Int("customization", len(snapshot.ByRole(types.RoleCustomization))).
		Msg("Enumerated packs")
	return snapshot, nil
}

func (v *View) describe(raw types.RawPackage) (types.Package, error) {
	m, err := manifest.Load(v.fs, raw.Path)
	if err != nil {
		return types.Package{}, err
	}
	if m.Name() != "" && m.Name() != raw.Name {
		return types.Package{}, errors.Newf(errors.ErrIntrospection,
			"toolchain reports %s but manifest declares %s", raw.Name, m.Name()).
			WithDetail("path", raw.Path)
	}

	identity, err := types.ParseIdentity(raw.Name, raw.Version)
	if err != nil {
		return types.Package{}, errors.Wrap(err, errors.ErrInvalidInput, "invalid pack name").
			WithDetail("path", raw.Path)
	}

	pkg := types.Package{
		Identity:         identity,
		Path:             raw.Path,
		Library:          m.Library(),
		CompatibilityTag: m.Extractor(),
	}
	if pkg.CompatibilityTag == "" {
		pkg.CompatibilityTag = raw.Extractor
	}

	deps, _ := m.Dependencies()
	for name, constraint := range deps {
		pkg.Dependencies = append(pkg.Dependencies, types.Dependency{Name: name, Constraint: constraint})
	}
	sort.Slice(pkg.Dependencies, func(i, j int) bool {
		return pkg.Dependencies[i].Name < pkg.Dependencies[j].Name
	})

	pkg.Role, err = Classify(v.fs, pkg)
	if err != nil {
		return types.Package{}, err
	}
	return pkg, nil
}

// Classify determines a pack's role. A pack shipping
// <scope>/<name_with_underscores>/Customizations.qll next to its manifest is a
// customization; otherwise a library flag makes it a library; anything else
// is a query pack.
func Classify(fs afero.Fs, pkg types.Package) (types.Role, error) {
	extensionFile := filepath.Join(pkg.ExtensionDir(), constants.ExtensionFile)
	ok, err := filesystem.Exists(fs, extensionFile)
	if err != nil {
		return types.RoleQuery, errors.Wrap(err, errors.ErrFileAccess, "cannot check for customizations").
			WithDetail("path", extensionFile)
	}
	switch {
	case ok:
		return types.RoleCustomization, nil
	case pkg.Library:
		return types.RoleLibrary, nil
	default:
		return types.RoleQuery, nil
	}
}

// RequireAll returns the packs of snapshot named in names, failing with a
// MissingDependencyError listing every name that is not present.
func RequireAll(snapshot types.Snapshot, names []string) ([]types.Package, error) {
	present := make(map[string]bool, len(snapshot.Packages))
	for _, p := range snapshot.Packages {
		present[p.FullName()] = true
	}
	var missing []string
	for _, name := range names {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingDependency(snapshot.Root, missing)
	}
	return snapshot.Filter(names), nil
}

// ParsePackList splits a comma separated list of pack names, dropping blanks.
func ParsePackList(list string) []string {
	var names []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	return names
}
