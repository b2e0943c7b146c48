// Package cascade packages query packs into the repository and recompiles
// the ones whose library dependencies were customized.
package cascade

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/mutator"
	"github.com/arthur-debert/qlbundle/pkg/parallel"
	"github.com/arthur-debert/qlbundle/pkg/toolchain"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultSuiteHelpers is the helper pack some bundled query packs depend on
// without the bundle shipping a matching version.
const DefaultSuiteHelpers = "codeql/suite-helpers"

// Options configures a Rebuilder.
type Options struct {
	FS          afero.Fs
	Toolchain   toolchain.Toolchain
	Mutator     *mutator.Mutator
	BundleRoot  string
	ScratchRoot string
	Concurrency int
	// SuiteHelpers defaults to DefaultSuiteHelpers.
	SuiteHelpers string
}

// Rebuilder creates and recompiles query packs.
type Rebuilder struct {
	fs           afero.Fs
	toolchain    toolchain.Toolchain
	mutator      *mutator.Mutator
	bundleRoot   string
	scratchRoot  string
	concurrency  int
	suiteHelpers string
	logger       zerolog.Logger
}

// New creates a Rebuilder.
func New(opts Options) *Rebuilder {
	r := &Rebuilder{
		fs:           opts.FS,
		toolchain:    opts.Toolchain,
		mutator:      opts.Mutator,
		bundleRoot:   opts.BundleRoot,
		scratchRoot:  opts.ScratchRoot,
		concurrency:  opts.Concurrency,
		suiteHelpers: opts.SuiteHelpers,
		logger:       logging.GetLogger("cascade"),
	}
	if r.suiteHelpers == "" {
		r.suiteHelpers = DefaultSuiteHelpers
	}
	if r.mutator == nil {
		r.mutator = mutator.New(r.fs, r.bundleRoot)
	}
	return r
}

// CreateQueries packages every query pack into the live repository. It
// covers packs that have never been packaged before.
func (r *Rebuilder) CreateQueries(ctx context.Context, queries []types.Package) error {
	qlpacks := filepath.Join(r.bundleRoot, constants.QLPacksDir)
	return parallel.ForEach(ctx, r.concurrency, queries, func(ctx context.Context, p types.Package) error {
		r.logger.Debug().Str("pack", p.String()).Msg("Creating query pack")
		return r.toolchain.CreatePack(ctx, p.Path, qlpacks, []string{r.bundleRoot})
	})
}

// Stale returns the query packs of live that declare a dependency on one of
// the woven packs.
func Stale(live types.Snapshot, woven []string) []types.Package {
	var out []types.Package
	for _, p := range live.ByRole(types.RoleQuery) {
		for _, name := range woven {
			if p.DependsOn(name) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Rebuild recompiles the stale query packs of live and promotes them,
// returning the identities it recompiled.
func (r *Rebuilder) Rebuild(ctx context.Context, live types.Snapshot, woven []string) ([]types.Identity, error) {
	stale := Stale(live, woven)
	if len(stale) == 0 {
		r.logger.Debug().Msg("No query pack depends on a customized pack")
		return nil, nil
	}

	recreatedDir := filepath.Join(r.scratchRoot, constants.RecreatedPacksDir)
	defer func() {
		if err := r.mutator.Purge(recreatedDir); err != nil {
			r.logger.Warn().Err(err).Str("path", recreatedDir).Msg("Failed to remove scratch directory")
		}
	}()

	recompiled, err := parallel.Map(ctx, r.concurrency, stale, func(ctx context.Context, p types.Package) (types.Identity, error) {
		r.logger.Debug().
			Str("pack", p.String()).
			Str("staging", recreatedDir).
			Msg("Query pack relies on a customized pack, recompiling")
		if _, err := PatchSuiteHelpers(r.fs, p.Path, r.suiteHelpers); err != nil {
			return types.Identity{}, err
		}
		if err := r.toolchain.RecreatePack(ctx, p.Path, []string{r.bundleRoot}, recreatedDir); err != nil {
			return types.Identity{}, err
		}
		return p.Identity, nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.mutator.PromoteAll(recompiled, recreatedDir); err != nil {
		return nil, err
	}
	if err := r.mutator.Purge(recreatedDir); err != nil {
		return nil, err
	}
	return recompiled, nil
}

// PatchSuiteHelpers pins the suite helpers dependency of the manifest at
// path to "*" so the pack resolves against whatever version the bundle
// carries. Manifests without a dependencies block are left alone. It reports
// whether the manifest was changed.
func PatchSuiteHelpers(fs afero.Fs, path, suiteHelpers string) (bool, error) {
	m, err := manifest.Load(fs, path)
	if err != nil {
		return false, err
	}
	if _, present := m.Dependencies(); !present {
		return false, nil
	}
	m.SetDependency(suiteHelpers, "*")
	if err := manifest.Save(fs, path, m); err != nil {
		return false, err
	}
	return true, nil
}
