// Package weaver wires customization packs into the standard library pack
// they extend.
//
// Each customization is matched to exactly one base pack by extractor. The
// customization's own dependency on that base is dropped, it is bundled into
// the repository, and a staged copy of the base is made to depend on it and
// import its Customizations module. The staged base is re-bundled and then
// promoted over the live copy.
package weaver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/mutator"
	"github.com/arthur-debert/qlbundle/pkg/parallel"
	"github.com/arthur-debert/qlbundle/pkg/toolchain"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// DefaultBaseScope is the prefix a base pack's name must carry.
const DefaultBaseScope = "codeql/"

// Options configures a Weaver.
type Options struct {
	FS        afero.Fs
	Toolchain toolchain.Toolchain
	Mutator   *mutator.Mutator
	// BundleRoot is the live repository, holding qlpacks/.
	BundleRoot string
	// ScratchRoot is owned by the weave stage; staged and repacked base packs
	// live below it.
	ScratchRoot string
	Concurrency int
	// BaseScope defaults to DefaultBaseScope.
	BaseScope string
	// ExtensionFile defaults to Customizations.qll.
	ExtensionFile string
}

// Target pairs a customization with the base pack it extends.
type Target struct {
	Customization types.Package
	Base          types.Package
}

// Result describes a completed weave.
type Result struct {
	Targets []Target
	// Woven are the identities of the promoted base packs.
	Woven []types.Identity
}

// WovenNames returns the scoped names of the woven base packs.
func (r Result) WovenNames() []string {
	names := make([]string, 0, len(r.Woven))
	for _, id := range r.Woven {
		names = append(names, id.FullName())
	}
	return names
}

// Weaver weaves customization packs into base packs.
type Weaver struct {
	fs            afero.Fs
	toolchain     toolchain.Toolchain
	mutator       *mutator.Mutator
	bundleRoot    string
	scratchRoot   string
	concurrency   int
	baseScope     string
	extensionFile string
	logger        zerolog.Logger
}

// New creates a Weaver.
func New(opts Options) *Weaver {
	w := &Weaver{
		fs:            opts.FS,
		toolchain:     opts.Toolchain,
		mutator:       opts.Mutator,
		bundleRoot:    opts.BundleRoot,
		scratchRoot:   opts.ScratchRoot,
		concurrency:   opts.Concurrency,
		baseScope:     opts.BaseScope,
		extensionFile: opts.ExtensionFile,
		logger:        logging.GetLogger("weaver"),
	}
	if w.baseScope == "" {
		w.baseScope = DefaultBaseScope
	}
	if w.extensionFile == "" {
		w.extensionFile = constants.ExtensionFile
	}
	if w.mutator == nil {
		w.mutator = mutator.New(w.fs, w.bundleRoot)
	}
	return w
}

// Candidates returns the packs of live that a customization with the given
// extractor could extend.
func (w *Weaver) Candidates(live types.Snapshot, extractor string) []types.Package {
	var out []types.Package
	for _, p := range live.Packages {
		if p.Library && strings.HasPrefix(p.FullName(), w.baseScope) && p.CompatibilityTag == extractor {
			out = append(out, p)
		}
	}
	return out
}

// Resolve matches every customization to its base pack. It touches nothing on
// disk, so a failure here leaves the repository as it was.
func (w *Weaver) Resolve(customizations []types.Package, live types.Snapshot) ([]Target, error) {
	targets := make([]Target, 0, len(customizations))
	claimedBy := make(map[string]string)

	for _, c := range customizations {
		w.logger.Debug().Str("pack", c.FullName()).Msg("Considering pack as a source of customizations")
		if c.CompatibilityTag == "" {
			return nil, errors.MissingCompatibilityTag(c.FullName())
		}

		candidates := w.Candidates(live, c.CompatibilityTag)
		if len(candidates) != 1 {
			names := make([]string, 0, len(candidates))
			for _, p := range candidates {
				names = append(names, p.FullName())
			}
			return nil, errors.AmbiguousOrMissingBase(c.FullName(), c.CompatibilityTag, names)
		}
		base := candidates[0]

		if other, ok := claimedBy[base.FullName()]; ok {
			return nil, errors.UnsupportedConfiguration(fmt.Sprintf(
				"customization packs %s and %s both target %s; only one customization per base pack is supported",
				other, c.FullName(), base.FullName())).
				WithDetail("base", base.FullName()).
				WithDetail("customizations", []string{other, c.FullName()})
		}
		claimedBy[base.FullName()] = c.FullName()

		w.logger.Debug().
			Str("pack", c.FullName()).
			Str("base", base.String()).
			Msg("Found compatible base pack")
		targets = append(targets, Target{Customization: c, Base: base})
	}
	return targets, nil
}

// Weave resolves and weaves every customization, then promotes the woven
// base packs into the live repository. The stage's scratch trees are removed
// whatever the outcome.
func (w *Weaver) Weave(ctx context.Context, customizations []types.Package, live types.Snapshot) (Result, error) {
	targets, err := w.Resolve(customizations, live)
	if err != nil {
		return Result{}, err
	}
	if len(targets) == 0 {
		return Result{}, nil
	}

	standardDir := filepath.Join(w.scratchRoot, constants.StandardPacksDir)
	repackedDir := filepath.Join(w.scratchRoot, constants.RepackedPacksDir)
	defer w.purgeQuietly(repackedDir)
	defer w.purgeQuietly(standardDir)

	woven, err := parallel.Map(ctx, w.concurrency, targets, func(ctx context.Context, t Target) (types.Identity, error) {
		if err := w.weaveOne(ctx, t, standardDir, repackedDir); err != nil {
			return types.Identity{}, err
		}
		return t.Base.Identity, nil
	})
	if err != nil {
		return Result{}, err
	}
	w.logger.Debug().Msg("Finished re-bundling base packs")

	if err := w.mutator.Purge(standardDir); err != nil {
		return Result{}, err
	}
	if err := w.mutator.PromoteAll(woven, repackedDir); err != nil {
		return Result{}, err
	}
	if err := w.mutator.Purge(repackedDir); err != nil {
		return Result{}, err
	}

	result := Result{Targets: targets, Woven: woven}
	w.logger.Info().Strs("packs", result.WovenNames()).Msg("Customized base packs")
	return result, nil
}

func (w *Weaver) weaveOne(ctx context.Context, t Target, standardDir, repackedDir string) error {
	c, base := t.Customization, t.Base
	logger := w.logger.With().Str("pack", c.FullName()).Str("base", base.FullName()).Logger()

	if err := w.detach(c, base); err != nil {
		return err
	}

	qlpacks := filepath.Join(w.bundleRoot, constants.QLPacksDir)
	if err := w.toolchain.BundlePack(ctx, c.Path, qlpacks, []string{w.bundleRoot}); err != nil {
		return err
	}

	staged := filepath.Join(standardDir, base.RelPath())
	logger.Debug().Str("from", base.VersionDir()).Str("to", staged).Msg("Staging base pack")
	if err := filesystem.NewBatch(w.fs).CopyTree(base.VersionDir(), staged).Run(ctx); err != nil {
		return errors.Wrap(err, errors.ErrFileCopy, "cannot stage base pack").
			WithDetail("pack", base.String())
	}

	stagedManifest := filepath.Join(staged, constants.ManifestFile)
	m, err := manifest.Load(w.fs, stagedManifest)
	if err != nil {
		return err
	}
	m.SetDependency(c.FullName(), c.Version)
	if err := manifest.Save(w.fs, stagedManifest, m); err != nil {
		return err
	}
	logger.Debug().Str("path", stagedManifest).Msg("Added dependency on customization pack")

	if err := manifest.AppendExtension(w.fs, filepath.Join(staged, w.extensionFile), c.ExtensionModule()); err != nil {
		return err
	}

	return w.toolchain.RebundlePack(ctx, stagedManifest, []string{w.bundleRoot}, repackedDir)
}

// detach drops the customization's dependency on its base, which would form
// a cycle once the base depends on the customization.
func (w *Weaver) detach(c, base types.Package) error {
	m, err := manifest.Load(w.fs, c.Path)
	if err != nil {
		return err
	}
	removed := m.RemoveDependency(base.FullName())
	pruned := m.PruneEmptyDependencies()
	if !removed && !pruned {
		return nil
	}
	w.logger.Debug().
		Str("pack", c.FullName()).
		Str("dependency", base.FullName()).
		Msg("Removing dependency to prevent a cycle")
	return manifest.Save(w.fs, c.Path, m)
}

func (w *Weaver) purgeQuietly(dir string) {
	if err := w.mutator.Purge(dir); err != nil {
		w.logger.Warn().Err(err).Str("path", dir).Msg("Failed to remove scratch directory")
	}
}
