package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/qlbundle/pkg/cascade"
	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/dag"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/mutator"
	"github.com/arthur-debert/qlbundle/pkg/parallel"
	"github.com/arthur-debert/qlbundle/pkg/repository"
	"github.com/arthur-debert/qlbundle/pkg/toolchain"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/arthur-debert/qlbundle/pkg/weaver"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Options describes one run.
type Options struct {
	// BundleRoot is the extracted bundle, the directory holding qlpacks/.
	BundleRoot string
	// Workspace is searched for the packs to add.
	Workspace string
	// Packs are the scoped names of the workspace packs to add.
	Packs []string
	// Platforms are other extracted bundles whose qlpacks/ is replaced by
	// the customized one once the run succeeds.
	Platforms []string
	// Tag identifies the release the bundle came from.
	Tag string

	// RunID names the run's scratch directory. Generated when empty.
	RunID string
	// ScratchRoot is the run's scratch directory. Defaults to
	// ScratchDir("", RunID). It is removed when the run ends.
	ScratchRoot string

	Concurrency   int
	BaseScope     string
	SuiteHelpers  string
	ExtensionFile string
}

// ScratchDir returns the scratch directory of a run below parent, the system
// temp directory when parent is empty.
func ScratchDir(parent, runID string) string {
	if parent == "" {
		parent = os.TempDir()
	}
	return filepath.Join(parent, "qlbundle-"+runID)
}

// StageTiming records how long a stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Report summarizes a run. A failed run returns the partial report of the
// stages that completed.
type Report struct {
	RunID     string
	Tag       string
	Toolchain types.VersionInfo

	Libraries      []string
	Customizations []string
	Queries        []string

	Woven      []types.Identity
	Recompiled []types.Identity
	Replicated []string

	Stages []StageTiming
}

// Total is the sum of the stage durations.
func (r *Report) Total() time.Duration {
	var d time.Duration
	for _, s := range r.Stages {
		d += s.Duration
	}
	return d
}

// Pipeline runs bundle customizations against a toolchain.
type Pipeline struct {
	fs        afero.Fs
	toolchain toolchain.Toolchain
	view      *repository.View
	logger    zerolog.Logger
}

// New creates a pipeline.
func New(fs afero.Fs, tc toolchain.Toolchain) *Pipeline {
	return &Pipeline{
		fs:        fs,
		toolchain: tc,
		view:      repository.New(tc, fs),
		logger:    logging.GetLogger("pipeline"),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, in types.Snapshot) (types.Snapshot, error)
}

// run holds the state shared by the stages of one run.
type run struct {
	*Pipeline
	opts      Options
	report    *Report
	mutator   *mutator.Mutator
	weaver    *weaver.Weaver
	rebuilder *cascade.Rebuilder

	libraries      []types.Package
	customizations []types.Package
	queries        []types.Package
}

// Run executes every stage in order and stops at the first failure.
// Mutations already promoted into the bundle are not rolled back.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ScratchRoot == "" {
		opts.ScratchRoot = ScratchDir("", opts.RunID)
	}

	m := mutator.New(p.fs, opts.BundleRoot)
	defer func() {
		if err := m.Purge(opts.ScratchRoot); err != nil {
			p.logger.Warn().Err(err).Str("path", opts.ScratchRoot).Msg("Failed to remove scratch directory")
		}
	}()

	r := &run{
		Pipeline: p,
		opts:     opts,
		report:   &Report{RunID: opts.RunID, Tag: opts.Tag},
		mutator:  m,
		weaver: weaver.New(weaver.Options{
			FS:            p.fs,
			Toolchain:     p.toolchain,
			Mutator:       m,
			BundleRoot:    opts.BundleRoot,
			ScratchRoot:   filepath.Join(opts.ScratchRoot, "weave"),
			Concurrency:   opts.Concurrency,
			BaseScope:     opts.BaseScope,
			ExtensionFile: opts.ExtensionFile,
		}),
		rebuilder: cascade.New(cascade.Options{
			FS:           p.fs,
			Toolchain:    p.toolchain,
			Mutator:      m,
			BundleRoot:   opts.BundleRoot,
			ScratchRoot:  filepath.Join(opts.ScratchRoot, "cascade"),
			Concurrency:  opts.Concurrency,
			SuiteHelpers: opts.SuiteHelpers,
		}),
	}

	p.logger.Info().
		Str("run", opts.RunID).
		Str("bundle", opts.BundleRoot).
		Str("tag", opts.Tag).
		Strs("packs", opts.Packs).
		Msg("Customizing bundle")

	stages := []stage{
		{"select", r.selectPacks},
		{"bundle-libraries", r.bundleLibraries},
		{"weave", r.weave},
		{"verify-graph", r.verifyGraph},
		{"create-queries", r.createQueries},
		{"cascade", r.cascade},
		{"replicate", r.replicate},
	}

	var snapshot types.Snapshot
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return r.report, err
		}
		logger := p.logger.With().Str("stage", s.name).Logger()
		done := logging.LogOperationStart(logger, s.name)
		start := time.Now()

		next, err := s.run(ctx, snapshot)

		r.report.Stages = append(r.report.Stages, StageTiming{Name: s.name, Duration: time.Since(start)})
		done()
		if err != nil {
			logger.Error().Err(err).Msg("Stage failed")
			return r.report, err
		}
		snapshot = next
	}

	p.logger.Info().
		Int("woven", len(r.report.Woven)).
		Int("recompiled", len(r.report.Recompiled)).
		Dur("duration", r.report.Total()).
		Msg("Bundle customized")
	return r.report, nil
}

func (r *run) live(ctx context.Context) (types.Snapshot, error) {
	return r.view.Snapshot(ctx, r.opts.BundleRoot)
}

func (r *run) selectPacks(ctx context.Context, _ types.Snapshot) (types.Snapshot, error) {
	version, err := r.toolchain.Version(ctx)
	if err != nil {
		return types.Snapshot{}, err
	}
	r.report.Toolchain = version

	workspace, err := r.view.Snapshot(ctx, r.opts.Workspace)
	if err != nil {
		return types.Snapshot{}, err
	}
	selected, err := repository.RequireAll(workspace, r.opts.Packs)
	if err != nil {
		return types.Snapshot{}, err
	}
	snapshot := types.NewSnapshot(workspace.Root, selected)

	r.libraries = snapshot.ByRole(types.RoleLibrary)
	r.customizations = snapshot.ByRole(types.RoleCustomization)
	r.queries = snapshot.ByRole(types.RoleQuery)
	r.report.Libraries = names(r.libraries)
	r.report.Customizations = names(r.customizations)
	r.report.Queries = names(r.queries)

	r.logger.Debug().
		Int("query", len(r.queries)).
		Int("library", len(r.libraries)).
		Int("customization", len(r.customizations)).
		Msg("Selected packs")
	return snapshot, nil
}

func (r *run) bundleLibraries(ctx context.Context, _ types.Snapshot) (types.Snapshot, error) {
	qlpacks := filepath.Join(r.opts.BundleRoot, constants.QLPacksDir)
	err := parallel.ForEach(ctx, parallel.Unbounded, r.libraries, func(ctx context.Context, p types.Package) error {
		return r.toolchain.BundlePack(ctx, p.Path, qlpacks, []string{r.opts.Workspace})
	})
	if err != nil {
		return types.Snapshot{}, err
	}
	return r.live(ctx)
}

func (r *run) weave(ctx context.Context, live types.Snapshot) (types.Snapshot, error) {
	result, err := r.weaver.Weave(ctx, r.customizations, live)
	if err != nil {
		return types.Snapshot{}, err
	}
	r.report.Woven = result.Woven
	if len(result.Woven) == 0 {
		return live, nil
	}
	return r.live(ctx)
}

func (r *run) verifyGraph(ctx context.Context, live types.Snapshot) (types.Snapshot, error) {
	if err := dag.Verify(live); err != nil {
		return types.Snapshot{}, err
	}
	return live, nil
}

func (r *run) createQueries(ctx context.Context, live types.Snapshot) (types.Snapshot, error) {
	if len(r.queries) == 0 {
		return live, nil
	}
	if err := r.rebuilder.CreateQueries(ctx, r.queries); err != nil {
		return types.Snapshot{}, err
	}
	return r.live(ctx)
}

func (r *run) cascade(ctx context.Context, live types.Snapshot) (types.Snapshot, error) {
	woven := make([]string, 0, len(r.report.Woven))
	for _, id := range r.report.Woven {
		woven = append(woven, id.FullName())
	}
	recompiled, err := r.rebuilder.Rebuild(ctx, live, woven)
	if err != nil {
		return types.Snapshot{}, err
	}
	r.report.Recompiled = recompiled
	if len(recompiled) == 0 {
		return live, nil
	}
	return r.live(ctx)
}

func (r *run) replicate(ctx context.Context, live types.Snapshot) (types.Snapshot, error) {
	for _, platform := range r.opts.Platforms {
		if filepath.Clean(platform) == filepath.Clean(r.opts.BundleRoot) {
			continue
		}
		ok, err := filesystem.Exists(r.fs, platform)
		if err != nil {
			return types.Snapshot{}, err
		}
		if !ok {
			r.logger.Warn().Str("bundle", platform).Msg("Platform bundle not found, skipping")
			continue
		}
		if err := r.mutator.ReplaceTree(platform); err != nil {
			return types.Snapshot{}, err
		}
		r.report.Replicated = append(r.report.Replicated, platform)
	}
	return live, nil
}

func names(packages []types.Package) []string {
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		out = append(out, p.FullName())
	}
	return out
}
