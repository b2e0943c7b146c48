package toolchain

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Toolchain is the set of pack operations qlbundle needs.
type Toolchain interface {
	Version(ctx context.Context) (types.VersionInfo, error)
	ListPacks(ctx context.Context, root string) ([]types.RawPackage, error)
	BundlePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error
	CreatePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error
	RebundlePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error
	RecreatePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error
}

// Options contains configuration for the client
type Options struct {
	// Executable is the toolchain binary.
	Executable string
	Runner     Runner
	FS         afero.Fs
	// ScratchRoot holds the client's temporary pack copies. It should be
	// scoped to one run. Defaults to the system temp directory.
	ScratchRoot string
	// QLXMinVersion is the first toolchain version that can precompile
	// queries. Empty disables precompilation.
	QLXMinVersion string
	Logger        zerolog.Logger
}

// Client implements Toolchain on top of a Runner.
type Client struct {
	executable    string
	runner        Runner
	fs            afero.Fs
	scratchRoot   string
	qlxMinVersion string
	logger        zerolog.Logger

	versionMu sync.Mutex
	version   types.VersionInfo
	// versionCached is only set by a successful probe, so a failed or
	// canceled call is retried.
	versionCached bool
}

var _ Toolchain = (*Client)(nil)

// New creates a new toolchain client
func New(opts Options) *Client {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("toolchain")
	}
	runner := opts.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}
	scratchRoot := opts.ScratchRoot
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Client{
		executable:    opts.Executable,
		runner:        runner,
		fs:            fs,
		scratchRoot:   scratchRoot,
		qlxMinVersion: opts.QLXMinVersion,
		logger:        logger,
	}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	logging.LogCommand(c.logger, c.executable, args)
	res, err := c.runner.Run(ctx, c.executable, args...)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrToolchain, "cannot run toolchain").
			WithDetail("executable", c.executable).
			WithDetail("args", args)
	}
	if res.ExitCode != 0 {
		return "", errors.Toolchain(res.ExitCode, res.Stderr, args)
	}
	return res.Stdout, nil
}

// Version returns the toolchain's version. A successful result is cached for
// the lifetime of the client.
func (c *Client) Version(ctx context.Context) (types.VersionInfo, error) {
	c.versionMu.Lock()
	defer c.versionMu.Unlock()
	if c.versionCached {
		return c.version, nil
	}

	out, err := c.run(ctx, "version", "--format=json")
	if err != nil {
		return types.VersionInfo{}, err
	}
	var info types.VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		return types.VersionInfo{}, errors.Wrap(err, errors.ErrToolchain, "cannot decode version output")
	}
	c.version, c.versionCached = info, true
	return info, nil
}

type packListing struct {
	Packs map[string]struct {
		Name         string `json:"name"`
		Version      string `json:"version"`
		Library      bool   `json:"library"`
		Extractor    string `json:"extractor"`
		Dependencies map[string]struct {
			Text      string `json:"text"`
			Inclusive bool   `json:"inclusive"`
		} `json:"dependencies"`
	} `json:"packs"`
}

// ListPacks lists the packs found below root, sorted by manifest path.
func (c *Client) ListPacks(ctx context.Context, root string) ([]types.RawPackage, error) {
	args := []string{"pack", "ls", "--format=json"}
	if root != "" && root != "." {
		args = append(args, root)
	}
	c.logger.Debug().Str("root", root).Msg("Listing packs")

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var listing packListing
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		return nil, errors.Wrap(err, errors.ErrToolchain, "cannot decode pack listing").
			WithDetail("root", root)
	}

	packs := make([]types.RawPackage, 0, len(listing.Packs))
	for path, p := range listing.Packs {
		raw := types.RawPackage{
			Path:      path,
			Name:      p.Name,
			Version:   p.Version,
			Library:   p.Library,
			Extractor: p.Extractor,
		}
		for name, dep := range p.Dependencies {
			raw.Dependencies = append(raw.Dependencies, types.Dependency{Name: name, Constraint: dep.Text})
		}
		sort.Slice(raw.Dependencies, func(i, j int) bool {
			return raw.Dependencies[i].Name < raw.Dependencies[j].Name
		})
		packs = append(packs, raw)
	}
	sort.Slice(packs, func(i, j int) bool { return packs[i].Path < packs[j].Path })
	return packs, nil
}

func additionalPacksArg(additionalPacks []string) []string {
	if len(additionalPacks) == 0 {
		return nil
	}
	return []string{"--additional-packs=" + strings.Join(additionalPacks, ":")}
}

// BundlePack bundles the pack and its resolved dependencies into outputPath.
func (c *Client) BundlePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error {
	args := []string{"pack", "bundle", "--pack-path=" + outputPath, "--format=json"}
	args = append(args, additionalPacksArg(additionalPacks)...)
	args = append(args, packPath)
	_, err := c.run(ctx, args...)
	return err
}

// CreatePack creates a pack that has not been packaged yet into outputPath.
// packPath may point at the pack directory or at its qlpack.yml.
func (c *Client) CreatePack(ctx context.Context, packPath, outputPath string, additionalPacks []string) error {
	return c.create(ctx, packPath, outputPath, additionalPacks, false)
}

func (c *Client) create(ctx context.Context, packPath, outputPath string, additionalPacks []string, precompile bool) error {
	packDir := strings.TrimSuffix(packPath, string(filepath.Separator)+constants.ManifestFile)

	args := []string{"pack", "create", "--output=" + outputPath, "--threads=0", "--format=json"}
	args = append(args, additionalPacksArg(additionalPacks)...)
	if precompile {
		args = append(args, "--qlx")
	}
	args = append(args, packDir)
	_, err := c.run(ctx, args...)
	return err
}

// packLayout splits a manifest path qlpacks/<scope>/<name>/<version>/qlpack.yml
// into its parts.
type packLayout struct {
	versionDir string
	qlpacksDir string
	identity   types.Identity
}

func layoutOf(packPath string) packLayout {
	versionDir := filepath.Dir(packPath)
	nameDir := filepath.Dir(versionDir)
	scopeDir := filepath.Dir(nameDir)
	return packLayout{
		versionDir: versionDir,
		qlpacksDir: filepath.Dir(scopeDir),
		identity: types.Identity{
			Scope:   filepath.Base(scopeDir),
			Name:    filepath.Base(nameDir),
			Version: filepath.Base(versionDir),
		},
	}
}
