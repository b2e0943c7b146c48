package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/mod/semver"
)

// scratchDir returns a fresh directory name below the client's scratch root.
// The random suffix keeps concurrent repacks of packs that share a basename
// apart.
func (c *Client) scratchDir(prefix string) string {
	return filepath.Join(c.scratchRoot, prefix+"-"+uuid.NewString()[:8])
}

// RebundlePack re-bundles an already bundled pack. The toolchain refuses to
// bundle over a pack in place, so the version directory is first moved to a
// scratch location and bundled from there. outputPath defaults to the
// qlpacks directory the pack lives in.
func (c *Client) RebundlePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error {
	layout := layoutOf(packPath)
	if outputPath == "" {
		outputPath = layout.qlpacksDir
	}

	workspace := c.scratchDir(constants.RebundleDir)
	defer c.removeScratch(workspace)

	tmpVersionDir := filepath.Join(workspace, layout.identity.RelPath())
	c.logger.Debug().
		Str("from", layout.versionDir).
		Str("to", tmpVersionDir).
		Msg("Moving pack to scratch before bundling")
	if err := filesystem.NewBatch(c.fs).Move(layout.versionDir, tmpVersionDir).Run(ctx); err != nil {
		return errors.Wrap(err, errors.ErrFileMove, "cannot move pack to scratch").
			WithDetail("pack", layout.identity.String())
	}

	return c.BundlePack(ctx, filepath.Join(tmpVersionDir, constants.ManifestFile), outputPath, additionalPacks)
}

// RecreatePack recompiles a pack from its sources. The version directory is
// copied into an isolated scratch workspace, stripped of its lock file,
// resolved dependencies, caches and precompiled queries, and created from
// there. The scratch workspace is removed whatever the outcome. outputPath
// defaults to the qlpacks directory the pack lives in.
func (c *Client) RecreatePack(ctx context.Context, packPath string, additionalPacks []string, outputPath string) error {
	layout := layoutOf(packPath)
	if outputPath == "" {
		outputPath = layout.qlpacksDir
	}

	workspace := c.scratchDir("recreate")
	defer c.removeScratch(workspace)

	tmpVersionDir := filepath.Join(workspace, layout.identity.RelPath())
	c.logger.Debug().
		Str("from", layout.versionDir).
		Str("to", tmpVersionDir).
		Msg("Copying pack to scratch before creating")
	if err := filesystem.NewBatch(c.fs).CopyTree(layout.versionDir, tmpVersionDir).Run(ctx); err != nil {
		return errors.Wrap(err, errors.ErrFileCopy, "cannot copy pack to scratch").
			WithDetail("pack", layout.identity.String())
	}

	if err := c.stripBuildOutputs(tmpVersionDir); err != nil {
		return err
	}

	precompile, err := c.SupportsPrecompile(ctx)
	if err != nil {
		return err
	}

	return c.create(ctx, filepath.Join(tmpVersionDir, constants.ManifestFile), outputPath, additionalPacks, precompile)
}

// stripBuildOutputs removes everything a previous create left in a pack.
func (c *Client) stripBuildOutputs(versionDir string) error {
	for _, rel := range constants.RecreateStripPaths {
		path := filepath.Join(versionDir, rel)
		c.logger.Debug().Str("path", path).Msg("Removing included build output")
		if err := filesystem.RemoveAll(c.fs, path); err != nil {
			return errors.Wrap(err, errors.ErrFileRemove, "cannot strip pack").WithDetail("path", path)
		}
	}

	var precompiled []string
	err := afero.Walk(c.fs, versionDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, constants.PrecompiledQueryExt) {
			precompiled = append(precompiled, path)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "cannot scan pack").WithDetail("path", versionDir)
	}
	for _, path := range precompiled {
		if err := c.fs.Remove(path); err != nil {
			return errors.Wrap(err, errors.ErrFileRemove, "cannot remove precompiled query").WithDetail("path", path)
		}
	}
	return nil
}

// SupportsPrecompile reports whether the toolchain version is at least the
// configured minimum for --qlx.
func (c *Client) SupportsPrecompile(ctx context.Context) (bool, error) {
	if c.qlxMinVersion == "" {
		return false, nil
	}
	info, err := c.Version(ctx)
	if err != nil {
		return false, err
	}
	current, ok := normalizeVersion(info.Version)
	if !ok {
		c.logger.Warn().Str("version", info.Version).Msg("Toolchain version is not semver, not precompiling queries")
		return false, nil
	}
	minimum, ok := normalizeVersion(c.qlxMinVersion)
	if !ok {
		return false, errors.Newf(errors.ErrConfigValid, "minimum precompile version %q is not semver", c.qlxMinVersion)
	}
	return semver.Compare(current, minimum) >= 0, nil
}

// normalizeVersion adds the "v" prefix the semver package requires.
func normalizeVersion(v string) (string, bool) {
	norm := strings.TrimSpace(v)
	if !strings.HasPrefix(norm, "v") {
		norm = "v" + norm
	}
	return norm, semver.IsValid(norm)
}

func (c *Client) removeScratch(path string) {
	if err := filesystem.RemoveAll(c.fs, path); err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove scratch directory")
	}
}
