// Package mutator is the only writer of the live pack repository. It
// promotes staged pack trees into qlpacks/ and tears down scratch trees.
package mutator

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Mutator replaces packs in a live repository.
type Mutator struct {
	fs      afero.Fs
	qlpacks string
	logger  zerolog.Logger
}

// New creates a mutator for the repository rooted at root.
func New(fs afero.Fs, root string) *Mutator {
	return &Mutator{
		fs:      fs,
		qlpacks: filepath.Join(root, constants.QLPacksDir),
		logger:  logging.GetLogger("mutator"),
	}
}

// LivePath is where the pack with the given identity lives.
func (m *Mutator) LivePath(id types.Identity) string {
	return filepath.Join(m.qlpacks, id.RelPath())
}

// Replace removes the live copy of the pack, if any, and moves stagedPath in
// its place. Nothing of the old copy survives. The live copy is left alone
// when there is nothing staged.
func (m *Mutator) Replace(id types.Identity, stagedPath string) error {
	dest := m.LivePath(id)

	staged, err := filesystem.Exists(m.fs, stagedPath)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileAccess, "cannot read staged pack").
			WithDetail("pack", id.String()).
			WithDetail("from", stagedPath)
	}
	if !staged {
		return errors.New(errors.ErrFileMove, "nothing staged for pack").
			WithDetail("pack", id.String()).
			WithDetail("from", stagedPath)
	}

	m.logger.Debug().Str("pack", id.String()).Str("path", dest).Str("from", stagedPath).Msg("Replacing pack")
	batch := filesystem.NewBatch(m.fs).Delete(dest).Move(stagedPath, dest)
	if err := batch.Run(context.Background()); err != nil {
		return errors.Wrap(err, errors.ErrFileMove, "cannot promote pack").
			WithDetail("pack", id.String()).
			WithDetail("from", stagedPath)
	}
	return nil
}

// PromoteAll replaces every pack in ids with its copy under stagingRoot,
// found at <stagingRoot>/<scope>/<name>/<version>.
func (m *Mutator) PromoteAll(ids []types.Identity, stagingRoot string) error {
	for _, id := range ids {
		if err := m.Replace(id, filepath.Join(stagingRoot, id.RelPath())); err != nil {
			return err
		}
	}
	if len(ids) > 0 {
		m.logger.Info().Int("count", len(ids)).Str("staging", stagingRoot).Msg("Promoted packs")
	}
	return nil
}

// Purge deletes a scratch tree. A missing tree is not an error.
func (m *Mutator) Purge(scratchRoot string) error {
	m.logger.Debug().Str("path", scratchRoot).Msg("Removing scratch directory")
	if err := filesystem.RemoveAll(m.fs, scratchRoot); err != nil {
		return errors.Wrap(err, errors.ErrFileRemove, "cannot remove scratch directory").
			WithDetail("path", scratchRoot)
	}
	return nil
}

// ReplaceTree replaces the qlpacks directory of another repository rooted at
// otherRoot with a copy of this repository's qlpacks.
func (m *Mutator) ReplaceTree(otherRoot string) error {
	dest := filepath.Join(otherRoot, constants.QLPacksDir)
	m.logger.Debug().Str("from", m.qlpacks).Str("to", dest).Msg("Replacing qlpacks")

	batch := filesystem.NewBatch(m.fs).Delete(dest).CopyTree(m.qlpacks, dest)
	if err := batch.Run(context.Background()); err != nil {
		return errors.Wrap(err, errors.ErrFileCopy, "cannot replace qlpacks").WithDetail("path", dest)
	}
	return nil
}
