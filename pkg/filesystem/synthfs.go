package filesystem

import (
	"fmt"
	"io/fs"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/spf13/afero"
)

// synthFS exposes an afero filesystem to synthfs operations. Paths are
// passed through untouched, so absolute paths work on both the OS and the
// in-memory filesystem.
type synthFS struct {
	fs afero.Fs
}

var _ synthfs.FullFileSystem = synthFS{}

func (s synthFS) Open(name string) (fs.File, error) {
	f, err := s.fs.Open(name)
	if err != nil {
		return nil, err
	}
	return dirFile{File: f}, nil
}

func (s synthFS) Stat(name string) (fs.FileInfo, error) {
	return s.fs.Stat(name)
}

func (s synthFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	return afero.WriteFile(s.fs, name, data, perm)
}

func (s synthFS) MkdirAll(path string, perm fs.FileMode) error {
	return s.fs.MkdirAll(path, perm.Perm()|0700)
}

func (s synthFS) Remove(name string) error {
	return s.fs.Remove(name)
}

func (s synthFS) RemoveAll(name string) error {
	return s.fs.RemoveAll(name)
}

func (s synthFS) Rename(oldpath, newpath string) error {
	return s.fs.Rename(oldpath, newpath)
}

func (s synthFS) Symlink(oldname, newname string) error {
	linker, ok := s.fs.(afero.Linker)
	if !ok {
		return fmt.Errorf("filesystem cannot create symlink %s", newname)
	}
	return linker.SymlinkIfPossible(oldname, newname)
}

func (s synthFS) Readlink(name string) (string, error) {
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return "", fmt.Errorf("filesystem cannot read symlink %s", name)
	}
	return reader.ReadlinkIfPossible(name)
}

// dirFile adds the io/fs directory listing synthfs walks trees with.
type dirFile struct {
	afero.File
}

func (f dirFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := f.Readdir(n)
	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, fs.FileInfoToDirEntry(info))
	}
	return entries, err
}
