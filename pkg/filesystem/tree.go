package filesystem

import (
	"os"

	"github.com/spf13/afero"
)

// Exists reports whether path exists. Errors other than "not found" are
// returned to the caller.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// RemoveAll deletes path recursively. A missing path is not an error.
func RemoveAll(fs afero.Fs, path string) error {
	if err := fs.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// AppendFile appends content to an existing file.
func AppendFile(fs afero.Fs, path string, content []byte) error {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
