package manifest

import (
	"fmt"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/spf13/afero"
)

// ExtensionImport is the line that pulls a customization module into a base
// pack's extension point.
func ExtensionImport(module string) string {
	return fmt.Sprintf("\nimport %s.Customizations\n", module)
}

// AppendExtension appends an import of module's customizations to the
// extension point file. The file must already exist. No duplicate check is
// made: a base pack is woven at most once per run.
func AppendExtension(fs afero.Fs, extensionFilePath, module string) error {
	if err := filesystem.AppendFile(fs, extensionFilePath, []byte(ExtensionImport(module))); err != nil {
		return errors.Wrap(err, errors.ErrFileWrite, "cannot extend customizations file").
			WithDetail("path", extensionFilePath).
			WithDetail("module", module)
	}
	return nil
}
