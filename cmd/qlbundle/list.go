package qlbundle

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/repository"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var bundle string

	cmd := &cobra.Command{
		Use:     "list [directory]",
		Short:   MsgListShort,
		Long:    MsgListLong,
		GroupID: "bundle",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return err
			}
			if bundle == "" {
				bundle = root
			}

			view := repository.New(toolchainFor(bundle, ""), filesystem.NewOS())
			snapshot, err := view.Snapshot(cmd.Context(), root)
			if err != nil {
				return err
			}

			renderer, err := newRenderer(cmd)
			if err != nil {
				return fmt.Errorf(MsgErrRender, err)
			}
			return renderer.RenderPacks(snapshot)
		},
	}

	cmd.Flags().StringVar(&bundle, "bundle", "", "Bundle whose "+constants.ToolchainExecutable+" executable lists the packs (default the listed directory)")
	_ = cmd.MarkFlagDirname("bundle")
	return cmd
}
