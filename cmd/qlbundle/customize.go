package qlbundle

import (
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/qlbundle/pkg/config"
	"github.com/arthur-debert/qlbundle/pkg/filesystem"
	"github.com/arthur-debert/qlbundle/pkg/pipeline"
	"github.com/arthur-debert/qlbundle/pkg/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type customizeOptions struct {
	bundle    string
	workspace string
	packs     string
	platforms []string
	tag       string
}

func newCustomizeCmd() *cobra.Command {
	opts := &customizeOptions{}

	cmd := &cobra.Command{
		Use:     "customize",
		Short:   MsgCustomizeShort,
		Long:    MsgCustomizeLong,
		Example: MsgCustomizeExample,
		GroupID: "bundle",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCustomize(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.bundle, "bundle", "", MsgFlagBundle)
	cmd.Flags().StringVar(&opts.workspace, "workspace", ".", MsgFlagWorkspace)
	cmd.Flags().StringVar(&opts.packs, "packs", "", MsgFlagPacks)
	cmd.Flags().StringArrayVar(&opts.platforms, "platform", nil, MsgFlagPlatform)
	cmd.Flags().StringVar(&opts.tag, "tag", "", MsgFlagTag)
	_ = cmd.MarkFlagRequired("bundle")
	_ = cmd.MarkFlagRequired("packs")
	_ = cmd.MarkFlagDirname("bundle")
	_ = cmd.MarkFlagDirname("workspace")
	_ = cmd.MarkFlagDirname("platform")

	return cmd
}

func runCustomize(cmd *cobra.Command, opts *customizeOptions) error {
	cfg := config.Get()

	packs := repository.ParsePackList(opts.packs)
	if len(packs) == 0 {
		return fmt.Errorf(MsgErrNoPacks)
	}

	bundle, err := filepath.Abs(opts.bundle)
	if err != nil {
		return err
	}
	workspace, err := filepath.Abs(opts.workspace)
	if err != nil {
		return err
	}
	platforms := make([]string, 0, len(opts.platforms))
	for _, p := range opts.platforms {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		platforms = append(platforms, abs)
	}

	runID := uuid.NewString()
	scratch := pipeline.ScratchDir(cfg.Scratch.Root, runID)
	tc := toolchainFor(bundle, filepath.Join(scratch, "toolchain"))

	renderer, err := newRenderer(cmd)
	if err != nil {
		return fmt.Errorf(MsgErrRender, err)
	}

	report, runErr := pipeline.New(filesystem.NewOS(), tc).Run(cmd.Context(), pipeline.Options{
		BundleRoot:    bundle,
		Workspace:     workspace,
		Packs:         packs,
		Platforms:     platforms,
		Tag:           opts.tag,
		RunID:         runID,
		ScratchRoot:   scratch,
		Concurrency:   cfg.Concurrency.Limit,
		BaseScope:     cfg.Packs.BaseScope,
		SuiteHelpers:  cfg.Packs.SuiteHelpers,
		ExtensionFile: cfg.Packs.ExtensionFile,
	})
	if runErr != nil {
		if report != nil {
			log.Debug().Msgf(MsgRunFailedFormat, report.RunID, len(report.Stages))
		}
		return fmt.Errorf(MsgErrCustomize, runErr)
	}

	if err := renderer.RenderReport(report); err != nil {
		return fmt.Errorf(MsgErrRender, err)
	}
	return nil
}
