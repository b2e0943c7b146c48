package qlbundle

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/arthur-debert/qlbundle/internal/version"
	"github.com/arthur-debert/qlbundle/pkg/cobrax/topics"
	"github.com/arthur-debert/qlbundle/pkg/config"
	"github.com/arthur-debert/qlbundle/pkg/constants"
	"github.com/arthur-debert/qlbundle/pkg/logging"
	"github.com/arthur-debert/qlbundle/pkg/output"
	"github.com/arthur-debert/qlbundle/pkg/output/styles"
	"github.com/arthur-debert/qlbundle/pkg/toolchain"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed topics
var topicsFS embed.FS

// newToolchain builds the toolchain the commands drive. Tests replace it.
var newToolchain = func(opts toolchain.Options) toolchain.Toolchain {
	return toolchain.New(opts)
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	verbosity   int
	configFile  string
	concurrency int
	toolchain   string
	scratch     string
	noColor     bool
}

// overrides turns the flags the user set into dotted config keys, so that
// unset flags leave config files and env vars in charge.
func (o *globalOptions) overrides(cmd *cobra.Command) map[string]interface{} {
	flags := cmd.Flags()
	out := map[string]interface{}{}
	if flags.Changed("concurrency") {
		out["concurrency.limit"] = o.concurrency
	}
	if flags.Changed("toolchain") {
		out["toolchain.path"] = o.toolchain
	}
	if flags.Changed("scratch") {
		out["scratch.root"] = o.scratch
	}
	if flags.Changed("no-color") {
		out["output.no_color"] = o.noColor
	}
	return out
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	initTemplateFormatting()

	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "qlbundle",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(opts.verbosity, opts.noColor || output.ColorDisabled(os.Stderr))
			log.Debug().Str("command", cmd.Name()).Msg("Command started")

			cfg, _, err := config.Load(config.LoadOptions{
				ConfigFile: opts.configFile,
				Overrides:  opts.overrides(cmd),
			})
			if err != nil {
				return fmt.Errorf(MsgErrLoadConfig, err)
			}
			config.Initialize(cfg)

			if cfg.Output.Styles != "" {
				if err := styles.LoadStylesFile(cfg.Output.Styles); err != nil {
					return fmt.Errorf(MsgErrLoadStyles, err)
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf(MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	flags.StringVar(&opts.configFile, "config", "", MsgFlagConfig)
	flags.IntVar(&opts.concurrency, "concurrency", 2, MsgFlagConcurrency)
	flags.StringVar(&opts.toolchain, "toolchain", "", MsgFlagToolchain)
	flags.StringVar(&opts.scratch, "scratch", "", MsgFlagScratch)
	flags.BoolVar(&opts.noColor, "no-color", false, MsgFlagNoColor)

	rootCmd.AddGroup(&cobra.Group{ID: "bundle", Title: "COMMANDS:"})
	rootCmd.AddGroup(&cobra.Group{ID: "misc", Title: "MISC:"})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newCustomizeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	helpTopics, err := fs.Sub(topicsFS, "topics")
	if err == nil {
		_, err = topics.InitializeWithOptions(rootCmd, helpTopics, topics.Options{
			Renderer: topics.NewGlamourRenderer(output.ColorDisabled(rootCmd.OutOrStdout())),
		})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}
	rootCmd.SetHelpCommandGroupID("misc")
	return rootCmd
}

// newRenderer creates a renderer on the command's output honoring the
// configured color setting.
func newRenderer(cmd *cobra.Command) (*output.Renderer, error) {
	return output.NewRenderer(cmd.OutOrStdout(), config.Get().Output.NoColor)
}

// toolchainFor returns a toolchain client for a bundle. The executable comes
// from the config or, when unset, from the bundle itself.
func toolchainFor(bundle, scratch string) toolchain.Toolchain {
	cfg := config.Get()
	executable := cfg.Toolchain.Path
	if executable == "" {
		executable = filepath.Join(bundle, constants.ToolchainExecutable)
	}
	return newToolchain(toolchain.Options{
		Executable:    executable,
		ScratchRoot:   scratch,
		QLXMinVersion: cfg.Toolchain.QLXMinVersion,
	})
}
