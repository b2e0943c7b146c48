package qlbundle

// Short messages (one-liners)
const (
	MsgRootShort = "Customize CodeQL bundles with your own packs"
	MsgRootLong  = `qlbundle adds packs to an extracted CodeQL bundle. Library and query packs
are compiled into the bundle, customization packs are woven into the standard
library pack they target, and every bundled query pack that depends on a
customized library is recompiled against it.`

	MsgCustomizeShort   = "Add workspace packs to a bundle"
	MsgCustomizeLong    = "Customize adds the named workspace packs to an extracted bundle, weaves customization packs into their base library packs and recompiles the query packs that depend on them."
	MsgCustomizeExample = `  qlbundle customize --bundle ./codeql --workspace . --packs acme/java-customizations
  qlbundle customize --bundle ./codeql-linux64 --workspace . \
      --packs acme/java-customizations,acme/java-queries \
      --platform ./codeql-osx64 --platform ./codeql-win64`
	MsgListShort       = "List the packs in a bundle or workspace"
	MsgListLong        = "List enumerates the packs below a directory with the toolchain and shows the role qlbundle assigns to each."
	MsgVersionShort    = "Print version information"
	MsgConfigShort     = "Print the effective configuration"
	MsgConfigLong      = "Config prints the configuration after defaults, config files, QLBUNDLE_* environment variables and flags have been merged, as TOML."
	MsgCompletionShort = "Generate shell completion script"

	// Flags
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig      = "Config file (TOML or YAML) read after the user config"
	MsgFlagConcurrency = "Packs woven or recompiled at once (0 for no limit)"
	MsgFlagToolchain   = "Path to the codeql executable (default <bundle>/codeql)"
	MsgFlagScratch     = "Parent directory of the run's scratch directory"
	MsgFlagNoColor     = "Disable colored output"
	MsgFlagBundle      = "Extracted bundle directory holding qlpacks/"
	MsgFlagWorkspace   = "Directory searched for the packs to add"
	MsgFlagPacks       = "Comma separated scoped names of the workspace packs to add"
	MsgFlagPlatform    = "Additional extracted bundle that receives the customized qlpacks/ (repeatable)"
	MsgFlagTag         = "Release tag of the bundle, recorded in the report"

	// Errors
	MsgErrNoCommand      = "no command specified"
	MsgErrLoadConfig     = "failed to load configuration: %w"
	MsgErrLoadStyles     = "failed to load styles: %w"
	MsgErrNoPacks        = "--packs names no pack"
	MsgErrCustomize      = "failed to customize bundle: %w"
	MsgErrRender         = "failed to render output: %w"
	MsgErrUnknownShell   = "unsupported shell %q"
	MsgVersionFormat     = "qlbundle version %s\n  commit: %s\n  built:  %s\n"
	MsgRunFailedFormat   = "run %s failed after %d stage(s)"
	MsgConfigEncodeError = "failed to encode configuration: %w"
)

// MsgUsageTemplate is cobra's usage template with grouped commands and bold
// headings.
const MsgUsageTemplate = `{{boldUpper "Usage"}}:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if .HasExample}}

{{boldUpper "Examples"}}:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{range $group := .Groups}}

{{bold .Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

{{bold "Additional Commands:"}}{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

{{boldUpper "Flags"}}:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

{{boldUpper "Global Flags"}}:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command,
or "{{.CommandPath}} help topics" for the available help topics.{{end}}
`
