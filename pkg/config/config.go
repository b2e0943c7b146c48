package config

import (
	"strings"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"golang.org/x/mod/semver"
)

// Config is the full qlbundle configuration.
type Config struct {
	Toolchain   Toolchain   `koanf:"toolchain" toml:"toolchain"`
	Concurrency Concurrency `koanf:"concurrency" toml:"concurrency"`
	Scratch     Scratch     `koanf:"scratch" toml:"scratch"`
	Packs       Packs       `koanf:"packs" toml:"packs"`
	Output      Output      `koanf:"output" toml:"output"`
}

// Toolchain configures the external codeql executable.
type Toolchain struct {
	Path          string `koanf:"path" toml:"path"`
	QLXMinVersion string `koanf:"qlx_min_version" toml:"qlx_min_version"`
}

// Concurrency bounds the per-pack fan-out of the weave and cascade stages.
type Concurrency struct {
	Limit int `koanf:"limit" toml:"limit"`
}

// Scratch locates the run-scoped scratch directories.
type Scratch struct {
	Root string `koanf:"root" toml:"root"`
}

// Packs holds the pack names and files the weaver relies on.
type Packs struct {
	BaseScope     string `koanf:"base_scope" toml:"base_scope"`
	SuiteHelpers  string `koanf:"suite_helpers" toml:"suite_helpers"`
	ExtensionFile string `koanf:"extension_file" toml:"extension_file"`
}

// Output controls terminal rendering.
type Output struct {
	NoColor bool   `koanf:"no_color" toml:"no_color"`
	Styles  string `koanf:"styles" toml:"styles"`
}

// Default returns the configuration described by the embedded defaults.
func Default() *Config {
	cfg, _, err := Load(LoadOptions{SkipUserConfig: true})
	if err != nil {
		// the embedded defaults are covered by tests
		panic(err)
	}
	return cfg
}

// Validate checks values that would otherwise fail late, halfway through a
// run.
func (c *Config) Validate() error {
	if v := c.Toolchain.QLXMinVersion; v != "" {
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			return errors.Newf(errors.ErrConfigValid, "toolchain.qlx_min_version %q is not a semantic version",
				c.Toolchain.QLXMinVersion)
		}
	}
	if c.Packs.BaseScope == "" {
		return errors.New(errors.ErrConfigValid, "packs.base_scope must not be empty")
	}
	if c.Packs.ExtensionFile == "" {
		return errors.New(errors.ErrConfigValid, "packs.extension_file must not be empty")
	}
	if c.Packs.SuiteHelpers == "" {
		return errors.New(errors.ErrConfigValid, "packs.suite_helpers must not be empty")
	}
	return nil
}
