package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, k, err := Load(LoadOptions{SkipUserConfig: true})
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Toolchain.Path)
	assert.Equal(t, "2.11.4", cfg.Toolchain.QLXMinVersion)
	assert.Equal(t, 2, cfg.Concurrency.Limit)
	assert.Equal(t, "codeql/", cfg.Packs.BaseScope)
	assert.Equal(t, "codeql/suite-helpers", cfg.Packs.SuiteHelpers)
	assert.Equal(t, "Customizations.qll", cfg.Packs.ExtensionFile)
	assert.False(t, cfg.Output.NoColor)
	assert.Empty(t, cfg.Output.Styles)
	assert.Equal(t, int64(2), k.Int64("concurrency.limit"))
}

func TestLoad_Layers(t *testing.T) {
	user := writeConfig(t, "config.toml", `
[concurrency]
limit = 8

[packs]
suite_helpers = "acme/suite-helpers"
`)
	explicit := writeConfig(t, "run.toml", `
[concurrency]
limit = 4
`)

	t.Run("user_config", func(t *testing.T) {
		cfg, _, err := Load(LoadOptions{UserConfigFile: user})
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Concurrency.Limit)
		assert.Equal(t, "acme/suite-helpers", cfg.Packs.SuiteHelpers)
	})

	t.Run("explicit_file_wins_over_user_config", func(t *testing.T) {
		cfg, _, err := Load(LoadOptions{UserConfigFile: user, ConfigFile: explicit})
		require.NoError(t, err)
		assert.Equal(t, 4, cfg.Concurrency.Limit)
		assert.Equal(t, "acme/suite-helpers", cfg.Packs.SuiteHelpers)
	})

	t.Run("env_wins_over_files", func(t *testing.T) {
		t.Setenv("QLBUNDLE_CONCURRENCY__LIMIT", "3")
		t.Setenv("QLBUNDLE_TOOLCHAIN__QLX_MIN_VERSION", "2.12.0")
		cfg, _, err := Load(LoadOptions{UserConfigFile: user, ConfigFile: explicit})
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Concurrency.Limit)
		assert.Equal(t, "2.12.0", cfg.Toolchain.QLXMinVersion)
	})

	t.Run("flags_win_over_env", func(t *testing.T) {
		t.Setenv("QLBUNDLE_CONCURRENCY__LIMIT", "3")
		cfg, _, err := Load(LoadOptions{
			UserConfigFile: user,
			Overrides:      map[string]interface{}{"concurrency.limit": 1, "toolchain.path": "/opt/codeql/codeql"},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Concurrency.Limit)
		assert.Equal(t, "/opt/codeql/codeql", cfg.Toolchain.Path)
	})
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, "qlbundle.yaml", "scratch:\n  root: /var/tmp/qlbundle\n")

	cfg, _, err := Load(LoadOptions{SkipUserConfig: true, ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "/var/tmp/qlbundle", cfg.Scratch.Root)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing_explicit_file", func(t *testing.T) {
		_, _, err := Load(LoadOptions{SkipUserConfig: true, ConfigFile: filepath.Join(t.TempDir(), "nope.toml")})
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
	})

	t.Run("malformed_file", func(t *testing.T) {
		path := writeConfig(t, "bad.toml", "[concurrency\nlimit = ")
		_, _, err := Load(LoadOptions{SkipUserConfig: true, ConfigFile: path})
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
	})

	t.Run("invalid_qlx_version", func(t *testing.T) {
		_, _, err := Load(LoadOptions{
			SkipUserConfig: true,
			Overrides:      map[string]interface{}{"toolchain.qlx_min_version": "latest"},
		})
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
	})

	t.Run("empty_base_scope", func(t *testing.T) {
		_, _, err := Load(LoadOptions{
			SkipUserConfig: true,
			Overrides:      map[string]interface{}{"packs.base_scope": ""},
		})
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
	})
}

func TestValidate_EmptyQLXMinVersionDisablesPrecompile(t *testing.T) {
	cfg := Default()
	cfg.Toolchain.QLXMinVersion = ""
	assert.NoError(t, cfg.Validate())
}

func TestGlobalConfig(t *testing.T) {
	t.Cleanup(func() { globalConfig = nil })

	globalConfig = nil
	assert.Equal(t, Default(), Get())

	custom := Default()
	custom.Concurrency.Limit = 16
	Initialize(custom)
	assert.Equal(t, 16, Get().Concurrency.Limit)
}

func TestDefaultsContent(t *testing.T) {
	assert.Contains(t, DefaultsContent(), "[toolchain]")
}
