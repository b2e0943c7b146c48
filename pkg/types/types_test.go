package types

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentity(t *testing.T) {
	id, err := ParseIdentity("codeql/java-all", "0.5.0")
	require.NoError(t, err)
	assert.Equal(t, Identity{Scope: "codeql", Name: "java-all", Version: "0.5.0"}, id)
	assert.Equal(t, "codeql/java-all", id.FullName())
	assert.Equal(t, "codeql/java-all@0.5.0", id.String())
	assert.Equal(t, filepath.Join("codeql", "java-all", "0.5.0"), id.RelPath())

	for _, bad := range []string{"java-all", "/java-all", "codeql/", "a/b/c"} {
		_, err := ParseIdentity(bad, "1.0.0")
		assert.Error(t, err, bad)
	}
}

func TestRole_String(t *testing.T) {
	assert.Equal(t, "query", RoleQuery.String())
	assert.Equal(t, "library", RoleLibrary.String())
	assert.Equal(t, "customization", RoleCustomization.String())
	assert.Equal(t, "role(7)", Role(7).String())
}

func TestPackage_Paths(t *testing.T) {
	p := Package{
		Identity: Identity{Scope: "acme", Name: "java-customizations", Version: "1.0.0"},
		Path:     filepath.Join("/ws", "custom", "qlpack.yml"),
		Dependencies: []Dependency{
			{Name: "codeql/java-all", Constraint: "*"},
		},
	}

	assert.Equal(t, filepath.Join("/ws", "custom"), p.VersionDir())
	assert.Equal(t, filepath.Join("/ws", "custom", "acme", "java_customizations"), p.ExtensionDir())
	assert.Equal(t, "acme.java_customizations", p.ExtensionModule())
	assert.True(t, p.DependsOn("codeql/java-all"))
	assert.False(t, p.DependsOn("codeql/util"))
}

func TestSnapshot(t *testing.T) {
	pkg := func(name, version string, role Role) Package {
		id, err := ParseIdentity(name, version)
		require.NoError(t, err)
		return Package{Identity: id, Role: role}
	}

	s := NewSnapshot("/bundle/qlpacks", []Package{
		pkg("codeql/java-queries", "0.5.0", RoleQuery),
		pkg("codeql/java-all", "0.5.1", RoleLibrary),
		pkg("acme/java-customizations", "1.0.0", RoleCustomization),
		pkg("codeql/java-all", "0.5.0", RoleLibrary),
	})

	assert.Equal(t, []string{
		"acme/java-customizations", "codeql/java-all", "codeql/java-all", "codeql/java-queries",
	}, s.Names())
	assert.Equal(t, "0.5.0", s.Packages[1].Version, "versions of one pack are ordered")

	assert.Len(t, s.ByRole(RoleLibrary), 2)
	assert.Empty(t, NewSnapshot("/empty", nil).ByRole(RoleQuery))

	found, ok := s.Find("codeql/java-all")
	require.True(t, ok)
	assert.Equal(t, "0.5.0", found.Version)
	_, ok = s.Find("codeql/util")
	assert.False(t, ok)

	filtered := s.Filter([]string{"codeql/java-queries", "acme/java-customizations", "nope/x"})
	require.Len(t, filtered, 2)
	assert.Equal(t, "acme/java-customizations", filtered[0].FullName())
	assert.Equal(t, "codeql/java-queries", filtered[1].FullName())
}
