package cascade_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/qlbundle/pkg/cascade"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/repository"
	"github.com/arthur-debert/qlbundle/pkg/testutil"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*testutil.TestBundle, *testutil.FakeToolchain, *cascade.Rebuilder) {
	t.Helper()
	b := testutil.NewTestBundle(t)
	fake := testutil.NewFakeToolchain(b.FS)
	r := cascade.New(cascade.Options{
		FS:          b.FS,
		Toolchain:   fake,
		BundleRoot:  b.Root,
		ScratchRoot: b.Scratch,
		Concurrency: 2,
	})
	return b, fake, r
}

func snapshot(t *testing.T, b *testutil.TestBundle, fake *testutil.FakeToolchain, root string) types.Snapshot {
	t.Helper()
	s, err := repository.New(fake, b.FS).Snapshot(context.Background(), root)
	require.NoError(t, err)
	return s
}

func TestCreateQueries(t *testing.T) {
	b, fake, r := setup(t)
	b.AddWorkspacePack(t, "queries", testutil.PackSpec{
		Name: "acme/java-queries", Version: "1.0.0",
		Dependencies: map[string]string{"codeql/java-all": "*"},
	})
	b.AddWorkspacePack(t, "more", testutil.PackSpec{Name: "acme/more-queries", Version: "0.1.0"})

	ws := snapshot(t, b, fake, b.Workspace)
	require.NoError(t, r.CreateQueries(context.Background(), ws.ByRole(types.RoleQuery)))

	assert.Equal(t, []string{"acme/java-queries", "acme/more-queries"}, fake.PacksFor("create"))
	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(b.PackDir("acme/java-queries", "1.0.0"), "qlpack.yml")))
	for _, c := range fake.Calls() {
		if c.Op == "create" {
			assert.Equal(t, b.QLPacks(), c.Output)
			assert.Equal(t, []string{b.Root}, c.AdditionalPacks)
		}
	}
}

func TestStale(t *testing.T) {
	pack := func(name string, role types.Role, deps ...string) types.Package {
		id, _ := types.ParseIdentity(name, "1.0.0")
		p := types.Package{Identity: id, Role: role}
		for _, d := range deps {
			p.Dependencies = append(p.Dependencies, types.Dependency{Name: d})
		}
		return p
	}
	live := types.NewSnapshot("/b", []types.Package{
		pack("codeql/java-queries", types.RoleQuery, "codeql/java-all"),
		pack("codeql/python-queries", types.RoleQuery, "codeql/python-all"),
		pack("codeql/java-tests", types.RoleLibrary, "codeql/java-all"),
	})

	stale := cascade.Stale(live, []string{"codeql/java-all"})
	require.Len(t, stale, 1)
	assert.Equal(t, "codeql/java-queries", stale[0].FullName())

	assert.Empty(t, cascade.Stale(live, nil))
}

func TestRebuild_RecompilesOnlyAffectedPacks(t *testing.T) {
	b, fake, r := setup(t)
	b.AddBundlePack(t, testutil.PackSpec{Name: "codeql/java-all", Version: "0.5.0", Library: true, Extractor: "java"})
	b.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/java-queries", Version: "0.5.0",
		Dependencies: map[string]string{"codeql/java-all": "${workspace}", "codeql/suite-helpers": "0.4.0"},
		Files:        map[string]string{"Query.qlx": "compiled"},
	})
	b.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/python-queries", Version: "0.7.0",
		Dependencies: map[string]string{"codeql/python-all": "*", "codeql/suite-helpers": "0.4.0"},
	})

	live := snapshot(t, b, fake, b.Root)
	recompiled, err := r.Rebuild(context.Background(), live, []string{"codeql/java-all"})
	require.NoError(t, err)

	require.Len(t, recompiled, 1)
	assert.Equal(t, "codeql/java-queries@0.5.0", recompiled[0].String())
	assert.Equal(t, []string{"codeql/java-queries"}, fake.PacksFor("recreate"))

	javaQueries := b.PackDir("codeql/java-queries", "0.5.0")
	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(javaQueries, testutil.RecreatedMarker)))
	assert.False(t, testutil.Exists(t, b.FS, filepath.Join(b.PackDir("codeql/python-queries", "0.7.0"), testutil.RecreatedMarker)))

	m, err := manifest.Load(b.FS, filepath.Join(javaQueries, "qlpack.yml"))
	require.NoError(t, err)
	deps, _ := m.Dependencies()
	assert.Equal(t, "*", deps["codeql/suite-helpers"])
	assert.Equal(t, "${workspace}", deps["codeql/java-all"])

	assert.Contains(t, b.Manifest(t, "codeql/python-queries", "0.7.0"), "0.4.0")
	assert.False(t, testutil.Exists(t, b.FS, filepath.Join(b.Scratch, "recreated-qlpacks")))
}

func TestRebuild_NothingStale(t *testing.T) {
	b, fake, r := setup(t)
	b.AddBundlePack(t, testutil.PackSpec{Name: "codeql/python-queries", Version: "0.7.0"})

	recompiled, err := r.Rebuild(context.Background(), snapshot(t, b, fake, b.Root), []string{"codeql/java-all"})
	require.NoError(t, err)
	assert.Empty(t, recompiled)
	assert.Empty(t, fake.PacksFor("recreate"))
}

func TestRebuild_FailureLeavesLiveCopyAndCleansScratch(t *testing.T) {
	b, fake, r := setup(t)
	b.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/java-queries", Version: "0.5.0",
		Dependencies: map[string]string{"codeql/java-all": "*"},
	})
	boom := errors.New("compile error")
	fake.Fail["recreate:codeql/java-queries"] = boom

	_, err := r.Rebuild(context.Background(), snapshot(t, b, fake, b.Root), []string{"codeql/java-all"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(b.PackDir("codeql/java-queries", "0.5.0"), "qlpack.yml")))
	assert.False(t, testutil.Exists(t, b.FS, filepath.Join(b.Scratch, "recreated-qlpacks")))
}

func TestPatchSuiteHelpers(t *testing.T) {
	b, _, _ := setup(t)

	withDeps := testutil.WritePack(t, b.FS, filepath.Join(b.Workspace, "a"), testutil.PackSpec{
		Name: "acme/a", Version: "1.0.0", Dependencies: map[string]string{"codeql/java-all": "*"},
	})
	changed, err := cascade.PatchSuiteHelpers(b.FS, withDeps, cascade.DefaultSuiteHelpers)
	require.NoError(t, err)
	assert.True(t, changed)
	m, err := manifest.Load(b.FS, withDeps)
	require.NoError(t, err)
	assert.True(t, m.HasDependency("codeql/suite-helpers"))

	noDeps := testutil.WritePack(t, b.FS, filepath.Join(b.Workspace, "b"), testutil.PackSpec{Name: "acme/b", Version: "1.0.0"})
	before := testutil.ReadFile(t, b.FS, noDeps)
	changed, err = cascade.PatchSuiteHelpers(b.FS, noDeps, cascade.DefaultSuiteHelpers)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, before, testutil.ReadFile(t, b.FS, noDeps))
}
