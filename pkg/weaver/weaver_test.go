package weaver_test

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/manifest"
	"github.com/arthur-debert/qlbundle/pkg/repository"
	"github.com/arthur-debert/qlbundle/pkg/testutil"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/arthur-debert/qlbundle/pkg/weaver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	bundle *testutil.TestBundle
	fake   *testutil.FakeToolchain
	view   *repository.View
	weaver *weaver.Weaver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	b := testutil.NewTestBundle(t)
	fake := testutil.NewFakeToolchain(b.FS)
	return &fixture{
		bundle: b,
		fake:   fake,
		view:   repository.New(fake, b.FS),
		weaver: weaver.New(weaver.Options{
			FS:          b.FS,
			Toolchain:   fake,
			BundleRoot:  b.Root,
			ScratchRoot: b.Scratch,
			Concurrency: 2,
		}),
	}
}

func (f *fixture) snapshots(t *testing.T) (customizations []types.Package, live types.Snapshot) {
	t.Helper()
	ws, err := f.view.Snapshot(context.Background(), f.bundle.Workspace)
	require.NoError(t, err)
	live, err = f.view.Snapshot(context.Background(), f.bundle.Root)
	require.NoError(t, err)
	return ws.ByRole(types.RoleCustomization), live
}

var javaAll = testutil.PackSpec{
	Name:           "codeql/java-all",
	Version:        "0.5.0",
	Library:        true,
	Extractor:      "java",
	ExtensionPoint: true,
	Dependencies:   map[string]string{"codeql/util": "0.0.1"},
}

var javaCustomizations = testutil.PackSpec{
	Name:          "acme/java-customizations",
	Version:       "1.0.0",
	Library:       true,
	Extractor:     "java",
	Customization: true,
	Dependencies:  map[string]string{"codeql/java-all": "*"},
}

func deps(t *testing.T, f *fixture, path string) map[string]string {
	t.Helper()
	m, err := manifest.Load(f.bundle.FS, path)
	require.NoError(t, err)
	d, _ := m.Dependencies()
	return d
}

func TestWeave_WiresCustomizationIntoBase(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)
	customManifest := f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)

	customizations, live := f.snapshots(t)
	require.Len(t, customizations, 1)

	result, err := f.weaver.Weave(context.Background(), customizations, live)
	require.NoError(t, err)

	assert.Equal(t, []string{"codeql/java-all"}, result.WovenNames())
	require.Len(t, result.Targets, 1)
	assert.Equal(t, "acme/java-customizations", result.Targets[0].Customization.FullName())

	baseDir := f.bundle.PackDir("codeql/java-all", "0.5.0")
	assert.Equal(t, map[string]string{
		"codeql/util":              "0.0.1",
		"acme/java-customizations": "1.0.0",
	}, deps(t, f, filepath.Join(baseDir, "qlpack.yml")))

	// The reverse edge is gone from the workspace source and the bundled copy.
	assert.NotContains(t, deps(t, f, customManifest), "codeql/java-all")
	bundled := filepath.Join(f.bundle.PackDir("acme/java-customizations", "1.0.0"), "qlpack.yml")
	assert.NotContains(t, deps(t, f, bundled), "codeql/java-all")

	ext := testutil.ReadFile(t, f.bundle.FS, filepath.Join(baseDir, "Customizations.qll"))
	assert.Equal(t, "// extension point\n\nimport acme.java_customizations.Customizations\n", ext)

	assert.False(t, testutil.Exists(t, f.bundle.FS, filepath.Join(f.bundle.Scratch, "standard-qlpacks")))
	assert.False(t, testutil.Exists(t, f.bundle.FS, filepath.Join(f.bundle.Scratch, "repacked-qlpacks")))
}

func TestWeave_ToolchainCalls(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)
	f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)
	require.NoError(t, err)

	var bundled, rebundled *testutil.ToolchainCall
	for _, c := range f.fake.Calls() {
		switch c.Op {
		case "bundle":
			bundled = &c
		case "rebundle":
			rebundled = &c
		}
	}
	require.NotNil(t, bundled)
	require.NotNil(t, rebundled)

	assert.Equal(t, "acme/java-customizations", bundled.Pack)
	assert.Equal(t, f.bundle.QLPacks(), bundled.Output)
	assert.Equal(t, []string{f.bundle.Root}, bundled.AdditionalPacks)

	assert.Equal(t, "codeql/java-all", rebundled.Pack)
	assert.Equal(t, filepath.Join(f.bundle.Scratch, "repacked-qlpacks"), rebundled.Output)
	assert.Equal(t, []string{f.bundle.Root}, rebundled.AdditionalPacks)
}

func TestWeave_DropsEmptiedDependencyBlock(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)
	customManifest := f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)
	require.NoError(t, err)

	m, err := manifest.Load(f.bundle.FS, customManifest)
	require.NoError(t, err)
	_, present := m.Dependencies()
	assert.False(t, present)
}

func TestWeave_MultipleLanguages(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)
	f.bundle.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/python-all", Version: "0.7.0", Library: true, Extractor: "python", ExtensionPoint: true,
	})
	f.bundle.AddWorkspacePack(t, "java", javaCustomizations)
	f.bundle.AddWorkspacePack(t, "python", testutil.PackSpec{
		Name: "acme/python-customizations", Version: "2.0.0", Library: true, Extractor: "python", Customization: true,
	})

	customizations, live := f.snapshots(t)
	result, err := f.weaver.Weave(context.Background(), customizations, live)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"codeql/java-all", "codeql/python-all"}, result.WovenNames())
	assert.Contains(t, deps(t, f, filepath.Join(f.bundle.PackDir("codeql/python-all", "0.7.0"), "qlpack.yml")),
		"acme/python-customizations")
}

func TestWeave_IgnoresLibrariesOutsideBaseScope(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)
	f.bundle.AddBundlePack(t, testutil.PackSpec{
		Name: "acme/java-helpers", Version: "1.0.0", Library: true, Extractor: "java",
	})
	f.bundle.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/java-queries", Version: "0.5.0", Extractor: "java",
	})
	f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)

	customizations, live := f.snapshots(t)
	result, err := f.weaver.Weave(context.Background(), customizations, live)
	require.NoError(t, err)
	assert.Equal(t, []string{"codeql/java-all"}, result.WovenNames())
}

// unchanged records the content of paths and returns a check that they
// still hold it.
func unchanged(t *testing.T, f *fixture, paths ...string) func() {
	t.Helper()
	before := map[string]string{}
	for _, p := range paths {
		before[p] = testutil.ReadFile(t, f.bundle.FS, p)
	}
	return func() {
		for _, p := range paths {
			assert.Equal(t, before[p], testutil.ReadFile(t, f.bundle.FS, p), p)
		}
	}
}

func TestWeave_AmbiguousBase(t *testing.T) {
	f := newFixture(t)
	a := f.bundle.AddBundlePack(t, javaAll)
	b := f.bundle.AddBundlePack(t, testutil.PackSpec{
		Name: "codeql/java-legacy-all", Version: "0.1.0", Library: true, Extractor: "java", ExtensionPoint: true,
	})
	c := f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)
	check := unchanged(t, f, a, b, c)

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)

	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAmbiguousOrMissingBase))
	assert.Contains(t, err.Error(), "codeql/java-all")
	assert.Contains(t, err.Error(), "codeql/java-legacy-all")
	assert.Equal(t, []string{"codeql/java-all", "codeql/java-legacy-all"}, errors.GetErrorDetails(err)["candidates"])
	assert.Empty(t, f.fake.PacksFor("bundle"))
	check()
}

func TestWeave_MissingBase(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)

	assert.True(t, errors.IsErrorCode(err, errors.ErrAmbiguousOrMissingBase))
	assert.Contains(t, err.Error(), "found 0 compatible base packs")
}

func TestWeave_MissingCompatibilityTag(t *testing.T) {
	f := newFixture(t)
	base := f.bundle.AddBundlePack(t, javaAll)
	spec := javaCustomizations
	spec.Extractor = ""
	c := f.bundle.AddWorkspacePack(t, "custom", spec)
	check := unchanged(t, f, base, c)

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)

	assert.True(t, errors.IsErrorCode(err, errors.ErrMissingCompatibilityTag))
	assert.Contains(t, err.Error(), "acme/java-customizations")
	check()
}

func TestWeave_TwoCustomizationsForOneBase(t *testing.T) {
	f := newFixture(t)
	base := f.bundle.AddBundlePack(t, javaAll)
	c1 := f.bundle.AddWorkspacePack(t, "one", javaCustomizations)
	c2 := f.bundle.AddWorkspacePack(t, "two", testutil.PackSpec{
		Name: "acme/more-java-customizations", Version: "1.0.0", Library: true, Extractor: "java", Customization: true,
	})
	check := unchanged(t, f, base, c1, c2)

	customizations, live := f.snapshots(t)
	require.Len(t, customizations, 2)
	_, err := f.weaver.Weave(context.Background(), customizations, live)

	assert.True(t, errors.IsErrorCode(err, errors.ErrUnsupportedConfig))
	assert.Contains(t, err.Error(), "codeql/java-all")
	assert.Empty(t, f.fake.PacksFor("bundle"))
	check()
}

func TestWeave_ToolchainFailureCleansScratch(t *testing.T) {
	f := newFixture(t)
	base := f.bundle.AddBundlePack(t, javaAll)
	f.bundle.AddWorkspacePack(t, "custom", javaCustomizations)
	check := unchanged(t, f, base)
	boom := stderrors.New("rebundle failed")
	f.fake.Fail["rebundle:codeql/java-all"] = boom

	customizations, live := f.snapshots(t)
	_, err := f.weaver.Weave(context.Background(), customizations, live)

	assert.ErrorIs(t, err, boom)
	assert.False(t, testutil.Exists(t, f.bundle.FS, filepath.Join(f.bundle.Scratch, "standard-qlpacks")))
	assert.False(t, testutil.Exists(t, f.bundle.FS, filepath.Join(f.bundle.Scratch, "repacked-qlpacks")))
	check()
}

func TestWeave_NothingToDo(t *testing.T) {
	f := newFixture(t)
	f.bundle.AddBundlePack(t, javaAll)

	result, err := f.weaver.Weave(context.Background(), nil, types.Snapshot{})
	require.NoError(t, err)
	assert.Empty(t, result.Woven)
	assert.Empty(t, f.fake.Calls())
}
