package mutator_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/arthur-debert/qlbundle/pkg/mutator"
	"github.com/arthur-debert/qlbundle/pkg/testutil"
	"github.com/arthur-debert/qlbundle/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var javaAll = types.Identity{Scope: "codeql", Name: "java-all", Version: "0.5.0"}

// noRenameFs refuses renames, as when scratch and the bundle sit on
// different devices.
type noRenameFs struct {
	afero.Fs
}

func (noRenameFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: syscall.EXDEV}
}

func TestReplace_IsNotAMerge(t *testing.T) {
	b := testutil.NewTestBundle(t)
	live := b.PackDir("codeql/java-all", "0.5.0")
	testutil.WriteFiles(t, b.FS, live, map[string]string{
		"qlpack.yml": "name: codeql/java-all\nversion: 0.5.0\n",
		"old.qll":    "stale",
	})
	staged := filepath.Join(b.Scratch, "repacked", "codeql", "java-all", "0.5.0")
	testutil.WriteFiles(t, b.FS, staged, map[string]string{
		"qlpack.yml": "name: codeql/java-all\nversion: 0.5.0\ndependencies:\n  acme/x: 1.0.0\n",
		"new.qll":    "fresh",
	})

	m := mutator.New(b.FS, b.Root)
	require.NoError(t, m.Replace(javaAll, staged))

	assert.Equal(t, live, m.LivePath(javaAll))
	assert.False(t, testutil.Exists(t, b.FS, filepath.Join(live, "old.qll")))
	assert.Equal(t, "fresh", testutil.ReadFile(t, b.FS, filepath.Join(live, "new.qll")))
	assert.Contains(t, b.Manifest(t, "codeql/java-all", "0.5.0"), "acme/x")
	assert.False(t, testutil.Exists(t, b.FS, staged))
}

func TestReplace_NoPriorCopy(t *testing.T) {
	b := testutil.NewTestBundle(t)
	staged := filepath.Join(b.Scratch, "codeql", "java-all", "0.5.0")
	testutil.WriteFiles(t, b.FS, staged, map[string]string{"qlpack.yml": "name: codeql/java-all\n"})

	m := mutator.New(b.FS, b.Root)
	require.NoError(t, m.Replace(javaAll, staged))
	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(m.LivePath(javaAll), "qlpack.yml")))
}

func TestReplace_MissingStagedCopy(t *testing.T) {
	b := testutil.NewTestBundle(t)
	err := mutator.New(b.FS, b.Root).Replace(javaAll, filepath.Join(b.Scratch, "nothing"))
	assert.True(t, errors.IsErrorCode(err, errors.ErrFileMove))
}

func TestReplace_MissingStagedCopyKeepsLivePack(t *testing.T) {
	b := testutil.NewTestBundle(t)
	live := b.PackDir("codeql/java-all", "0.5.0")
	testutil.WriteFiles(t, b.FS, live, map[string]string{"qlpack.yml": "name: codeql/java-all\n"})

	m := mutator.New(b.FS, b.Root)
	err := m.Replace(javaAll, filepath.Join(b.Scratch, "nothing"))
	require.Error(t, err)
	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(live, "qlpack.yml")))
}

func TestReplace_AcrossDevices(t *testing.T) {
	b := testutil.NewTestBundle(t)
	fs := noRenameFs{Fs: b.FS}
	live := b.PackDir("codeql/java-all", "0.5.0")
	testutil.WriteFiles(t, fs, live, map[string]string{"old.qll": "stale"})
	staged := filepath.Join(b.Scratch, "repacked", "codeql", "java-all", "0.5.0")
	testutil.WriteFiles(t, fs, staged, map[string]string{"new.qll": "fresh"})

	require.NoError(t, mutator.New(fs, b.Root).Replace(javaAll, staged))

	assert.False(t, testutil.Exists(t, fs, filepath.Join(live, "old.qll")))
	assert.Equal(t, "fresh", testutil.ReadFile(t, fs, filepath.Join(live, "new.qll")))
	assert.False(t, testutil.Exists(t, fs, staged))
}

func TestPromoteAll(t *testing.T) {
	b := testutil.NewTestBundle(t)
	staging := filepath.Join(b.Scratch, "recreated")
	ids := []types.Identity{
		{Scope: "acme", Name: "a", Version: "1.0.0"},
		{Scope: "acme", Name: "b", Version: "2.0.0"},
	}
	for _, id := range ids {
		testutil.WriteFiles(t, b.FS, filepath.Join(staging, id.RelPath()), map[string]string{"qlpack.yml": "name: " + id.FullName()})
	}

	m := mutator.New(b.FS, b.Root)
	require.NoError(t, m.PromoteAll(ids, staging))
	for _, id := range ids {
		assert.True(t, testutil.Exists(t, b.FS, filepath.Join(m.LivePath(id), "qlpack.yml")))
	}
}

func TestPurge(t *testing.T) {
	b := testutil.NewTestBundle(t)
	testutil.WriteFiles(t, b.FS, b.Scratch, map[string]string{"a/b/c": "x"})

	m := mutator.New(b.FS, b.Root)
	require.NoError(t, m.Purge(b.Scratch))
	assert.False(t, testutil.Exists(t, b.FS, b.Scratch))

	// idempotent
	require.NoError(t, m.Purge(b.Scratch))
}

func TestReplaceTree(t *testing.T) {
	b := testutil.NewTestBundle(t)
	b.AddBundlePack(t, testutil.PackSpec{Name: "codeql/java-all", Version: "0.5.0", Library: true})
	other := filepath.Join(filepath.Dir(b.Root), "codeql-osx64")
	testutil.WriteFiles(t, b.FS, filepath.Join(other, "qlpacks"), map[string]string{"stale/pack/1.0.0/qlpack.yml": "x"})

	require.NoError(t, mutator.New(b.FS, b.Root).ReplaceTree(other))

	assert.True(t, testutil.Exists(t, b.FS, filepath.Join(other, "qlpacks", "codeql", "java-all", "0.5.0", "qlpack.yml")))
	assert.False(t, testutil.Exists(t, b.FS, filepath.Join(other, "qlpacks", "stale")))
}
