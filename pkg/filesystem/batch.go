package filesystem

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/spf13/afero"
)

// Batch plans tree operations and runs them as one synthfs pipeline. The
// operations run in the order they were added and the first failure stops
// the batch.
type Batch struct {
	fs  afero.Fs
	sfs *synthfs.SynthFS
	ops []synthfs.Operation
	err error
}

// NewBatch starts an empty batch on fs.
func NewBatch(fs afero.Fs) *Batch {
	return &Batch{fs: fs, sfs: synthfs.New()}
}

// Len is the number of planned operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Delete removes path recursively. A path that does not exist when the
// batch is planned is skipped.
func (b *Batch) Delete(path string) *Batch {
	if b.err != nil {
		return b
	}
	ok, err := Exists(b.fs, path)
	if err != nil {
		b.err = err
		return b
	}
	if ok {
		b.add(b.sfs.DeleteWithID(b.nextID("delete", path), path))
	}
	return b
}

// Move renames src to dst, creating dst's parent. When the rename fails,
// for example across devices, the tree is copied and src removed. dst must
// not exist when the operation runs.
func (b *Batch) Move(src, dst string) *Batch {
	if b.err != nil {
		return b
	}
	rename := b.sfs.Move(src, dst)
	b.add(b.sfs.CustomOperationWithID(b.nextID("move", dst), func(ctx context.Context, fsys synthfs.FileSystem) error {
		if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		if err := rename.Execute(ctx, fsys); err == nil {
			return nil
		}
		// synthfs cannot copy a directory on its own
		if err := copyTree(ctx, b.sfs, fsys, src, dst); err != nil {
			return err
		}
		return fsys.RemoveAll(src)
	}))
	return b
}

// CopyTree copies the directory src to dst, creating dst and any missing
// parents. Existing files in dst are overwritten.
func (b *Batch) CopyTree(src, dst string) *Batch {
	if b.err != nil {
		return b
	}
	b.add(b.sfs.CustomOperationWithID(b.nextID("copy-tree", dst), func(ctx context.Context, fsys synthfs.FileSystem) error {
		return copyTree(ctx, b.sfs, fsys, src, dst)
	}))
	return b
}

// Run executes the planned operations. An empty batch is a no-op.
func (b *Batch) Run(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if len(b.ops) == 0 {
		return nil
	}
	_, err := synthfs.RunWithOptions(ctx, synthFS{fs: b.fs}, synthfs.DefaultPipelineOptions(), b.ops...)
	return err
}

// add chains op after the previous operation so the pipeline keeps the
// planned order.
func (b *Batch) add(op synthfs.Operation) {
	if n := len(b.ops); n > 0 {
		op.AddDependency(b.ops[n-1].ID())
	}
	b.ops = append(b.ops, op)
}

func (b *Batch) nextID(kind, path string) string {
	return fmt.Sprintf("%s-%d-%s", kind, len(b.ops), path)
}

func copyTree(ctx context.Context, sfs *synthfs.SynthFS, fsys synthfs.FileSystem, src, dst string) error {
	stat, ok := fsys.(synthfs.StatFS)
	if !ok {
		return fmt.Errorf("copy tree: filesystem does not support stat")
	}
	info, err := stat.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("copy tree: %s is not a directory", src)
	}
	tree := sfs.NewCopyTreeOperation(src, dst, synthfs.CopyTreeOptions{PreservePermissions: true})
	return tree.Execute(ctx, fsys)
}
