// Package filesystem provides the filesystem used by qlbundle.
//
// Every component takes an afero.Fs so tests can run against an in-memory or
// temp-dir rooted filesystem. Tree operations on packs (staging copies,
// promotion into qlpacks/, scratch moves) are planned as a Batch and run
// through a synthfs pipeline on top of the same afero filesystem. Manifest
// reads and writes go through afero directly.
package filesystem
