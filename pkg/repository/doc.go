// Package repository enumerates the packs below a root directory.
//
// The toolchain's introspection command finds the packs; each pack's
// qlpack.yml is then read directly because the on-disk manifest is
// authoritative for dependencies and the extractor, which the toolchain may
// report from a stale cache after qlbundle has edited a manifest.
package repository
