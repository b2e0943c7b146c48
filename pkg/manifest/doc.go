// Package manifest loads, edits and saves qlpack.yml manifests.
//
// A manifest is kept as a YAML node tree rather than decoded into a struct so
// that keys qlbundle does not know about, key order and comments survive an
// edit. The absence of a dependencies block and an empty dependencies block
// are distinct and round-trip as such.
package manifest
