// Package types defines the core data model shared by the qlbundle packages:
// pack identities, roles, dependencies and enumeration snapshots of a pack
// repository.
package types
