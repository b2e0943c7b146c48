package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Role is the part a pack plays when customizing a bundle.
type Role int

const (
	RoleQuery Role = iota
	RoleLibrary
	RoleCustomization
)

func (r Role) String() string {
	switch r {
	case RoleQuery:
		return "query"
	case RoleLibrary:
		return "library"
	case RoleCustomization:
		return "customization"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Identity is the (scope, name, version) triple that locates a pack in a
// repository.
type Identity struct {
	Scope   string
	Name    string
	Version string
}

// ParseIdentity builds an Identity from a scoped pack name such as
// "codeql/java-all" and a version.
func ParseIdentity(fullName, version string) (Identity, error) {
	scope, name, ok := strings.Cut(fullName, "/")
	if !ok || scope == "" || name == "" || strings.Contains(name, "/") {
		return Identity{}, fmt.Errorf("pack name %q is not of the form scope/name", fullName)
	}
	return Identity{Scope: scope, Name: name, Version: version}, nil
}

// FullName returns "scope/name".
func (i Identity) FullName() string {
	return i.Scope + "/" + i.Name
}

// RelPath returns the scope/name/version path of the pack below qlpacks/.
func (i Identity) RelPath() string {
	return filepath.Join(i.Scope, i.Name, i.Version)
}

func (i Identity) String() string {
	return i.FullName() + "@" + i.Version
}

// Dependency is a declared dependency of a pack on another pack.
type Dependency struct {
	Name       string
	Constraint string
}

// Package is a pack as seen by one enumeration of a repository.
type Package struct {
	Identity

	Role Role
	// Path is the location of the pack's qlpack.yml.
	Path         string
	Library      bool
	Dependencies []Dependency
	// CompatibilityTag is the extractor the pack targets, empty when unset.
	CompatibilityTag string
}

// VersionDir is the directory holding the pack's manifest.
func (p Package) VersionDir() string {
	return filepath.Dir(p.Path)
}

// DependsOn reports whether the pack declares a dependency on name.
func (p Package) DependsOn(name string) bool {
	for _, dep := range p.Dependencies {
		if dep.Name == name {
			return true
		}
	}
	return false
}

// ExtensionModule is the QL module path of the pack's customizations, e.g.
// "acme/java-customizations" becomes "acme.java_customizations".
func (p Package) ExtensionModule() string {
	return strings.ReplaceAll(strings.ReplaceAll(p.FullName(), "-", "_"), "/", ".")
}

// ExtensionDir is the directory a customization pack keeps its extension
// file in: <versionDir>/<scope>/<name with dashes as underscores>.
func (p Package) ExtensionDir() string {
	return filepath.Join(p.VersionDir(), p.Scope, strings.ReplaceAll(p.Name, "-", "_"))
}

// RawPackage is a pack as reported by the toolchain's introspection command,
// before the on-disk manifest has been consulted.
type RawPackage struct {
	Path         string
	Name         string
	Version      string
	Library      bool
	Extractor    string
	Dependencies []Dependency
}

// VersionInfo is the toolchain's self-reported version.
type VersionInfo struct {
	ProductName      string `json:"productName"`
	Version          string `json:"version"`
	UnpackedLocation string `json:"unpackedLocation"`
}
