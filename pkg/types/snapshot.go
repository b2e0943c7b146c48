package types

import "sort"

// Snapshot is one enumeration of the packs below a root directory. Stages of
// the pipeline each consume a snapshot and the live repository is enumerated
// again after it has been mutated.
type Snapshot struct {
	Root     string
	Packages []Package
}

// NewSnapshot returns a snapshot with packages sorted by name then version.
func NewSnapshot(root string, packages []Package) Snapshot {
	sorted := append([]Package(nil), packages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FullName() != sorted[j].FullName() {
			return sorted[i].FullName() < sorted[j].FullName()
		}
		return sorted[i].Version < sorted[j].Version
	})
	return Snapshot{Root: root, Packages: sorted}
}

// ByRole returns the packages with the given role.
func (s Snapshot) ByRole(role Role) []Package {
	var out []Package
	for _, p := range s.Packages {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// Find returns the first package with the given scoped name.
func (s Snapshot) Find(fullName string) (Package, bool) {
	for _, p := range s.Packages {
		if p.FullName() == fullName {
			return p, true
		}
	}
	return Package{}, false
}

// Names returns the scoped names of all packages.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.Packages))
	for _, p := range s.Packages {
		names = append(names, p.FullName())
	}
	return names
}

// Filter returns the packages whose scoped name is in names, in snapshot order.
func (s Snapshot) Filter(names []string) []Package {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Package
	for _, p := range s.Packages {
		if want[p.FullName()] {
			out = append(out, p)
		}
	}
	return out
}
