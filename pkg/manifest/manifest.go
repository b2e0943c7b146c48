package manifest

import (
	"bytes"
	"fmt"

	"github.com/arthur-debert/qlbundle/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	keyName         = "name"
	keyVersion      = "version"
	keyLibrary      = "library"
	keyExtractor    = "extractor"
	keyDependencies = "dependencies"
)

// Manifest is an editable qlpack.yml document.
type Manifest struct {
	doc *yaml.Node
}

// Parse parses manifest content. An empty document yields an empty manifest.
func Parse(data []byte) (*Manifest, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest is not a mapping")
	}
	return &Manifest{doc: &doc}, nil
}

// Load reads and parses the manifest at path.
func Load(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read manifest").
			WithDetail("path", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrManifestParse, "cannot parse manifest").
			WithDetail("path", path)
	}
	return m, nil
}

// Save serializes m to path, replacing its content.
func Save(fs afero.Fs, path string, m *Manifest) error {
	data, err := m.Bytes()
	if err != nil {
		return errors.Wrap(err, errors.ErrManifestWrite, "cannot serialize manifest").
			WithDetail("path", path)
	}
	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return errors.Wrap(err, errors.ErrManifestWrite, "cannot write manifest").
			WithDetail("path", path)
	}
	return nil
}

// Bytes serializes the manifest.
func (m *Manifest) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m *Manifest) root() *yaml.Node {
	return m.doc.Content[0]
}

// lookup returns the index of key in mapping and its value node.
func lookup(mapping *yaml.Node, key string) (int, *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return i, mapping.Content[i+1]
		}
	}
	return -1, nil
}

func (m *Manifest) scalar(key string) string {
	_, v := lookup(m.root(), key)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return ""
	}
	return v.Value
}

// Name returns the scoped pack name.
func (m *Manifest) Name() string { return m.scalar(keyName) }

// Version returns the pack version.
func (m *Manifest) Version() string { return m.scalar(keyVersion) }

// Extractor returns the extractor the pack targets, or "" when unset.
func (m *Manifest) Extractor() string { return m.scalar(keyExtractor) }

// Library reports whether the manifest flags the pack as a library.
func (m *Manifest) Library() bool {
	_, v := lookup(m.root(), keyLibrary)
	if v == nil {
		return false
	}
	var b bool
	if err := v.Decode(&b); err != nil {
		return false
	}
	return b
}

// Dependencies returns the declared dependencies and whether a dependencies
// block is present at all.
func (m *Manifest) Dependencies() (map[string]string, bool) {
	_, v := lookup(m.root(), keyDependencies)
	if v == nil {
		return nil, false
	}
	deps := make(map[string]string)
	if v.Kind != yaml.MappingNode {
		return deps, true
	}
	for i := 0; i+1 < len(v.Content); i += 2 {
		deps[v.Content[i].Value] = v.Content[i+1].Value
	}
	return deps, true
}

// HasDependency reports whether name is a declared dependency.
func (m *Manifest) HasDependency(name string) bool {
	deps, _ := m.Dependencies()
	_, ok := deps[name]
	return ok
}

// SetDependency adds or updates a dependency, creating the dependencies
// block when needed.
func (m *Manifest) SetDependency(name, constraint string) {
	root := m.root()
	_, deps := lookup(root, keyDependencies)
	if deps == nil {
		deps = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: keyDependencies},
			deps)
	}
	if deps.Kind != yaml.MappingNode {
		// "dependencies:" with a null value
		*deps = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: deps.Line, Column: deps.Column}
	}
	if len(deps.Content) == 0 {
		deps.Style = 0
	}

	value := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: constraint}
	if _, existing := lookup(deps, name); existing != nil {
		*existing = *value
		return
	}
	deps.Content = append(deps.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
		value)
}

// RemoveDependency removes name from the dependencies and reports whether it
// was declared. When the removal leaves the block empty the dependencies key
// is dropped entirely.
func (m *Manifest) RemoveDependency(name string) bool {
	_, deps := lookup(m.root(), keyDependencies)
	if deps == nil || deps.Kind != yaml.MappingNode {
		return false
	}
	i, _ := lookup(deps, name)
	if i < 0 {
		return false
	}
	deps.Content = append(deps.Content[:i], deps.Content[i+2:]...)
	if len(deps.Content) == 0 {
		m.dropKey(keyDependencies)
	}
	return true
}

// PruneEmptyDependencies drops a dependencies block that declares nothing and
// reports whether it did.
func (m *Manifest) PruneEmptyDependencies() bool {
	deps, present := m.Dependencies()
	if !present || len(deps) > 0 {
		return false
	}
	m.dropKey(keyDependencies)
	return true
}

func (m *Manifest) dropKey(key string) {
	root := m.root()
	if i, _ := lookup(root, key); i >= 0 {
		root.Content = append(root.Content[:i], root.Content[i+2:]...)
	}
}
