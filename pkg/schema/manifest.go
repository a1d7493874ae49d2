package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed manifest.schema.json
var manifestSchemaJSON []byte

const manifestSchemaURL = "manifest.schema.json"

var manifestSchema = mustCompileManifestSchema()

func mustCompileManifestSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(manifestSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("schema: parse manifest schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(manifestSchemaURL, doc); err != nil {
		panic(fmt.Sprintf("schema: add manifest schema: %v", err))
	}
	compiled, err := compiler.Compile(manifestSchemaURL)
	if err != nil {
		panic(fmt.Sprintf("schema: compile manifest schema: %v", err))
	}
	return compiled
}

// Manifest declares the artifacts of an installation in authoring order.
type Manifest struct {
	artifacts []ArtifactRef
	index     map[string]int
}

type manifestFile struct {
	Artifacts []manifestEntry `yaml:"artifacts"`
}

type manifestEntry struct {
	Name      string   `yaml:"name"`
	Store     string   `yaml:"store"`
	Version   int      `yaml:"version"`
	File      string   `yaml:"file"`
	DependsOn []string `yaml:"depends_on"`
}

// LoadManifest reads and parses a manifest through loader.
func LoadManifest(loader ResourceLoader, name string) (*Manifest, error) {
	data, err := loader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses a YAML manifest and validates it. Errors wrap
// ErrMalformed.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, malformed("manifest: %v", err)
	}
	if err := validateManifestDocument(raw); err != nil {
		return nil, err
	}

	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, malformed("manifest: %v", err)
	}

	refs := make([]ArtifactRef, 0, len(file.Artifacts))
	for _, e := range file.Artifacts {
		refs = append(refs, ArtifactRef{
			Name:      e.Name,
			Store:     StoreKind(e.Store),
			Version:   e.Version,
			File:      e.File,
			DependsOn: e.DependsOn,
		})
	}
	return NewManifest(refs)
}

// NewManifest builds a manifest from refs after checking names, versions and
// dependencies.
func NewManifest(refs []ArtifactRef) (*Manifest, error) {
	m := &Manifest{
		artifacts: make([]ArtifactRef, len(refs)),
		index:     make(map[string]int, len(refs)),
	}
	copy(m.artifacts, refs)

	versions := make(map[StoreKind]map[int]string)
	for i, ref := range m.artifacts {
		if ref.Name == "" {
			return nil, malformed("manifest: artifact %d has no name", i+1)
		}
		if !ref.Store.Valid() {
			return nil, malformed("manifest: artifact %s: unknown store %q", ref.Name, ref.Store)
		}
		if _, dup := m.index[ref.Name]; dup {
			return nil, malformed("manifest: duplicate artifact %s", ref.Name)
		}
		m.index[ref.Name] = i

		if versions[ref.Store] == nil {
			versions[ref.Store] = make(map[int]string)
		}
		if other, dup := versions[ref.Store][ref.Version]; dup {
			return nil, malformed("manifest: %s and %s share %s version %d", other, ref.Name, ref.Store, ref.Version)
		}
		versions[ref.Store][ref.Version] = ref.Name
	}

	for _, ref := range m.artifacts {
		for _, dep := range ref.DependsOn {
			if _, ok := m.index[dep]; !ok {
				return nil, malformed("manifest: artifact %s depends on unknown %s", ref.Name, dep)
			}
		}
	}

	if _, err := m.Order(m.artifacts); err != nil {
		return nil, err
	}
	return m, nil
}

// Artifacts returns the declared artifacts in manifest order.
func (m *Manifest) Artifacts() []ArtifactRef {
	out := make([]ArtifactRef, len(m.artifacts))
	copy(out, m.artifacts)
	return out
}

// Lookup returns the artifact declared under name.
func (m *Manifest) Lookup(name string) (ArtifactRef, bool) {
	i, ok := m.index[name]
	if !ok {
		return ArtifactRef{}, false
	}
	return m.artifacts[i], true
}

// Order sorts refs so every artifact follows the artifacts it depends on.
// Dependencies outside refs are treated as satisfied. Among artifacts that
// are ready at the same time, manifest order wins.
func (m *Manifest) Order(refs []ArtifactRef) ([]ArtifactRef, error) {
	pending := make([]ArtifactRef, len(refs))
	copy(pending, refs)
	sort.SliceStable(pending, func(i, j int) bool {
		return m.position(pending[i].Name) < m.position(pending[j].Name)
	})

	selected := make(map[string]bool, len(pending))
	for _, ref := range pending {
		selected[ref.Name] = true
	}

	placed := make(map[string]bool, len(pending))
	out := make([]ArtifactRef, 0, len(pending))
	for len(pending) > 0 {
		next := -1
		for i, ref := range pending {
			if ready(ref, selected, placed) {
				next = i
				break
			}
		}
		if next < 0 {
			names := make([]string, len(pending))
			for i, ref := range pending {
				names[i] = ref.Name
			}
			return nil, malformed("manifest: dependency cycle among %s", strings.Join(names, ", "))
		}
		placed[pending[next].Name] = true
		out = append(out, pending[next])
		pending = append(pending[:next], pending[next+1:]...)
	}
	return out, nil
}

func ready(ref ArtifactRef, selected, placed map[string]bool) bool {
	for _, dep := range ref.DependsOn {
		if selected[dep] && !placed[dep] {
			return false
		}
	}
	return true
}

// position is the manifest index of name; undeclared names sort last.
func (m *Manifest) position(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	return len(m.artifacts)
}

// validateManifestDocument checks the decoded YAML against the embedded JSON
// schema. The document is round-tripped through JSON so numbers reach the
// validator in the form it expects.
func validateManifestDocument(raw any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return malformed("manifest: %v", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return malformed("manifest: %v", err)
	}
	if err := manifestSchema.Validate(inst); err != nil {
		return malformed("manifest: %v", err)
	}
	return nil
}
