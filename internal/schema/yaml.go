package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

// document is the on-disk schema layout.
type document struct {
	Classes      []classDoc  `yaml:"classes"`
	CustomFields []customDoc `yaml:"custom_fields,omitempty"`
}

type classDoc struct {
	Name     string     `yaml:"name"`
	Base     string     `yaml:"base,omitempty"`
	Abstract bool       `yaml:"abstract,omitempty"`
	Fields   []fieldDoc `yaml:"fields,omitempty"`
}

type fieldDoc struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	Signature   string `yaml:"signature,omitempty"`
	Untouchable bool   `yaml:"untouchable,omitempty"`
}

type customDoc struct {
	Class    string `yaml:"class"`
	fieldDoc `yaml:",inline"`
}

func (f fieldDoc) def() (FieldDef, error) {
	kind, err := types.ParseKind(f.Kind)
	if err != nil {
		return FieldDef{}, fmt.Errorf("field %s: %w", f.Name, err)
	}
	return FieldDef{
		Name:        f.Name,
		Kind:        kind,
		Signature:   types.ClassID(f.Signature),
		Untouchable: f.Untouchable,
	}, nil
}

// LoadYAML reads a schema document from path into a new Registry.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a Registry from a schema document. Classes are defined
// in document order, so a base must appear before the classes deriving
// from it.
func ParseYAML(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	r := NewRegistry()
	for _, cd := range doc.Classes {
		def := ClassDef{
			Name:     types.ClassID(cd.Name),
			Base:     types.ClassID(cd.Base),
			Abstract: cd.Abstract,
		}
		for _, fd := range cd.Fields {
			f, err := fd.def()
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", cd.Name, err)
			}
			def.Fields = append(def.Fields, f)
		}
		if err := r.DefineClass(def); err != nil {
			return nil, err
		}
	}
	for _, cf := range doc.CustomFields {
		f, err := cf.def()
		if err != nil {
			return nil, fmt.Errorf("custom field on %s: %w", cf.Class, err)
		}
		if _, err := r.AddCustomField(types.ClassID(cf.Class), f); err != nil {
			return nil, err
		}
	}
	return r, nil
}
