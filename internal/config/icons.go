package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Icon maps a marker category to its icon image reference.
type Icon struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// IconSet is the ordered category configuration.
//
// In YAML it is either a mapping (category: url) or a list of
// {name, url} entries. Mapping order is kept.
type IconSet []Icon

// UnmarshalYAML decodes mapping or sequence nodes preserving order.
func (s *IconSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		out := make(IconSet, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name, url string
			if err := node.Content[i].Decode(&name); err != nil {
				return err
			}
			if err := node.Content[i+1].Decode(&url); err != nil {
				return fmt.Errorf("icon %q: %w", name, err)
			}
			out = append(out, Icon{Name: name, URL: url})
		}
		*s = out
		return nil

	case yaml.SequenceNode:
		var list []Icon
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil

	default:
		return fmt.Errorf("line %d: icons must be a mapping or a list", node.Line)
	}
}

// Names returns category names in configured order.
func (s IconSet) Names() []string {
	names := make([]string, 0, len(s))
	for _, icon := range s {
		names = append(names, icon.Name)
	}
	return names
}

// Has reports whether name is a configured category.
func (s IconSet) Has(name string) bool {
	_, ok := s.URL(name)
	return ok
}

// URL returns the icon reference for a category.
func (s IconSet) URL(name string) (string, bool) {
	for _, icon := range s {
		if icon.Name == name {
			return icon.URL, true
		}
	}
	return "", false
}
