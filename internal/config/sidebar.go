package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SidebarItem is one navigation entry of the documentation sidebar.
// Categories carry Items; leaf links carry Href.
type SidebarItem struct {
	Type  string        `yaml:"type,omitempty" json:"type,omitempty"`
	Label string        `yaml:"label" json:"label"`
	Href  string        `yaml:"href,omitempty" json:"href,omitempty"`
	ID    string        `yaml:"id,omitempty" json:"id,omitempty"`
	Items []SidebarItem `yaml:"items,omitempty" json:"items,omitempty"`
}

// LoadSidebar reads the sidebar navigation tree from a YAML file.
func LoadSidebar(path string) ([]SidebarItem, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sidebar.path is empty", ErrConfiguration)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read sidebar %s: %w", path, err)
	}

	var items []SidebarItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse sidebar %s: %w", path, err)
	}
	for i := range items {
		if err := validateSidebarItem(&items[i], fmt.Sprintf("[%d]", i)); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func validateSidebarItem(item *SidebarItem, path string) error {
	if item.Label == "" && item.ID == "" {
		return fmt.Errorf("%w: sidebar%s needs a label or id", ErrConfiguration, path)
	}
	for i := range item.Items {
		if err := validateSidebarItem(&item.Items[i], fmt.Sprintf("%s.items[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
