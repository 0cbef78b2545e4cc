package seed

import (
	"fmt"
	"os"
	"strings"

	"photoshare/internal/service"

	"gopkg.in/yaml.v3"
)

// DefaultCategories are the gallery categories created on first start.
// Uncategorized is always added by the category service.
var DefaultCategories = defs(
	"Trees", "Blur", "Beautiful", "Love", "Daylight", "Wood", "Leaf", "Flower", "Fall",
	"City", "Beach", "Rain", "Autumn", "Mountains", "Nature", "Desert", "Winter", "Travel",
	"Summer", "HD Wallpapers", "Forest", "Spring", "Landscape", "Portraits", "Abstract",
)

func defs(names ...string) []service.CategoryDef {
	out := make([]service.CategoryDef, 0, len(names))
	for _, n := range names {
		out = append(out, service.CategoryDef{Name: n})
	}
	return out
}

type categoryFile struct {
	Categories []service.CategoryDef `yaml:"categories"`
}

// LoadCategoryFile reads category definitions from a YAML file of the form
//
//	categories:
//	  - name: Nature
//	    description: Outdoors
//
// Blank names are an error; duplicate names keep the first entry.
func LoadCategoryFile(path string) ([]service.CategoryDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category file: %w", err)
	}
	return ParseCategories(raw)
}

// ParseCategories decodes the YAML accepted by LoadCategoryFile.
func ParseCategories(raw []byte) ([]service.CategoryDef, error) {
	var file categoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse category file: %w", err)
	}

	seen := make(map[string]bool, len(file.Categories))
	out := make([]service.CategoryDef, 0, len(file.Categories))
	for i, def := range file.Categories {
		def.Name = strings.TrimSpace(def.Name)
		def.Description = strings.TrimSpace(def.Description)
		if def.Name == "" {
			return nil, fmt.Errorf("category %d has no name", i+1)
		}
		key := strings.ToLower(def.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, def)
	}
	return out, nil
}
