package predict

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// FeatureInfo — описание признака для объяснений.
type FeatureInfo struct {
	Label          string   `yaml:"label" json:"label"`
	Category       string   `yaml:"category" json:"category"`
	Interpretation string   `yaml:"interpretation" json:"interpretation"`
	Interventions  []string `yaml:"interventions" json:"interventions"`
}

// Catalog — справочник признаков по имени.
type Catalog struct {
	Features map[string]FeatureInfo `yaml:"features" json:"features"`
}

// ParseCatalog разбирает YAML каталога.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if c.Features == nil {
		c.Features = make(map[string]FeatureInfo)
	}
	return &c, nil
}

// LoadCatalog читает каталог из файла.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog возвращает встроенный каталог.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup возвращает описание признака.
func (c *Catalog) Lookup(feature string) (FeatureInfo, bool) {
	if c == nil {
		return FeatureInfo{}, false
	}
	info, ok := c.Features[feature]
	return info, ok
}
