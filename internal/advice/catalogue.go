// Package advice selects a static advice template for a prompt and persona
// when no generated text is available.
package advice

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var catalogueYAML []byte

var ErrUnknownTemplate = errors.New("unknown advice template")

// Template is a titled block of advice text.
type Template struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

// Catalogue maps template ids to their text.
type Catalogue struct {
	Default   string              `yaml:"default"`
	Templates map[string]Template `yaml:"templates"`
}

// LoadCatalogue parses a catalogue document and checks that the default exists.
func LoadCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse advice catalogue: %w", err)
	}
	if c.Default == "" {
		return nil, errors.New("advice catalogue has no default template")
	}
	if _, ok := c.Templates[c.Default]; !ok {
		return nil, fmt.Errorf("default %q: %w", c.Default, ErrUnknownTemplate)
	}
	return &c, nil
}

// DefaultCatalogue returns the embedded catalogue.
func DefaultCatalogue() (*Catalogue, error) {
	return LoadCatalogue(catalogueYAML)
}

// Lookup returns the template body for id.
func (c *Catalogue) Lookup(id string) (string, error) {
	t, ok := c.Templates[id]
	if !ok {
		return "", fmt.Errorf("%q: %w", id, ErrUnknownTemplate)
	}
	return t.Body, nil
}
