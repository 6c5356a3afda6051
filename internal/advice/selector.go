package advice

import (
	"fmt"
	"strings"

	"finadvisor/internal/core"
	"finadvisor/internal/metrics"
)

// Selection is the outcome of a template lookup.
type Selection struct {
	RuleID   string
	Template string
	Text     string
}

// Selector evaluates Rules against a catalogue.
type Selector struct {
	catalogue *Catalogue
	rules     []Rule
}

// NewSelector checks that every rule resolves to a catalogue entry.
func NewSelector(c *Catalogue) (*Selector, error) {
	for _, r := range Rules {
		if _, err := c.Lookup(r.Template); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
	}
	return &Selector{catalogue: c, rules: Rules}, nil
}

// NewDefaultSelector builds a selector over the embedded catalogue.
func NewDefaultSelector() (*Selector, error) {
	c, err := DefaultCatalogue()
	if err != nil {
		return nil, err
	}
	return NewSelector(c)
}

// Select picks the first matching rule for prompt, or the default template.
func (s *Selector) Select(prompt string, persona core.Persona) Selection {
	lower := strings.ToLower(prompt)

	sel := Selection{RuleID: "default", Template: s.catalogue.Default}
	for _, r := range s.rules {
		if r.matches(lower, persona) {
			sel.RuleID = r.ID
			sel.Template = r.Template
			break
		}
	}
	// Templates were verified in NewSelector.
	sel.Text, _ = s.catalogue.Lookup(sel.Template)

	metrics.TemplateSelections.WithLabelValues(sel.Template).Inc()
	return sel
}

// Respond selects a template and frames it for persona.
func (s *Selector) Respond(prompt string, persona core.Persona) string {
	return Format(s.Select(prompt, persona).Text, persona)
}
