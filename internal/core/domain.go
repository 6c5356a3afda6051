package core

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	PersonaGeneral      Persona = "general"
	PersonaStudent      Persona = "student"
	PersonaProfessional Persona = "professional"
)

type (
	// Persona selects advisory framing and template branches.
	Persona string

	Expense struct {
		Category string
		Amount   float64
	}

	// BudgetRecord is the canonical, request-scoped budget. All amounts are >= 0
	// and expense categories are unique.
	BudgetRecord struct {
		Income      float64
		Expenses    []Expense
		SavingsGoal float64
		Persona     Persona
	}

	// RawBudget is loosely typed budget input as received from callers.
	RawBudget struct {
		Income      any         `json:"income"`
		Expenses    RawExpenses `json:"expenses"`
		SavingsGoal any         `json:"savings_goal"`
		Persona     any         `json:"persona"`
	}

	RawEntry struct {
		Category string
		Value    any
	}

	// RawExpenses keeps expense entries in the order they were received.
	RawExpenses []RawEntry
)

// IsValid reports whether p is one of the known personas.
func (p Persona) IsValid() bool {
	switch p {
	case PersonaGeneral, PersonaStudent, PersonaProfessional:
		return true
	}
	return false
}

func (p Persona) String() string {
	return string(p)
}

// NormalizePersona maps anything that is not exactly a known persona to general.
func NormalizePersona(v any) Persona {
	var s string
	switch t := v.(type) {
	case Persona:
		s = string(t)
	case string:
		s = t
	default:
		return PersonaGeneral
	}
	if p := Persona(s); p.IsValid() {
		return p
	}
	return PersonaGeneral
}

// PersonaInfo describes a persona for discovery endpoints.
type PersonaInfo struct {
	Name        Persona `json:"name"`
	Description string  `json:"description"`
}

// Personas lists the supported personas in display order.
func Personas() []PersonaInfo {
	return []PersonaInfo{
		{PersonaStudent, "Limited income, student loans and first financial habits"},
		{PersonaProfessional, "Established career, retirement, investments and tax planning"},
		{PersonaGeneral, "General advice for any income level"},
	}
}

// Raw converts a normalized record back to loosely typed input.
func (b BudgetRecord) Raw() RawBudget {
	raw := RawBudget{
		Income:      b.Income,
		SavingsGoal: b.SavingsGoal,
		Persona:     string(b.Persona),
	}
	for _, e := range b.Expenses {
		raw.Expenses = append(raw.Expenses, RawEntry{Category: e.Category, Value: e.Amount})
	}
	return raw
}

// Set stores value under category. An existing category keeps its position.
func (r *RawExpenses) Set(category string, value any) {
	for i := range *r {
		if (*r)[i].Category == category {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, RawEntry{Category: category, Value: value})
}

// UnmarshalJSON decodes a JSON object preserving key order. Anything other
// than an object decodes to an empty set of entries.
func (r *RawExpenses) UnmarshalJSON(data []byte) error {
	*r = nil
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the entries as a JSON object in their stored order.
func (r RawExpenses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
