// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading request bodies. API clients send
// JSON while the dashboard posts HTMX forms; both end up as the same loosely
// typed budget input.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finadvisor/internal/core"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errNotAnObject  = errors.New("request body must be a JSON object")
)

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body and
// stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var maxErr *http.MaxBytesError
	if errors.As(p.err, &maxErr) {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data. A JSON body must be
// an object.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' || body[0] == '[' || strings.HasPrefix(p.contentType, "application/json") {
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		if p.jsonData == nil {
			p.err = errNotAnObject
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetAll returns every value stored under key. Form fields may repeat and a
// JSON array yields one value per element.
func (p *RequestBodyParser) GetAll(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch val := p.jsonData[key].(type) {
		case []any:
			for _, v := range val {
				raw = append(raw, stringValue(v))
			}
		case nil:
		default:
			raw = append(raw, stringValue(val))
		}
	case p.formData != nil:
		raw = p.formData[key]
	}

	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = sanitizeInput(v)
	}
	return out
}

// Data returns the decoded JSON object, or nil for form bodies.
func (p *RequestBodyParser) Data() map[string]any {
	return p.jsonData
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Budget builds loosely typed budget input from the body. JSON bodies keep
// the order of the expenses object; forms pair repeated category and amount
// fields, skipping rows without a category.
func (p *RequestBodyParser) Budget() (core.RawBudget, error) {
	var raw core.RawBudget
	if p.IsJSON() {
		if err := json.Unmarshal(p.body, &raw); err != nil {
			return core.RawBudget{}, err
		}
		return raw, nil
	}

	raw.Income = p.Get("income")
	raw.SavingsGoal = p.Get("savings_goal")
	if persona := p.Get("persona"); persona != "" {
		raw.Persona = persona
	}

	categories := p.GetAll("category")
	amounts := p.GetAll("amount")
	for i, category := range categories {
		if category == "" {
			continue
		}
		var amount any
		if i < len(amounts) {
			amount = amounts[i]
		}
		raw.Expenses.Set(category, amount)
	}
	return raw, nil
}

// Goals returns the financial goals. A form textarea holds one goal per line.
func (p *RequestBodyParser) Goals() []string {
	if p.IsJSON() {
		return p.GetAll("goals")
	}
	var goals []string
	for _, field := range p.GetAll("goals") {
		for _, line := range strings.Split(field, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				goals = append(goals, line)
			}
		}
	}
	return goals
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
