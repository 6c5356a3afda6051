package http

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"finadvisor/internal/core"
	"finadvisor/internal/log"
)

type errorBody struct {
	Error string `json:"error"`
}

var templateFuncs = template.FuncMap{
	"currency": core.FormatCurrency,
	"pct": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
	// barWidth clamps a percentage for CSS widths.
	"barWidth": func(v float64) string {
		v = min(max(v, 0), 100)
		return strconv.FormatFloat(v, 'f', 1, 64)
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
}

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError reports a failure as {"error": "..."} for API clients and as an
// error fragment for the dashboard.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if isHTMX(r) {
		ErrorResponse(status, message).Write(w)
		return
	}
	writeJSON(w, status, errorBody{Error: message})
}

// render executes a named template into a buffer so a failure never leaves a
// half-written fragment behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, resp *HTMXResponseBuilder) {
	if s.templates == nil {
		s.writeError(w, r, http.StatusInternalServerError, "Templates are not available")
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldTemplate, name,
			log.FieldOperation, log.OpRender,
			log.FieldError, err)
		s.writeError(w, r, http.StatusInternalServerError, "Failed to render page")
		return
	}

	if resp == nil {
		resp = NewHTMXResponse()
	}
	resp.BodyHTML(buf.Bytes()).Write(w)
}
