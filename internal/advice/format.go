package advice

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"finadvisor/internal/core"
)

var personaFraming = map[core.Persona]struct {
	prefix string
	skip   []string
}{
	core.PersonaStudent: {
		prefix: "As a student, ",
		skip:   []string{"As a student", "For students", "When you're a student"},
	},
	core.PersonaProfessional: {
		prefix: "As a working professional, ",
		skip:   []string{"As a professional", "As a working professional", "For professionals", "In your career"},
	},
}

// Format frames text for persona and guarantees terminal punctuation. Text
// that already opens with persona framing is not prefixed again.
func Format(text string, persona core.Persona) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	if f, ok := personaFraming[persona]; ok && !hasAnyPrefix(text, f.skip) {
		text = f.prefix + lowerFirst(text)
	}
	return EnsureTerminal(text)
}

// EnsureTerminal appends a period unless text ends in . ! or ?.
func EnsureTerminal(text string) string {
	if text == "" || strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?") {
		return text
	}
	return text + "."
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
