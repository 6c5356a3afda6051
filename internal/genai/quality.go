package genai

import (
	"strings"

	"finadvisor/internal/advice"
)

const (
	minResponseLength = 50
	minUniqueRatio    = 0.6
)

var roleMarkers = []string{"<|system|>", "<|user|>", "<|assistant|>"}

var financialTerms = []string{
	"budget", "save", "saving", "money", "financial", "income", "expense",
	"investment", "debt", "loan", "credit", "fund", "account", "plan",
	"goal", "strategy", "recommend", "consider", "advice",
}

// Clean removes an echoed prompt and role markers, drops a trailing
// incomplete sentence, and guarantees terminal punctuation.
func Clean(output, prompt string) string {
	text := output
	if i := strings.LastIndex(text, "<|assistant|>"); i >= 0 {
		text = text[i+len("<|assistant|>"):]
	}
	text = strings.TrimSpace(text)
	if p := strings.TrimSpace(prompt); p != "" {
		text = strings.TrimSpace(strings.TrimPrefix(text, p))
	}
	for _, m := range roleMarkers {
		text = strings.ReplaceAll(text, m, "")
	}
	text = strings.TrimSpace(text)

	sentences := strings.Split(text, ". ")
	if len(sentences) > 1 && !endsSentence(sentences[len(sentences)-1]) {
		sentences = sentences[:len(sentences)-1]
	}
	text = strings.Join(sentences, ". ")

	return advice.EnsureTerminal(text)
}

// Acceptable reports whether cleaned output is long enough, on topic, and
// not repetitive.
func Acceptable(text string) bool {
	if len(strings.TrimSpace(text)) < minResponseLength {
		return false
	}

	lower := strings.ToLower(text)
	onTopic := false
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			onTopic = true
			break
		}
	}
	if !onTopic {
		return false
	}

	words := strings.Fields(lower)
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique))/float64(len(words)) > minUniqueRatio
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
