package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/backend"
)

type fakeNLU struct {
	sentiment backend.Sentiment
	entities  []backend.Entity
	err       error
}

func (f *fakeNLU) ClassifySentiment(ctx context.Context, text string) (backend.Sentiment, error) {
	if f.err != nil {
		return backend.Sentiment{}, f.err
	}
	return f.sentiment, nil
}

func (f *fakeNLU) ExtractEntities(ctx context.Context, text string) ([]backend.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entities, nil
}

func readyGuard(nb backend.NLUBackend) *backend.Guard[backend.NLUBackend] {
	return backend.NewGuard("nlu", func(ctx context.Context) (backend.NLUBackend, error) {
		return nb, nil
	}, time.Second, nil)
}

func TestFallback_Example(t *testing.T) {
	res := Fallback("I love saving money")

	assert.Equal(t, backend.Sentiment{Label: "positive", Score: 0.7}, res.Sentiment)
	assert.Contains(t, res.Keywords, Keyword{Text: "money", Relevance: 0.8})
	assert.Empty(t, res.Entities)
	assert.NotNil(t, res.Entities)
	assert.Empty(t, res.Categories)
	assert.NotNil(t, res.Categories)
	assert.Equal(t, ModeFallback, res.Mode)
}

func TestScoreSentiment(t *testing.T) {
	tests := []struct {
		text  string
		label string
		score float64
	}{
		{"This is a great plan to improve", "positive", 0.7},
		{"My debt is a real problem", "negative", 0.6},
		{"What is an index fund?", "neutral", 0.5},
		{"good but bad", "neutral", 0.5},
		{"GREAT results", "positive", 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ScoreSentiment(tt.text)
			assert.Equal(t, tt.label, got.Label)
			assert.Equal(t, tt.score, got.Score)
		})
	}
}

func TestFallback_KeywordCap(t *testing.T) {
	text := strings.Join(FinancialVocabulary, " ")
	res := Fallback(text)

	require.Len(t, res.Keywords, MaxKeywords)
	for i, k := range res.Keywords {
		assert.Equal(t, FinancialVocabulary[i], k.Text)
	}
}

func TestCategorize(t *testing.T) {
	got := Categorize("My credit card spending and retirement savings")
	assert.Equal(t, []Category{
		{"Budget Management", 0.9},
		{"Savings & Investment", 0.8},
		{"Debt Management", 0.7},
	}, got)

	assert.Empty(t, Categorize("hello there"))
}

func TestAnalyzer_BackendMode(t *testing.T) {
	nb := &fakeNLU{
		sentiment: backend.Sentiment{Label: "negative", Score: 0.91},
		entities: []backend.Entity{
			{Text: "Chase", Type: "ORG", Score: 0.95},
			{Text: "Budget", Type: "MISC", Score: 0.6},
		},
	}
	a := NewAnalyzer(readyGuard(nb), time.Second, nil)

	res := a.Analyze(context.Background(), "My Chase loan is eating my budget and savings")

	assert.Equal(t, ModeBackend, res.Mode)
	assert.Equal(t, backend.Sentiment{Label: "negative", Score: 0.91}, res.Sentiment)
	assert.Equal(t, []Keyword{
		{"Chase", 0.95},
		{"Budget", 0.6},
		{"savings", 0.8},
		{"loan", 0.8},
	}, res.Keywords)
	assert.Len(t, res.Entities, 2)
	assert.Equal(t, []Category{
		{"Budget Management", 0.9},
		{"Savings & Investment", 0.8},
		{"Debt Management", 0.7},
	}, res.Categories)
}

func TestAnalyzer_BackendCaps(t *testing.T) {
	entities := make([]backend.Entity, 8)
	for i := range entities {
		entities[i] = backend.Entity{Text: string(rune('a' + i)), Type: "MISC", Score: 0.5}
	}
	a := NewAnalyzer(readyGuard(&fakeNLU{sentiment: backend.Sentiment{Label: "neutral", Score: 0.5}, entities: entities}), time.Second, nil)

	res := a.Analyze(context.Background(), strings.Join(FinancialVocabulary, " "))
	assert.Len(t, res.Keywords, MaxKeywords)
	assert.Len(t, res.Entities, MaxEntities)
}

func TestAnalyzer_CallFailureFallsBackForRequestOnly(t *testing.T) {
	nb := &fakeNLU{err: errors.New("inference error")}
	guard := readyGuard(nb)
	a := NewAnalyzer(guard, time.Second, nil)

	res := a.Analyze(context.Background(), "I love saving money")
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, "positive", res.Sentiment.Label)
	assert.Equal(t, backend.StateReady, guard.State())

	nb.err = nil
	nb.sentiment = backend.Sentiment{Label: "positive", Score: 0.99}
	res = a.Analyze(context.Background(), "I love saving money")
	assert.Equal(t, ModeBackend, res.Mode)
	assert.Equal(t, 0.99, res.Sentiment.Score)
}

type panickingNLU struct{ fakeNLU }

func (p *panickingNLU) ExtractEntities(ctx context.Context, text string) ([]backend.Entity, error) {
	panic("entity model fault")
}

func TestAnalyzer_BackendPanicFallsBack(t *testing.T) {
	guard := readyGuard(&panickingNLU{})
	a := NewAnalyzer(guard, time.Second, nil)

	var res Result
	assert.NotPanics(t, func() { res = a.Analyze(context.Background(), "I love saving money") })
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, "positive", res.Sentiment.Label)
	assert.Equal(t, backend.StateReady, guard.State())
}

func TestAnalyzer_InitFailureDisablesBackend(t *testing.T) {
	inits := 0
	guard := backend.NewGuard("nlu", func(ctx context.Context) (backend.NLUBackend, error) {
		inits++
		return nil, errors.New("unreachable")
	}, time.Second, nil)
	a := NewAnalyzer(guard, time.Second, nil)

	for i := 0; i < 3; i++ {
		res := a.Analyze(context.Background(), "budget")
		assert.Equal(t, ModeFallback, res.Mode)
	}
	assert.Equal(t, 1, inits)
	assert.Equal(t, "unavailable", a.Status().State)
}

func TestAnalyzer_NilGuardUsesFallback(t *testing.T) {
	a := NewAnalyzer(nil, 0, nil)
	res := a.Analyze(context.Background(), "tax question")
	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, []Keyword{{"tax", 0.8}}, res.Keywords)
}
