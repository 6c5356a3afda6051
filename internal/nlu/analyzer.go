// Package nlu extracts sentiment, keywords, entities and topic categories
// from free text. A configured backend is used when it initializes; otherwise
// a keyword scan answers every request.
package nlu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finadvisor/internal/backend"
	"finadvisor/internal/metrics"
)

// ErrNLURequestFailed wraps any backend failure during a single analysis.
var ErrNLURequestFailed = errors.New("nlu request failed")

// Mode names the path that produced a result.
type Mode string

const (
	ModeBackend  Mode = "backend"
	ModeFallback Mode = "fallback"
)

type (
	Keyword struct {
		Text      string  `json:"text"`
		Relevance float64 `json:"relevance"`
	}

	Category struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}

	Result struct {
		Sentiment  backend.Sentiment `json:"sentiment"`
		Keywords   []Keyword         `json:"keywords"`
		Entities   []backend.Entity  `json:"entities"`
		Categories []Category        `json:"categories"`
		Mode       Mode              `json:"mode"`
	}
)

// Analyzer runs NLU against the guarded backend with per-request fallback.
type Analyzer struct {
	backend *backend.Guard[backend.NLUBackend]
	timeout time.Duration
	logger  *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil guard means fallback only.
func NewAnalyzer(guard *backend.Guard[backend.NLUBackend], timeout time.Duration, logger *slog.Logger) *Analyzer {
	if guard == nil {
		guard = backend.Disabled[backend.NLUBackend]("nlu")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{backend: guard, timeout: timeout, logger: logger}
}

// Analyze never fails. A backend error affects only this call.
func (a *Analyzer) Analyze(ctx context.Context, text string) Result {
	nb, ok := a.backend.Get(ctx)
	if !ok {
		return Fallback(text)
	}

	res, err := a.analyzeWithBackend(ctx, nb, text)
	if err != nil {
		reason := "error"
		if errors.Is(err, backend.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.BackendFallbacks.WithLabelValues("nlu", reason).Inc()
		a.logger.WarnContext(ctx, "NLU backend call failed, using keyword analysis",
			"error", err,
			"reason", reason)
		return Fallback(text)
	}
	return res
}

// Status reports the backend guard state.
func (a *Analyzer) Status() backend.GuardStatus {
	return a.backend.Status()
}

func (a *Analyzer) analyzeWithBackend(ctx context.Context, nb backend.NLUBackend, text string) (Result, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		sentiment backend.Sentiment
		entities  []backend.Entity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverBackend(&err)
		sentiment, err = nb.ClassifySentiment(gctx, text)
		return err
	})
	g.Go(func() (err error) {
		defer recoverBackend(&err)
		entities, err = nb.ExtractEntities(gctx, text)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrNLURequestFailed, err)
	}

	keywords := make([]Keyword, 0, len(entities)+len(FinancialVocabulary))
	for _, e := range entities {
		keywords = append(keywords, Keyword{Text: e.Text, Relevance: e.Score})
	}
	lower := strings.ToLower(text)
	for _, word := range FinancialVocabulary {
		if strings.Contains(lower, word) && !hasKeyword(keywords, word) {
			keywords = append(keywords, Keyword{Text: word, Relevance: vocabularyRelevance})
		}
	}

	return Result{
		Sentiment:  sentiment,
		Keywords:   capKeywords(keywords),
		Entities:   capEntities(entities),
		Categories: Categorize(text),
		Mode:       ModeBackend,
	}, nil
}

// recoverBackend turns a panicking backend client into an ordinary call
// failure so the request falls back to keyword analysis.
func recoverBackend(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("backend panic: %v", r)
	}
}

// Fallback analyzes text with the static keyword tables only. Entities and
// categories are always empty.
func Fallback(text string) Result {
	lower := strings.ToLower(text)

	keywords := []Keyword{}
	for _, word := range FinancialVocabulary {
		if strings.Contains(lower, word) {
			keywords = append(keywords, Keyword{Text: word, Relevance: vocabularyRelevance})
		}
	}

	return Result{
		Sentiment:  ScoreSentiment(text),
		Keywords:   capKeywords(keywords),
		Entities:   []backend.Entity{},
		Categories: []Category{},
		Mode:       ModeFallback,
	}
}

// ScoreSentiment compares how many positive and negative words appear.
func ScoreSentiment(text string) backend.Sentiment {
	lower := strings.ToLower(text)
	positive := countPresent(lower, positiveWords)
	negative := countPresent(lower, negativeWords)

	switch {
	case positive > negative:
		return backend.Sentiment{Label: "positive", Score: 0.7}
	case negative > positive:
		return backend.Sentiment{Label: "negative", Score: 0.6}
	default:
		return backend.Sentiment{Label: "neutral", Score: 0.5}
	}
}

// Categorize returns every topic category whose trigger words appear in text.
func Categorize(text string) []Category {
	lower := strings.ToLower(text)
	out := []Category{}
	for _, rule := range categoryRules {
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				out = append(out, Category{Label: rule.label, Score: rule.score})
				break
			}
		}
	}
	return out
}

func countPresent(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

func hasKeyword(keywords []Keyword, word string) bool {
	for _, k := range keywords {
		if strings.EqualFold(k.Text, word) {
			return true
		}
	}
	return false
}

func capKeywords(k []Keyword) []Keyword {
	if len(k) > MaxKeywords {
		return k[:MaxKeywords]
	}
	return k
}

func capEntities(e []backend.Entity) []backend.Entity {
	if e == nil {
		return []backend.Entity{}
	}
	if len(e) > MaxEntities {
		return e[:MaxEntities]
	}
	return e
}
