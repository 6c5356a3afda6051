// Package services orchestrates the advisor operations: NLU, generation with
// rule-based fallback, budget metrics and advice event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finadvisor/internal/advice"
	"finadvisor/internal/amqp"
	"finadvisor/internal/core"
	"finadvisor/internal/genai"
	"finadvisor/internal/log"
	"finadvisor/internal/metrics"
	"finadvisor/internal/middleware/trace"
	"finadvisor/internal/nlu"
	"finadvisor/internal/prompt"
)

// ErrInternal marks an unexpected fault. No partial result accompanies it.
var ErrInternal = errors.New("internal advisor error")

// EventPublisher publishes advice events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishAdviceEvent(ctx context.Context, evt *amqp.AdviceEvent) error
	Close() error
}

type (
	ChatResponse struct {
		Response    string       `json:"response"`
		NLUAnalysis nlu.Result   `json:"nlu_analysis"`
		Persona     core.Persona `json:"persona"`
		Source      string       `json:"source"`
	}

	BudgetSummaryResponse struct {
		Summary          string                `json:"summary"`
		FinancialMetrics core.FinancialMetrics `json:"financial_metrics"`
		Recommendations  []string              `json:"recommendations"`
		KeyInsights      advice.KeyInsights    `json:"key_insights"`
		Source           string                `json:"source"`
	}

	SpendingInsightsResponse struct {
		Insights         string           `json:"insights"`
		SpendingAnalysis SpendingAnalysis `json:"spending_analysis"`
		ActionItems      []string         `json:"action_items"`
		Source           string           `json:"source"`
	}
)

// AdvisorService answers advisor operations. Backend failures never surface
// as errors; they narrow the request to deterministic fallback logic.
type AdvisorService struct {
	analyzer  *nlu.Analyzer
	generator *genai.Service
	selector  *advice.Selector
	publisher EventPublisher
}

// NewAdvisorService wires the collaborators. A nil publisher disables
// advice events.
func NewAdvisorService(analyzer *nlu.Analyzer, generator *genai.Service, selector *advice.Selector, publisher EventPublisher) *AdvisorService {
	return &AdvisorService{
		analyzer:  analyzer,
		generator: generator,
		selector:  selector,
		publisher: publisher,
	}
}

// Chat answers a free-form question. NLU analysis and advice generation run
// concurrently.
func (s *AdvisorService) Chat(ctx context.Context, message string, persona any) (resp *ChatResponse, err error) {
	start := time.Now()
	defer s.observe(ctx, log.OpChat, start, &err)
	defer recoverFault(log.OpChat, &err)

	p := core.NormalizePersona(persona)
	rendered := prompt.Build(prompt.Request{Kind: prompt.KindBasic, Question: message, Persona: p})

	var (
		analysis nlu.Result
		text     string
		source   string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverFault(log.OpChat, &err)
		analysis = s.analyzer.Analyze(gctx, message)
		return nil
	})
	g.Go(func() (err error) {
		defer recoverFault(log.OpChat, &err)
		text, source = s.respond(gctx, rendered, p)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.served(ctx, log.OpChat, p, source, start)
	return &ChatResponse{
		Response:    text,
		NLUAnalysis: analysis,
		Persona:     p,
		Source:      source,
	}, nil
}

// BudgetSummary analyzes a budget. The summary is always written for the
// general persona; the record's persona only shapes the prompt note.
func (s *AdvisorService) BudgetSummary(ctx context.Context, raw core.RawBudget) (resp *BudgetSummaryResponse, err error) {
	start := time.Now()
	defer s.observe(ctx, log.OpBudgetSummary, start, &err)
	defer recoverFault(log.OpBudgetSummary, &err)

	rec := core.Normalize(raw)
	summary, source := s.respond(ctx, prompt.Build(prompt.Request{Kind: prompt.KindBudgetSummary, Budget: rec}), core.PersonaGeneral)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.served(ctx, log.OpBudgetSummary, rec.Persona, source, start)
	return &BudgetSummaryResponse{
		Summary:          summary,
		FinancialMetrics: core.ComputeMetrics(rec),
		Recommendations:  Recommendations(summary),
		KeyInsights:      advice.ExtractKeyInsights(summary),
		Source:           source,
	}, nil
}

// SpendingInsights analyzes spending behavior against the stated goals.
func (s *AdvisorService) SpendingInsights(ctx context.Context, raw core.RawBudget, goals []string) (resp *SpendingInsightsResponse, err error) {
	start := time.Now()
	defer s.observe(ctx, log.OpSpendingInsights, start, &err)
	defer recoverFault(log.OpSpendingInsights, &err)

	rec := core.Normalize(raw)
	goals = normalizeGoals(goals)

	insights, source := s.respond(ctx, prompt.Build(prompt.Request{Kind: prompt.KindSpendingInsights, Budget: rec, Goals: goals}), core.PersonaGeneral)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis := AnalyzeSpending(rec)
	s.served(ctx, log.OpSpendingInsights, rec.Persona, source, start)
	return &SpendingInsightsResponse{
		Insights:         insights,
		SpendingAnalysis: analysis,
		ActionItems:      ActionItems(rec.Income, analysis, goals),
		Source:           source,
	}, nil
}

// AnalyzeText runs NLU on text. It never fails on backend errors.
func (s *AdvisorService) AnalyzeText(ctx context.Context, text string) (res nlu.Result, err error) {
	start := time.Now()
	defer s.observe(ctx, log.OpAnalyzeText, start, &err)
	defer recoverFault(log.OpAnalyzeText, &err)

	res = s.analyzer.Analyze(ctx, text)
	if err := ctx.Err(); err != nil {
		return nlu.Result{}, err
	}
	return res, nil
}

// Close releases the event publisher.
func (s *AdvisorService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close advice publisher: %w", err)
	}
	return nil
}

// respond prefers generated text and falls back to the rule table.
func (s *AdvisorService) respond(ctx context.Context, rendered string, persona core.Persona) (string, string) {
	if text, ok := s.generator.Generate(ctx, rendered, persona); ok {
		return text, metrics.SourceModel
	}
	return s.selector.Respond(rendered, persona), metrics.SourceRules
}

func (s *AdvisorService) served(ctx context.Context, op string, persona core.Persona, source string, start time.Time) {
	metrics.AdviceSource.WithLabelValues(op, source).Inc()
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogAdviceServed(ctx, op, persona.String(), source, time.Since(start).Milliseconds())
	s.publish(ctx, op, persona, source)
}

// publish is best effort: the advice has already been produced.
func (s *AdvisorService) publish(ctx context.Context, op string, persona core.Persona, source string) {
	if s.publisher == nil {
		return
	}
	evt := amqp.NewAdviceEvent(op, persona.String(), source)
	evt.RequestID = trace.GetRequestID(ctx)

	if err := s.publisher.PublishAdviceEvent(ctx, evt); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		log.FromContext(ctx).WarnContext(ctx, "Failed to publish advice event",
			log.FieldEventID, evt.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
		return
	}
	metrics.EventsPublished.WithLabelValues("success").Inc()
}

func (s *AdvisorService) observe(ctx context.Context, op string, start time.Time, err *error) {
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "success"
	if *err != nil {
		outcome = "error"
		if errors.Is(*err, ErrInternal) {
			log.NewStructuredLogger(log.FromContext(ctx)).
				LogError(ctx, "Advisor operation failed", *err, log.ComponentAdvisor, op, log.NewFields())
		}
	}
	metrics.AdviceRequests.WithLabelValues(op, outcome).Inc()
}

// recoverFault converts a panic into ErrInternal so callers get a generic
// failure instead of a partial result. Goroutines started by an operation
// defer it themselves; a panic there would otherwise end the process.
func recoverFault(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrInternal, op, r)
	}
}

func normalizeGoals(goals []string) []string {
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
