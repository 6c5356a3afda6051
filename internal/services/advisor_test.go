package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/advice"
	"finadvisor/internal/amqp"
	"finadvisor/internal/backend"
	"finadvisor/internal/core"
	"finadvisor/internal/genai"
	"finadvisor/internal/metrics"
	"finadvisor/internal/middleware/trace"
	"finadvisor/internal/nlu"
	"finadvisor/internal/prompt"
)

const modelAdvice = "Review your budget monthly, automate savings transfers and reduce dining so the emergency fund grows steadily."

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Generate(context.Context, string, backend.GenerationParams) (string, error) {
	return g.text, g.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.AdviceEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishAdviceEvent(_ context.Context, evt *amqp.AdviceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func newService(t *testing.T, gen backend.Generator, pub EventPublisher) *AdvisorService {
	t.Helper()
	selector, err := advice.NewDefaultSelector()
	require.NoError(t, err)

	var guard *backend.Guard[backend.Generator]
	if gen != nil {
		guard = backend.NewGuard("generation", func(context.Context) (backend.Generator, error) {
			return gen, nil
		}, time.Second, nil)
	}
	return NewAdvisorService(
		nlu.NewAnalyzer(nil, time.Second, nil),
		genai.NewService(guard, time.Second),
		selector,
		pub,
	)
}

func budget(income any, goal any, persona any, expenses ...core.RawEntry) core.RawBudget {
	return core.RawBudget{Income: income, SavingsGoal: goal, Persona: persona, Expenses: expenses}
}

func TestChat_FallbackMode(t *testing.T) {
	s := newService(t, nil, nil)

	resp, err := s.Chat(context.Background(), "How can I pay off my student loan faster?", "student")
	require.NoError(t, err)

	assert.Equal(t, core.PersonaStudent, resp.Persona)
	assert.Equal(t, metrics.SourceRules, resp.Source)
	assert.True(t, strings.HasPrefix(resp.Response, "As a student, "), resp.Response)
	assert.Equal(t, nlu.ModeFallback, resp.NLUAnalysis.Mode)
	assert.Empty(t, resp.NLUAnalysis.Entities)
}

func TestChat_InvalidPersonaIsGeneral(t *testing.T) {
	s := newService(t, nil, nil)
	for _, persona := range []any{"STUDENT", nil, 42, ""} {
		resp, err := s.Chat(context.Background(), "hello", persona)
		require.NoError(t, err)
		assert.Equal(t, core.PersonaGeneral, resp.Persona, "persona %v", persona)
	}
}

func TestChat_Deterministic(t *testing.T) {
	s := newService(t, nil, nil)
	first, err := s.Chat(context.Background(), "Should I invest in my 401k?", "professional")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := s.Chat(context.Background(), "Should I invest in my 401k?", "professional")
		require.NoError(t, err)
		assert.Equal(t, first.Response, again.Response)
	}
}

func TestChat_ModelSource(t *testing.T) {
	s := newService(t, stubGenerator{text: modelAdvice}, nil)

	resp, err := s.Chat(context.Background(), "How do I save more?", "general")
	require.NoError(t, err)
	assert.Equal(t, metrics.SourceModel, resp.Source)
	assert.Equal(t, modelAdvice, resp.Response)
}

func TestChat_GenerationFailureFallsBack(t *testing.T) {
	s := newService(t, stubGenerator{err: errors.New("model crashed")}, nil)

	resp, err := s.Chat(context.Background(), "How do I save more?", "general")
	require.NoError(t, err)
	assert.Equal(t, metrics.SourceRules, resp.Source)
	assert.NotEmpty(t, resp.Response)
}

func TestChat_CancelledContext(t *testing.T) {
	s := newService(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := s.Chat(ctx, "hello", "general")
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBudgetSummary(t *testing.T) {
	s := newService(t, nil, nil)

	resp, err := s.BudgetSummary(context.Background(), budget("5000", 1000, "general",
		core.RawEntry{Category: "Rent", Value: 1500},
		core.RawEntry{Category: "Dining", Value: "abc"},
		core.RawEntry{Category: "Groceries", Value: 400},
		core.RawEntry{Category: "Travel", Value: -20},
		core.RawEntry{Category: "Utilities", Value: 150.5},
		core.RawEntry{Category: "Shopping", Value: 400},
	))
	require.NoError(t, err)

	m := resp.FinancialMetrics
	assert.Equal(t, 5000.0, m.TotalIncome)
	assert.Equal(t, 2450.5, m.TotalExpenses)
	assert.Equal(t, 2549.5, m.DisposableIncome)
	assert.Equal(t, 20.0, m.SavingsRate)
	require.Len(t, m.TopCategories, 3)
	assert.Equal(t, "Rent", m.TopCategories[0].Category)
	assert.Equal(t, "Groceries", m.TopCategories[1].Category, "ties keep input order")
	assert.Equal(t, "Shopping", m.TopCategories[2].Category)

	// Rule-based summary uses the budget summary template for the general persona.
	assert.Equal(t, metrics.SourceRules, resp.Source)
	assert.True(t, strings.HasPrefix(resp.Summary, "**Budget Summary Analysis**"), resp.Summary)
	assert.Equal(t, []string{"Build an emergency fund", "Review and adjust your budget monthly"}, resp.Recommendations)
	assert.NotEmpty(t, resp.KeyInsights.Recommendations)
}

func TestBudgetSummary_ModelTriggers(t *testing.T) {
	s := newService(t, stubGenerator{text: modelAdvice}, nil)

	resp, err := s.BudgetSummary(context.Background(), budget(3000, 0, nil))
	require.NoError(t, err)
	assert.Equal(t, metrics.SourceModel, resp.Source)
	assert.Equal(t, []string{
		"Consider reducing discretionary expenses",
		"Build an emergency fund",
		"Set up automatic savings transfers",
		"Review and adjust your budget monthly",
	}, resp.Recommendations)
	assert.Equal(t, 0.0, resp.FinancialMetrics.ExpenseRate)
	assert.Empty(t, resp.FinancialMetrics.TopCategories)
}

func TestSpendingInsights_ActionItems(t *testing.T) {
	s := newService(t, nil, nil)

	resp, err := s.SpendingInsights(context.Background(), budget(5000, nil, "general",
		core.RawEntry{Category: "Rent", Value: 1500},
		core.RawEntry{Category: "Dining", Value: 2000},
	), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{ActionReduceDiscretionary, ActionTrackSpending}, resp.ActionItems)
	a := resp.SpendingAnalysis
	assert.Equal(t, 3500.0, a.TotalExpenses)
	assert.Equal(t, 1500.0, a.EssentialExpenses)
	assert.Equal(t, 2000.0, a.DiscretionaryExpenses)
	assert.InDelta(t, 42.857, a.EssentialPercentage, 0.001)
	assert.NotEmpty(t, resp.Insights)
}

func TestActionItems(t *testing.T) {
	tests := []struct {
		name     string
		income   float64
		analysis SpendingAnalysis
		goals    []string
		want     []string
	}{
		{
			name:   "all triggers",
			income: 1000,
			analysis: SpendingAnalysis{
				TotalExpenses: 2000, EssentialExpenses: 800, DiscretionaryExpenses: 1200,
			},
			goals: []string{"Buy a car"},
			want: []string{
				ActionReduceDiscretionary, ActionReduceEssential, ActionStrictBudget,
				ActionPrioritizeGoals, ActionTrackSpending,
			},
		},
		{
			name:     "only tracking",
			income:   10000,
			analysis: SpendingAnalysis{TotalExpenses: 1000, EssentialExpenses: 1000},
			want:     []string{ActionTrackSpending},
		},
		{
			name:     "zero income",
			income:   0,
			analysis: SpendingAnalysis{TotalExpenses: 10, EssentialExpenses: 10},
			want:     []string{ActionReduceEssential, ActionStrictBudget, ActionTrackSpending},
		},
		{
			name:     "boundary is strict",
			income:   1000,
			analysis: SpendingAnalysis{TotalExpenses: 900, EssentialExpenses: 700, DiscretionaryExpenses: 350},
			want:     []string{ActionTrackSpending},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionItems(tt.income, tt.analysis, tt.goals))
		})
	}
}

func TestSpendingInsights_BlankGoalsIgnored(t *testing.T) {
	s := newService(t, nil, nil)
	resp, err := s.SpendingInsights(context.Background(), budget(100, nil, nil), []string{"  ", ""})
	require.NoError(t, err)
	assert.NotContains(t, resp.ActionItems, ActionPrioritizeGoals)

	resp, err = s.SpendingInsights(context.Background(), budget(100, nil, nil), []string{"Emergency fund"})
	require.NoError(t, err)
	assert.Contains(t, resp.ActionItems, ActionPrioritizeGoals)
}

func TestRecommendations(t *testing.T) {
	assert.Empty(t, Recommendations("All good."))
	assert.Equal(t, []string{"Track your spending regularly"}, Recommendations("Keep TRACK of things"))
}

func TestCategoryBreakdown_JSONOrder(t *testing.T) {
	rec := core.BudgetRecord{Expenses: []core.Expense{
		{Category: "Zoo", Amount: 25},
		{Category: "Apples", Amount: 75},
	}}
	data, err := json.Marshal(AnalyzeSpending(rec).SpendingByCategory)
	require.NoError(t, err)
	assert.Equal(t, `{"Zoo":{"amount":25,"percentage":25},"Apples":{"amount":75,"percentage":75}}`, string(data))

	data, err = json.Marshal(CategoryBreakdown{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestAnalyzeText(t *testing.T) {
	s := newService(t, nil, nil)
	res, err := s.AnalyzeText(context.Background(), "I love saving money")
	require.NoError(t, err)

	assert.Equal(t, "positive", res.Sentiment.Label)
	assert.Equal(t, 0.7, res.Sentiment.Score)
	assert.Contains(t, res.Keywords, nlu.Keyword{Text: "money", Relevance: 0.8})
	assert.Empty(t, res.Entities)
	assert.Empty(t, res.Categories)
}

func TestPublishing(t *testing.T) {
	pub := &recordingPublisher{}
	s := newService(t, nil, pub)

	ctx := context.WithValue(context.Background(), trace.RequestIDKey, "req_test")
	_, err := s.Chat(ctx, "how to budget", "student")
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, amqp.EventAdviceGenerated, evt.Type)
	assert.Equal(t, "chat", evt.Operation)
	assert.Equal(t, "student", evt.Persona)
	assert.Equal(t, metrics.SourceRules, evt.Source)
	assert.Equal(t, "req_test", evt.RequestID)

	require.NoError(t, s.Close())
	assert.True(t, pub.closed)
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: amqp.ErrCircuitOpen}
	s := newService(t, nil, pub)

	resp, err := s.SpendingInsights(context.Background(), budget(100, nil, nil), nil)
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Len(t, pub.events, 1)
}

func TestRecoverFault(t *testing.T) {
	run := func() (err error) {
		defer recoverFault("chat", &err)
		var m map[string]int
		m["boom"] = 1
		return nil
	}
	err := run()
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "chat")
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string, backend.GenerationParams) (string, error) {
	panic("generator fault")
}

type panickingNLU struct{}

func (panickingNLU) ClassifySentiment(context.Context, string) (backend.Sentiment, error) {
	panic("sentiment fault")
}

func (panickingNLU) ExtractEntities(context.Context, string) ([]backend.Entity, error) {
	return nil, nil
}

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (r *promptRecorder) Generate(_ context.Context, p string, _ backend.GenerationParams) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	return modelAdvice, nil
}

func TestOperationsRenderPromptsByKind(t *testing.T) {
	rec := &promptRecorder{}
	s := newService(t, rec, nil)
	ctx := context.Background()
	raw := budget(4000, 500, "student", core.RawEntry{Category: "Rent", Value: 1200})
	normalized := core.Normalize(raw)

	_, err := s.Chat(ctx, "How do I save?", "student")
	require.NoError(t, err)
	_, err = s.BudgetSummary(ctx, raw)
	require.NoError(t, err)
	_, err = s.SpendingInsights(ctx, raw, []string{"Emergency fund"})
	require.NoError(t, err)

	require.Len(t, rec.prompts, 3)
	assert.Equal(t, prompt.Basic("How do I save?", core.PersonaStudent), rec.prompts[0])
	assert.Equal(t, prompt.BudgetSummary(normalized), rec.prompts[1])
	assert.Equal(t, prompt.SpendingInsights(normalized, []string{"Emergency fund"}), rec.prompts[2])
}

func TestChat_GeneratorPanicIsInternalError(t *testing.T) {
	s := newService(t, panickingGenerator{}, nil)

	var (
		resp *ChatResponse
		err  error
	)
	require.NotPanics(t, func() {
		resp, err = s.Chat(context.Background(), "how do I budget", "general")
	})
	assert.Nil(t, resp)
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "generator fault")

	_, err = s.BudgetSummary(context.Background(), budget(1000, nil, nil))
	assert.ErrorIs(t, err, ErrInternal)
}

func TestChat_NLUPanicFallsBack(t *testing.T) {
	selector, err := advice.NewDefaultSelector()
	require.NoError(t, err)
	guard := backend.NewGuard("nlu", func(context.Context) (backend.NLUBackend, error) {
		return panickingNLU{}, nil
	}, time.Second, nil)
	s := NewAdvisorService(nlu.NewAnalyzer(guard, time.Second, nil), genai.NewService(nil, time.Second), selector, nil)

	var resp *ChatResponse
	require.NotPanics(t, func() {
		resp, err = s.Chat(context.Background(), "I love saving money", "general")
	})
	require.NoError(t, err)
	assert.Equal(t, nlu.ModeFallback, resp.NLUAnalysis.Mode)
	assert.Equal(t, "positive", resp.NLUAnalysis.Sentiment.Label)
}

func TestStatusAndFeatures(t *testing.T) {
	s := newService(t, stubGenerator{text: modelAdvice}, nil)

	st := s.Status()
	assert.Equal(t, "nlu", st.NLU.Name)
	assert.False(t, st.NLU.Ready)
	assert.False(t, st.Generation.Ready, "status does not trigger initialization")
	assert.True(t, st.FallbackMode)
	assert.False(t, st.EventsEnabled)

	s.ReportStatus(context.Background())

	f := s.Features()
	require.Len(t, f.Features, 4)
	assert.Equal(t, "/chat", f.Features[0].Endpoint)
	require.Len(t, f.Personas, 3)
	assert.Equal(t, core.PersonaStudent, f.Personas[0].Name)
}
