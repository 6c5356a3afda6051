package advice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finadvisor/internal/core"
	"finadvisor/internal/prompt"
)

func newTestSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := NewDefaultSelector()
	require.NoError(t, err)
	return s
}

func TestCatalogue_EveryRuleResolves(t *testing.T) {
	c, err := DefaultCatalogue()
	require.NoError(t, err)

	assert.Equal(t, "general_default", c.Default)
	for _, r := range Rules {
		body, err := c.Lookup(r.Template)
		require.NoError(t, err, r.ID)
		assert.NotEmpty(t, body, r.ID)
	}
}

func TestLoadCatalogue_Errors(t *testing.T) {
	_, err := LoadCatalogue([]byte("templates: ["))
	assert.Error(t, err)

	_, err = LoadCatalogue([]byte("templates:\n  a:\n    body: x\n"))
	assert.Error(t, err)

	_, err = LoadCatalogue([]byte("default: missing\ntemplates:\n  a:\n    body: x\n"))
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestNewSelector_RejectsIncompleteCatalogue(t *testing.T) {
	c, err := LoadCatalogue([]byte("default: a\ntemplates:\n  a:\n    body: x\n"))
	require.NoError(t, err)

	_, err = NewSelector(c)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestSelector_Select(t *testing.T) {
	s := newTestSelector(t)

	tests := []struct {
		name     string
		prompt   string
		persona  core.Persona
		template string
	}{
		{"budget summary beats saving", "Give me a budget summary so I can save more", core.PersonaGeneral, "budget_summary"},
		{"student gym and loan", "I'm a student paying a loan, is a gym worth it?", core.PersonaGeneral, "student_loan_gym"},
		{"student loan without gym", "How do I handle my loan payment?", core.PersonaStudent, "student_loan"},
		{"student saving", "How can I save money?", core.PersonaStudent, "student_saving"},
		{"student budget", "Help me plan a budget", core.PersonaStudent, "student_budget"},
		{"student gym only", "Is a fitness membership worth it?", core.PersonaStudent, "student_loan_gym"},
		{"student falls through to general", "Where should I invest?", core.PersonaStudent, "savings_investment"},
		{"professional investment", "Should I rebalance my portfolio?", core.PersonaProfessional, "professional_investment"},
		{"professional retirement", "Is my pension enough?", core.PersonaProfessional, "professional_retirement"},
		{"professional tax", "Which deduction applies to me?", core.PersonaProfessional, "professional_tax"},
		{"professional mentioning student takes student branch", "I still have a student loan, should I invest?", core.PersonaProfessional, "student_loan"},
		{"professional falls through to general", "My credit card debt keeps growing", core.PersonaProfessional, "debt_management"},
		{"grocery saving", "Any grocery saving tips?", core.PersonaGeneral, "grocery_saving"},
		{"house saving", "I am saving for a house", core.PersonaGeneral, "house_saving"},
		{"house purchase", "When can I afford to buy a house?", core.PersonaGeneral, "house_saving"},
		{"house with save is general saving", "How do I save for a house?", core.PersonaGeneral, "savings_investment"},
		{"groceries with money is general saving", "Where does my grocery money go?", core.PersonaGeneral, "savings_investment"},
		{"general saving", "How do I save?", core.PersonaGeneral, "savings_investment"},
		{"general debt", "Should I take a loan?", core.PersonaGeneral, "debt_management"},
		{"general investment", "Where should I invest?", core.PersonaGeneral, "savings_investment"},
		{"general budget", "How do I track my expenses?", core.PersonaGeneral, "budget_basics"},
		{"emergency", "What counts as an emergency?", core.PersonaGeneral, "emergency_fund"},
		{"default", "Hello there", core.PersonaGeneral, "general_default"},
		{"case insensitive", "BUDGET SUMMARY please", core.PersonaGeneral, "budget_summary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := s.Select(tt.prompt, tt.persona)
			assert.Equal(t, tt.template, sel.Template)
			assert.NotEmpty(t, sel.Text)
		})
	}
}

func TestSelector_Deterministic(t *testing.T) {
	s := newTestSelector(t)
	first := s.Select("How can I save money?", core.PersonaStudent)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Select("How can I save money?", core.PersonaStudent))
	}
}

func TestSelector_RenderedPrompts(t *testing.T) {
	s := newTestSelector(t)

	for _, p := range []core.Persona{core.PersonaGeneral, core.PersonaStudent, core.PersonaProfessional} {
		sel := s.Select(prompt.Basic("What should I think about?", p), p)
		assert.Equal(t, "general_default", sel.Template, p)
	}

	rec := core.BudgetRecord{
		Income:   5000,
		Expenses: []core.Expense{{Category: "Rent", Amount: 1500}},
		Persona:  core.PersonaGeneral,
	}
	assert.Equal(t, "budget_summary", s.Select(prompt.BudgetSummary(rec), core.PersonaGeneral).Template)
}

func TestSelector_PlaceholdersKept(t *testing.T) {
	s := newTestSelector(t)
	sel := s.Select("budget summary", core.PersonaGeneral)
	assert.Contains(t, sel.Text, "[X]%")
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		persona core.Persona
		want    string
	}{
		{"student prefix", "Save a little every week.", core.PersonaStudent, "As a student, save a little every week."},
		{"student already framed", "For students, budgets matter.", core.PersonaStudent, "For students, budgets matter."},
		{"professional prefix", "Max out your 401k", core.PersonaProfessional, "As a working professional, max out your 401k."},
		{"professional already framed", "In your career, raises come.", core.PersonaProfessional, "In your career, raises come."},
		{"general adds punctuation", "Track spending", core.PersonaGeneral, "Track spending."},
		{"question kept", "Have you tried a budget?", core.PersonaGeneral, "Have you tried a budget?"},
		{"only first letter lowered", "Use IRA accounts!", core.PersonaStudent, "As a student, use IRA accounts!"},
		{"empty", "   ", core.PersonaStudent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.text, tt.persona))
		})
	}
}

func TestExtractKeyInsights(t *testing.T) {
	text := "Your finances look stable.\n\n**Recommendations**:\n- Cut dining\n**Risk Assessment**: watch debt\n- Low savings\nNext steps:\n- Automate transfers\n"

	got := ExtractKeyInsights(text)
	assert.Equal(t, KeyInsights{
		Summary:         "Your finances look stable.",
		Recommendations: "- Cut dining",
		Risks:           "- Low savings",
		NextSteps:       "- Automate transfers",
	}, got)
}

func TestExtractKeyInsights_SkipsHeaders(t *testing.T) {
	got := ExtractKeyInsights("**Overview**\nIncome covers costs.\nSpending is even.")
	assert.Equal(t, "Income covers costs. Spending is even.", got.Summary)
	assert.Empty(t, got.Recommendations)
}
