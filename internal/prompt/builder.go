// Package prompt renders the natural-language prompts sent to the generation
// backend. Every builder is deterministic for identical input.
package prompt

import (
	"fmt"
	"strings"

	"finadvisor/internal/core"
)

// Kind identifies a prompt template.
type Kind string

const (
	KindBasic            Kind = "basic"
	KindBudgetSummary    Kind = "budget_summary"
	KindSpendingInsights Kind = "spending_insights"
)

// Request carries everything a prompt may embed. Fields not used by Kind are ignored.
type Request struct {
	Kind     Kind
	Question string
	Budget   core.BudgetRecord
	Goals    []string
	Persona  core.Persona
}

type personaNotes struct {
	student      string
	professional string
}

var notes = map[Kind]personaNotes{
	KindBasic: {
		student:      "Note: Provide advice suitable for students with limited income and experience.",
		professional: "Note: Provide advice suitable for professionals with established careers.",
	},
	KindBudgetSummary: {
		student:      "Focus on student-friendly advice and realistic expectations.",
		professional: "Provide more sophisticated analysis suitable for professionals.",
	},
	KindSpendingInsights: {
		student:      "Consider student lifestyle and constraints.",
		professional: "Provide professional-level financial analysis.",
	},
}

var (
	budgetSections = []string{
		"**Budget Summary**: Overall assessment of financial health",
		"**Top Spending Categories**: Identify the highest expenses",
		"**Savings Analysis**: Can the savings goal be met?",
		"**Recommendations**: 3-5 specific ways to improve the budget",
		"**Risk Assessment**: Any concerning patterns or red flags",
	}
	insightSections = []string{
		"**Spending Pattern Analysis**: Identify trends and patterns",
		"**Goal Feasibility**: Can the stated goals be achieved?",
		"**Optimization Opportunities**: Where can costs be cut?",
		"**Behavioral Insights**: What does the spending reveal about habits?",
		"**Action Plan**: Specific steps to improve the financial situation",
		"**Risk Factors**: Any concerning spending behaviors",
	}
)

// Build renders the prompt for req.Kind. Unknown kinds render a basic prompt.
func Build(req Request) string {
	switch req.Kind {
	case KindBudgetSummary:
		return BudgetSummary(req.Budget)
	case KindSpendingInsights:
		rec := req.Budget
		if req.Persona != "" {
			rec.Persona = req.Persona
		}
		return SpendingInsights(rec, req.Goals)
	default:
		return Basic(req.Question, req.Persona)
	}
}

// Basic renders a prompt for a free-form question.
func Basic(question string, persona core.Persona) string {
	var b strings.Builder
	b.WriteString("You are a helpful personal finance advisor.\n\n")
	fmt.Fprintf(&b, "User Question: %s\n\n", question)
	b.WriteString("Please provide clear, actionable financial advice. Focus on:\n")
	b.WriteString("- Practical steps the user can take\n")
	b.WriteString("- Specific recommendations when possible\n")
	b.WriteString("- Educational explanations for financial concepts\n")
	b.WriteString("- Encouraging and supportive tone\n\n")
	b.WriteString("Response:")
	appendNote(&b, KindBasic, persona)
	return b.String()
}

// BudgetSummary renders a budget analysis prompt from a normalized record.
func BudgetSummary(rec core.BudgetRecord) string {
	m := core.ComputeMetrics(rec)

	var b strings.Builder
	b.WriteString("Analyze this budget and provide a comprehensive summary:\n\n")
	fmt.Fprintf(&b, "Monthly Income: %s\n", core.FormatCurrency(m.TotalIncome))
	fmt.Fprintf(&b, "Monthly Expenses: %s\n", core.FormatCurrency(m.TotalExpenses))
	fmt.Fprintf(&b, "Disposable Income: %s\n", core.FormatCurrency(m.DisposableIncome))
	fmt.Fprintf(&b, "Savings Goal: %s (%.1f%% of income)\n\n", core.FormatCurrency(m.SavingsGoal), m.SavingsRate)
	b.WriteString("Expense Breakdown:\n")
	writeExpenses(&b, rec.Expenses)
	b.WriteString("\nPlease provide:\n")
	writeSections(&b, budgetSections)
	b.WriteString("\nFormat your response in a clear, structured manner.")
	appendNote(&b, KindBudgetSummary, rec.Persona)
	return b.String()
}

// SpendingInsights renders a spending behavior prompt. Goals are listed as given.
func SpendingInsights(rec core.BudgetRecord, goals []string) string {
	total := core.TotalExpenses(rec.Expenses)

	var b strings.Builder
	b.WriteString("Analyze this spending behavior and provide detailed insights:\n\n")
	fmt.Fprintf(&b, "Monthly Income: %s\n", core.FormatCurrency(rec.Income))
	fmt.Fprintf(&b, "Total Monthly Expenses: %s\n", core.FormatCurrency(total))
	fmt.Fprintf(&b, "Spending Rate: %.1f%% of income\n\n", core.Percentage(total, rec.Income))
	b.WriteString("Expense Categories:\n")
	writeExpenses(&b, rec.Expenses)
	b.WriteString("\nFinancial Goals:\n")
	if len(goals) == 0 {
		b.WriteString("No specific goals mentioned\n")
	}
	for _, g := range goals {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	b.WriteString("\nPlease provide:\n")
	writeSections(&b, insightSections)
	b.WriteString("\nProvide actionable, specific advice.")
	appendNote(&b, KindSpendingInsights, rec.Persona)
	return b.String()
}

func writeExpenses(b *strings.Builder, expenses []core.Expense) {
	if len(expenses) == 0 {
		b.WriteString("- none reported\n")
		return
	}
	for _, e := range expenses {
		fmt.Fprintf(b, "- %s: %s\n", e.Category, core.FormatCurrency(e.Amount))
	}
}

func writeSections(b *strings.Builder, sections []string) {
	for i, s := range sections {
		fmt.Fprintf(b, "%d. %s\n", i+1, s)
	}
}

func appendNote(b *strings.Builder, kind Kind, persona core.Persona) {
	n := notes[kind]
	switch persona {
	case core.PersonaStudent:
		b.WriteString("\n\n" + n.student)
	case core.PersonaProfessional:
		b.WriteString("\n\n" + n.professional)
	}
}
