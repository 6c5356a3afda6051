package advice

import (
	"strings"

	"finadvisor/internal/core"
)

// Scope restricts a rule to a persona branch.
type Scope int

const (
	ScopeAny Scope = iota
	// ScopeStudent matches the student persona or any prompt mentioning students.
	ScopeStudent
	// ScopeProfessional matches the professional persona unless the student
	// branch already claimed the prompt.
	ScopeProfessional
)

// Rule maps a prompt to a template when every word in All and at least one
// word in Any appear. An empty Any matches.
type Rule struct {
	ID       string
	Scope    Scope
	All      []string
	Any      []string
	Template string
}

// Rules is evaluated top to bottom; the first match wins.
var Rules = []Rule{
	{ID: "student-loan-gym", Scope: ScopeStudent, All: []string{"gym"}, Any: []string{"loan", "debt", "payment"}, Template: "student_loan_gym"},
	{ID: "student-loan", Scope: ScopeStudent, Any: []string{"loan", "debt", "payment"}, Template: "student_loan"},
	{ID: "student-saving", Scope: ScopeStudent, Any: []string{"save", "saving", "money"}, Template: "student_saving"},
	{ID: "student-budget", Scope: ScopeStudent, Any: []string{"budget", "expense"}, Template: "student_budget"},
	{ID: "student-gym", Scope: ScopeStudent, Any: []string{"gym", "fitness", "membership"}, Template: "student_loan_gym"},

	{ID: "professional-investment", Scope: ScopeProfessional, Any: []string{"investment", "invest", "portfolio"}, Template: "professional_investment"},
	{ID: "professional-retirement", Scope: ScopeProfessional, Any: []string{"retirement", "401k", "pension"}, Template: "professional_retirement"},
	{ID: "professional-tax", Scope: ScopeProfessional, Any: []string{"tax", "deduction"}, Template: "professional_tax"},

	{ID: "budget-summary", All: []string{"budget", "summary"}, Template: "budget_summary"},
	{ID: "grocery-saving", All: []string{"grocer", "saving"}, Template: "grocery_saving"},
	{ID: "house-saving", All: []string{"house"}, Any: []string{"saving", "buy"}, Template: "house_saving"},
	{ID: "saving", Any: []string{"save", "saving", "money"}, Template: "savings_investment"},
	{ID: "debt", Any: []string{"debt", "loan", "credit"}, Template: "debt_management"},
	{ID: "investment", Any: []string{"investment", "invest"}, Template: "savings_investment"},
	{ID: "budget", Any: []string{"budget", "expense"}, Template: "budget_basics"},
	{ID: "emergency-fund", Any: []string{"emergency", "fund"}, Template: "emergency_fund"},
}

func (r Rule) matches(lower string, persona core.Persona) bool {
	if !r.inScope(lower, persona) {
		return false
	}
	for _, w := range r.All {
		if !strings.Contains(lower, w) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, w := range r.Any {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func (r Rule) inScope(lower string, persona core.Persona) bool {
	student := persona == core.PersonaStudent || strings.Contains(lower, "student")
	switch r.Scope {
	case ScopeStudent:
		return student
	case ScopeProfessional:
		return persona == core.PersonaProfessional && !student
	default:
		return true
	}
}
