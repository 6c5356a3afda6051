package core

import (
	"sort"
	"strings"
)

var (
	EssentialCategories     = []string{"rent", "mortgage", "utilities", "groceries", "insurance"}
	DiscretionaryCategories = []string{"entertainment", "dining", "shopping", "travel"}
)

type (
	// CategoryShare is a category amount with its share of total expenses.
	CategoryShare struct {
		Category   string  `json:"category"`
		Amount     float64 `json:"amount"`
		Percentage float64 `json:"percentage"`
	}

	FinancialMetrics struct {
		TotalIncome      float64         `json:"total_income"`
		TotalExpenses    float64         `json:"total_expenses"`
		DisposableIncome float64         `json:"disposable_income"`
		SavingsGoal      float64         `json:"savings_goal"`
		SavingsRate      float64         `json:"savings_rate"`
		ExpenseRate      float64         `json:"expense_rate"`
		TopCategories    []CategoryShare `json:"top_spending_categories"`
	}

	// SpendingSplit sums essential and discretionary categories. A category
	// matching neither list counts toward neither.
	SpendingSplit struct {
		Essential     float64
		Discretionary float64
	}
)

// Percentage returns part/whole*100, or 0 when whole <= 0.
func Percentage(part, whole float64) float64 {
	if whole <= 0 {
		return 0
	}
	return part / whole * 100
}

func TotalExpenses(expenses []Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// DisposableIncome is income minus total expenses. It may be negative.
func DisposableIncome(income float64, expenses []Expense) float64 {
	return income - TotalExpenses(expenses)
}

// TopCategories returns at most n categories by amount, largest first. Ties
// keep their input order.
func TopCategories(expenses []Expense, n int) []CategoryShare {
	if n <= 0 || len(expenses) == 0 {
		return []CategoryShare{}
	}
	sorted := make([]Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount > sorted[j].Amount
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	total := TotalExpenses(expenses)
	out := make([]CategoryShare, 0, len(sorted))
	for _, e := range sorted {
		out = append(out, CategoryShare{
			Category:   e.Category,
			Amount:     e.Amount,
			Percentage: Percentage(e.Amount, total),
		})
	}
	return out
}

// Shares annotates every expense with its share of the total, in input order.
func Shares(expenses []Expense) []CategoryShare {
	total := TotalExpenses(expenses)
	out := make([]CategoryShare, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, CategoryShare{
			Category:   e.Category,
			Amount:     e.Amount,
			Percentage: Percentage(e.Amount, total),
		})
	}
	return out
}

// SplitEssential classifies categories by case-insensitive substring match.
func SplitEssential(expenses []Expense) SpendingSplit {
	var split SpendingSplit
	for _, e := range expenses {
		name := strings.ToLower(e.Category)
		if containsAny(name, EssentialCategories) {
			split.Essential += e.Amount
		}
		if containsAny(name, DiscretionaryCategories) {
			split.Discretionary += e.Amount
		}
	}
	return split
}

// ComputeMetrics derives the budget summary figures for rec.
func ComputeMetrics(rec BudgetRecord) FinancialMetrics {
	total := TotalExpenses(rec.Expenses)
	return FinancialMetrics{
		TotalIncome:      rec.Income,
		TotalExpenses:    total,
		DisposableIncome: rec.Income - total,
		SavingsGoal:      rec.SavingsGoal,
		SavingsRate:      Percentage(rec.SavingsGoal, rec.Income),
		ExpenseRate:      Percentage(total, rec.Income),
		TopCategories:    TopCategories(rec.Expenses, 3),
	}
}
