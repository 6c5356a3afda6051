package services

import (
	"bytes"
	"encoding/json"
	"strings"

	"finadvisor/internal/core"
)

// Action items in the order they are evaluated.
const (
	ActionReduceDiscretionary = "Reduce discretionary spending"
	ActionReduceEssential     = "Look for ways to reduce essential expenses"
	ActionStrictBudget        = "Create a strict budget to avoid overspending"
	ActionPrioritizeGoals     = "Prioritize your financial goals"
	ActionTrackSpending       = "Track spending patterns for the next month"
)

// recommendationTriggers maps words found in a summary to fixed
// recommendations, in output order.
var recommendationTriggers = []struct {
	word           string
	recommendation string
}{
	{"reduce", "Consider reducing discretionary expenses"},
	{"emergency", "Build an emergency fund"},
	{"automate", "Set up automatic savings transfers"},
	{"track", "Track your spending regularly"},
	{"review", "Review and adjust your budget monthly"},
}

type (
	// SpendingAnalysis breaks expenses into essential and discretionary
	// buckets. Categories matching neither bucket only count toward the total.
	SpendingAnalysis struct {
		TotalExpenses           float64           `json:"total_expenses"`
		EssentialExpenses       float64           `json:"essential_expenses"`
		DiscretionaryExpenses   float64           `json:"discretionary_expenses"`
		SpendingByCategory      CategoryBreakdown `json:"spending_by_category"`
		EssentialPercentage     float64           `json:"essential_percentage"`
		DiscretionaryPercentage float64           `json:"discretionary_percentage"`
	}

	// CategoryBreakdown encodes as a JSON object keyed by category, in
	// input order.
	CategoryBreakdown []core.CategoryShare
)

type categoryAmount struct {
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

func (c CategoryBreakdown) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, share := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(share.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(categoryAmount{Amount: share.Amount, Percentage: share.Percentage})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AnalyzeSpending computes the spending analysis for a normalized record.
func AnalyzeSpending(rec core.BudgetRecord) SpendingAnalysis {
	total := core.TotalExpenses(rec.Expenses)
	split := core.SplitEssential(rec.Expenses)
	return SpendingAnalysis{
		TotalExpenses:           total,
		EssentialExpenses:       split.Essential,
		DiscretionaryExpenses:   split.Discretionary,
		SpendingByCategory:      core.Shares(rec.Expenses),
		EssentialPercentage:     core.Percentage(split.Essential, total),
		DiscretionaryPercentage: core.Percentage(split.Discretionary, total),
	}
}

// ActionItems derives the follow-up actions for a spending analysis. The
// tracking item is always last.
func ActionItems(income float64, a SpendingAnalysis, goals []string) []string {
	items := make([]string, 0, 5)
	if a.DiscretionaryExpenses > a.EssentialExpenses*0.5 {
		items = append(items, ActionReduceDiscretionary)
	}
	if a.EssentialExpenses > income*0.7 {
		items = append(items, ActionReduceEssential)
	}
	if a.TotalExpenses > income*0.9 {
		items = append(items, ActionStrictBudget)
	}
	if len(goals) > 0 {
		items = append(items, ActionPrioritizeGoals)
	}
	return append(items, ActionTrackSpending)
}

// Recommendations scans summary for trigger words, case-insensitively.
func Recommendations(summary string) []string {
	lower := strings.ToLower(summary)
	recs := make([]string, 0, len(recommendationTriggers))
	for _, t := range recommendationTriggers {
		if strings.Contains(lower, t.word) {
			recs = append(recs, t.recommendation)
		}
	}
	return recs
}
