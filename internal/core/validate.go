package core

// Normalize coerces raw input into a BudgetRecord. It never fails: invalid
// income or savings goal become 0, invalid or negative expenses are dropped
// and unknown personas become general.
func Normalize(raw RawBudget) BudgetRecord {
	rec := BudgetRecord{
		Income:      nonNegative(raw.Income),
		SavingsGoal: nonNegative(raw.SavingsGoal),
		Persona:     NormalizePersona(raw.Persona),
	}

	// Collapse duplicate categories first so the last value wins.
	var entries RawExpenses
	for _, e := range raw.Expenses {
		entries.Set(e.Category, e.Value)
	}
	for _, e := range entries {
		amount, ok := ParseAmount(e.Value)
		if !ok || amount < 0 {
			continue
		}
		rec.Expenses = append(rec.Expenses, Expense{Category: e.Category, Amount: amount})
	}
	return rec
}

func nonNegative(v any) float64 {
	f, ok := ParseAmount(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}
