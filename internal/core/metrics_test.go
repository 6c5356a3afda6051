package core

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, whole, want float64
	}{
		{50, 200, 25},
		{200, 200, 100},
		{300, 200, 150},
		{10, 0, 0},
		{10, -5, 0},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := Percentage(tt.part, tt.whole); !almostEqual(got, tt.want) {
			t.Errorf("Percentage(%v, %v) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}

func TestTotalsAndDisposable(t *testing.T) {
	expenses := []Expense{{"Rent", 1500}, {"Dining", 2000}, {"Other", 0.5}}
	if got := TotalExpenses(expenses); !almostEqual(got, 3500.5) {
		t.Fatalf("TotalExpenses = %v", got)
	}
	if got := DisposableIncome(3000, expenses); !almostEqual(got, -500.5) {
		t.Fatalf("DisposableIncome = %v, want negative remainder", got)
	}
	if got := TotalExpenses(nil); got != 0 {
		t.Fatalf("TotalExpenses(nil) = %v", got)
	}
}

func TestTopCategories(t *testing.T) {
	expenses := []Expense{
		{"A", 100},
		{"B", 300},
		{"C", 100},
		{"D", 300},
		{"E", 200},
	}

	got := TopCategories(expenses, 3)
	wantNames := []string{"B", "D", "E"}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, name := range wantNames {
		if got[i].Category != name {
			t.Fatalf("position %d: got %q, want %q (%+v)", i, got[i].Category, name, got)
		}
	}
	if !almostEqual(got[0].Percentage, 300.0/1000*100) {
		t.Fatalf("unexpected percentage %v", got[0].Percentage)
	}

	t.Run("ties keep input order", func(t *testing.T) {
		got := TopCategories([]Expense{{"X", 5}, {"Y", 5}, {"Z", 5}, {"W", 5}}, 3)
		names := []string{got[0].Category, got[1].Category, got[2].Category}
		if !reflect.DeepEqual(names, []string{"X", "Y", "Z"}) {
			t.Fatalf("got %v", names)
		}
	})

	t.Run("fewer than n", func(t *testing.T) {
		if got := TopCategories([]Expense{{"Only", 10}}, 3); len(got) != 1 || got[0].Percentage != 100 {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if got := TopCategories(nil, 3); len(got) != 0 {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("zero total yields zero percentages", func(t *testing.T) {
		got := TopCategories([]Expense{{"Free", 0}}, 3)
		if got[0].Percentage != 0 {
			t.Fatalf("got %+v", got)
		}
	})

	t.Run("does not reorder input", func(t *testing.T) {
		in := []Expense{{"a", 1}, {"b", 2}}
		TopCategories(in, 2)
		if in[0].Category != "a" {
			t.Fatal("input slice was modified")
		}
	})
}

func TestSplitEssential(t *testing.T) {
	expenses := []Expense{
		{"Monthly Rent", 1500},
		{"GROCERIES", 400},
		{"Dining Out", 250},
		{"Travel", 300},
		{"Gym", 50},
	}
	split := SplitEssential(expenses)
	if !almostEqual(split.Essential, 1900) {
		t.Errorf("Essential = %v, want 1900", split.Essential)
	}
	if !almostEqual(split.Discretionary, 550) {
		t.Errorf("Discretionary = %v, want 550", split.Discretionary)
	}
}

func TestComputeMetrics(t *testing.T) {
	rec := BudgetRecord{
		Income:      5000,
		SavingsGoal: 500,
		Expenses:    []Expense{{"Rent", 1500}, {"Dining", 2000}},
	}
	m := ComputeMetrics(rec)
	if m.TotalIncome != 5000 || m.TotalExpenses != 3500 || m.DisposableIncome != 1500 {
		t.Fatalf("unexpected totals %+v", m)
	}
	if !almostEqual(m.SavingsRate, 10) || !almostEqual(m.ExpenseRate, 70) {
		t.Fatalf("unexpected rates %+v", m)
	}
	if len(m.TopCategories) != 2 || m.TopCategories[0].Category != "Dining" {
		t.Fatalf("unexpected top categories %+v", m.TopCategories)
	}

	zero := ComputeMetrics(BudgetRecord{Expenses: []Expense{{"Rent", 10}}})
	if zero.SavingsRate != 0 || zero.ExpenseRate != 0 {
		t.Fatalf("zero income must not divide: %+v", zero)
	}
}
