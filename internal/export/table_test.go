package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"fintrack/internal/core"
)

func sampleRecords() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Description: "Salary", Type: core.Income, Amount: core.Money{Cents: 100000}, Category: "Salary", Date: core.NewDate(2024, 1, 1)},
		{ID: "2", Description: "Groceries", Type: core.Expense, Amount: core.Money{Cents: 30000}, Category: "Food", Date: core.NewDate(2024, 1, 2)},
		{ID: "3", Description: "Power", Type: core.Expense, Amount: core.Money{Cents: 20000}, Category: "Bills", Date: core.NewDate(2024, 1, 3)},
	}
}

func sampleSummary() core.Summary {
	return core.Aggregate(sampleRecords(), core.Query{
		Window:    core.AllTime,
		Reference: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
}

func TestPrintSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	PrintSummaryTable(&buf, sampleSummary(), NewCurrency("USD"))
	out := buf.String()

	for _, want := range []string{"Window: all (3 records)", "Income", "Expenses", "Balance", "$1,000.00", "$500.00", "Food", "Bills", "Salary", "60.0%", "40.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Food") > strings.Index(out, "Bills") {
		t.Fatalf("expected larger category first:\n%s", out)
	}
}

func TestPrintSummaryTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintSummaryTable(&buf, core.Aggregate(nil, core.Query{Window: core.Last7Days, Reference: time.Now()}), NewCurrency("EUR"))
	out := buf.String()
	if !strings.Contains(out, "(0 records)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if strings.Contains(strings.ToLower(out), "by category") {
		t.Fatalf("empty summary must not print breakdowns:\n%s", out)
	}
}

func TestPrintCategoriesTable(t *testing.T) {
	var buf bytes.Buffer
	candidates := []string{"Bills", "Food", "Gym", core.CustomSentinel}
	PrintCategoriesTable(&buf, core.Expense, candidates, []string{"Gym"})
	out := buf.String()

	if !strings.Contains(strings.ToLower(out), "expense categories") {
		t.Fatalf("missing title:\n%s", out)
	}
	for _, want := range []string{"Bills", "Gym", "custom", "built-in", core.CustomSentinel, "new entry"} {
		if !strings.Contains(out, want) {
			t.Fatalf("categories output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintTransactionsTable(t *testing.T) {
	var buf bytes.Buffer
	PrintTransactionsTable(&buf, sampleRecords(), NewCurrency("USD"))
	out := buf.String()

	for _, want := range []string{"2024-01-02", "Groceries", "Food", "expense", "$300.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("transactions output missing %q:\n%s", want, out)
		}
	}
}
