package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

type cacheCounter struct{ hits, misses int }

func (c *cacheCounter) CacheHit()  { c.hits++ }
func (c *cacheCounter) CacheMiss() { c.misses++ }

func newAnalytics(t *testing.T) (*AnalyticsService, *fixture, *cacheCounter) {
	t.Helper()
	f := newFixture(t)
	counter := &cacheCounter{}
	a := NewAnalyticsService(f.store, cache.NewLRUCache[core.Summary](10, time.Minute), counter, testLogger())
	a.now = func() time.Time { return time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC) }
	return a, f, counter
}

func TestSummaryTotals(t *testing.T) {
	a, f, _ := newAnalytics(t)
	ctx := context.Background()
	f.txs.Create(ctx, "u1", form("pay", "10", "income", "2024-01-01", "Salary"))
	f.txs.Create(ctx, "u1", form("food", "3", "expense", "2024-01-02", "Food"))
	f.txs.Create(ctx, "u1", form("bills", "2", "expense", "2024-01-02", "Bills"))

	s, err := a.Summary(ctx, "u1", core.AllTime, core.Daily)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalIncome.Cents != 1000 || s.TotalExpense.Cents != 500 || s.Balance.Cents != 500 {
		t.Fatalf("totals %d/%d/%d", s.TotalIncome.Cents, s.TotalExpense.Cents, s.Balance.Cents)
	}
	if len(s.Series) != 2 || s.Series[1].Expense.Cents != 500 {
		t.Fatalf("series: %+v", s.Series)
	}

	last7, _ := a.Summary(ctx, "u1", core.Last7Days, core.Daily)
	if last7.Count != 0 || len(last7.Series) != 8 {
		t.Fatalf("last 7 days: count %d series %d", last7.Count, len(last7.Series))
	}
}

func TestSummaryCacheInvalidation(t *testing.T) {
	a, f, counter := newAnalytics(t)
	ctx := context.Background()
	f.txs.Create(ctx, "u1", form("pay", "10", "income", "2024-01-05", "Salary"))

	if _, err := a.Summary(ctx, "u1", core.Last30Days, core.Daily); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if _, err := a.Summary(ctx, "u1", core.Last30Days, core.Daily); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if counter.hits != 1 || counter.misses != 1 || f.store.lists != 1 {
		t.Fatalf("hits %d misses %d loads %d", counter.hits, counter.misses, f.store.lists)
	}

	f.txs.Create(ctx, "u1", form("more", "5", "income", "2024-01-06", "Salary"))
	a.Invalidate("u1")

	s, _ := a.Summary(ctx, "u1", core.Last30Days, core.Daily)
	if s.TotalIncome.Cents != 1500 {
		t.Fatalf("stale summary after invalidate: %d", s.TotalIncome.Cents)
	}
	if counter.misses != 2 {
		t.Fatalf("misses %d, want 2", counter.misses)
	}
}

func TestSummaryStoreFailure(t *testing.T) {
	a, f, _ := newAnalytics(t)
	f.store.listErr = errors.New("timeout")
	if _, err := a.Summary(context.Background(), "u1", core.AllTime, core.Monthly); !IsExternalServiceError(err) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}
}

func TestDashboardRecent(t *testing.T) {
	a, f, _ := newAnalytics(t)
	ctx := context.Background()
	for _, d := range []string{"2024-01-01", "2024-01-04", "2024-01-02", "2024-01-03"} {
		f.txs.Create(ctx, "u1", form("x "+d, "1", "expense", d, "Food"))
	}
	d, err := a.Dashboard(ctx, "u1", core.Last7Days)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if len(d.Recent) != core.RecentLimit || d.Recent[0].Date.String() != "2024-01-04" || d.Recent[2].Date.String() != "2024-01-02" {
		t.Fatalf("recent: %+v", d.Recent)
	}
	// The window starts at 2024-01-03 for the 2024-01-10 reference.
	if d.Summary.ExpenseCount != 2 {
		t.Fatalf("expense count %d", d.Summary.ExpenseCount)
	}
}
