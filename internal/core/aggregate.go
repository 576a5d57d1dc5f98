package core

import (
	"sort"
	"strings"
	"time"
)

// Granularity selects the bucket size of a summary series.
type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

const (
	dailyLabel   = "Jan 2"
	monthlyLabel = "Jan 2006"
)

func (g Granularity) String() string {
	if g == Monthly {
		return "monthly"
	}
	return "daily"
}

// ParseGranularity accepts "daily" or "monthly". Empty means daily.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "day":
		return Daily, nil
	case "monthly", "month":
		return Monthly, nil
	default:
		return Daily, ErrInvalidGranularity
	}
}

type (
	// Query parameterises Aggregate.
	Query struct {
		Window      Window
		Reference   time.Time
		Granularity Granularity
	}

	// Bucket is one period of a chart series.
	Bucket struct {
		Label   string
		Start   Date
		Income  Money
		Expense Money
	}

	// CategoryTotals holds per-category sums split by type. Categories with
	// no matching records are absent.
	CategoryTotals struct {
		Income  map[string]Money
		Expense map[string]Money
	}

	// CategoryAmount is one row of a breakdown.
	CategoryAmount struct {
		Category string
		Amount   Money
		Color    string
	}

	Summary struct {
		Window       Window
		Granularity  Granularity
		TotalIncome  Money
		TotalExpense Money
		Balance      Money
		Count        int
		IncomeCount  int
		ExpenseCount int
		Categories   CategoryTotals
		Series       []Bucket
	}
)

// Aggregate computes totals, category sums and a zero-filled series over the
// records that pass q.Window. Monthly series span the whole unfiltered history.
func Aggregate(records []Transaction, q Query) Summary {
	filtered := Filter(records, q.Window, q.Reference)

	s := Summary{
		Window:      q.Window,
		Granularity: q.Granularity,
		Categories: CategoryTotals{
			Income:  map[string]Money{},
			Expense: map[string]Money{},
		},
	}

	for _, r := range filtered {
		switch r.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(r.Amount)
			s.Categories.Income[r.Category] = s.Categories.Income[r.Category].Add(r.Amount)
			s.IncomeCount++
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(r.Amount)
			s.Categories.Expense[r.Category] = s.Categories.Expense[r.Category].Add(r.Amount)
			s.ExpenseCount++
		default:
			continue
		}
		s.Count++
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpense)

	if q.Granularity == Monthly {
		s.Series = monthlySeries(records)
	} else {
		s.Series = dailySeries(filtered, q)
	}
	return s
}

func dailySeries(records []Transaction, q Query) []Bucket {
	var first, last Date
	if cutoff, bounded := q.Window.Cutoff(q.Reference); bounded {
		// Same range Filter keeps, so every counted record lands in a bucket.
		first, last = cutoff, DateOf(q.Reference)
		if _, newest, ok := dateRange(records); ok && newest.After(last) {
			last = newest
		}
	} else {
		var ok bool
		first, last, ok = dateRange(records)
		if !ok {
			return []Bucket{}
		}
	}

	buckets := make([]Bucket, 0)
	pos := make(map[Date]int)
	for d := first; !d.After(last); d = d.AddDays(1) {
		pos[d] = len(buckets)
		buckets = append(buckets, Bucket{Label: d.Format(dailyLabel), Start: d})
	}
	for _, r := range records {
		if i, ok := pos[r.Date]; ok {
			addToBucket(&buckets[i], r)
		}
	}
	return buckets
}

func monthlySeries(records []Transaction) []Bucket {
	first, last, ok := dateRange(records)
	if !ok {
		return []Bucket{}
	}

	buckets := make([]Bucket, 0)
	pos := make(map[Date]int)
	for m := first.MonthStart(); !m.After(last); m = m.NextMonth() {
		pos[m] = len(buckets)
		buckets = append(buckets, Bucket{Label: m.Format(monthlyLabel), Start: m})
	}
	for _, r := range records {
		if i, ok := pos[r.Date.MonthStart()]; ok {
			addToBucket(&buckets[i], r)
		}
	}
	return buckets
}

func addToBucket(b *Bucket, r Transaction) {
	switch r.Type {
	case Income:
		b.Income = b.Income.Add(r.Amount)
	case Expense:
		b.Expense = b.Expense.Add(r.Amount)
	}
}

func dateRange(records []Transaction) (first, last Date, ok bool) {
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		if !ok || r.Date.Before(first) {
			first = r.Date
		}
		if !ok || r.Date.After(last) {
			last = r.Date
		}
		ok = true
	}
	return first, last, ok
}

// Totals returns the per-category map of one type.
func (c CategoryTotals) Totals(t TransactionType) map[string]Money {
	if t == Income {
		return c.Income
	}
	return c.Expense
}

// Breakdown lists the category totals of t by amount descending, then name.
func (s Summary) Breakdown(t TransactionType) []CategoryAmount {
	totals := s.Categories.Totals(t)
	out := make([]CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, CategoryAmount{Category: name, Amount: amount, Color: CategoryColor(name)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Share returns amount as a percentage of the type total, 0 when empty.
func (s Summary) Share(t TransactionType, amount Money) float64 {
	total := s.TotalExpense
	if t == Income {
		total = s.TotalIncome
	}
	if total.Cents == 0 {
		return 0
	}
	return float64(amount.Cents) * 100 / float64(total.Cents)
}
