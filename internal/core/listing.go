package core

import (
	"sort"
	"strings"
)

// SortField names a column of the transactions list.
type SortField string

const (
	SortByDate        SortField = "date"
	SortByAmount      SortField = "amount"
	SortByCategory    SortField = "category"
	SortByDescription SortField = "description"
)

// RecentLimit is the number of records shown on the dashboard.
const RecentLimit = 3

// ParseSortField maps a query value to a SortField. Empty means date.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return SortByDate, nil
	case SortByDate, SortByAmount, SortByCategory, SortByDescription:
		return f, nil
	default:
		return "", ErrUnknownSortField
	}
}

// FilterType keeps records of type t. An empty t keeps everything.
func FilterType(records []Transaction, t TransactionType) []Transaction {
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		if t == "" || r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a sorted copy. Ties fall back to newest first so the order is
// stable across calls.
func Sort(records []Transaction, field SortField, desc bool) []Transaction {
	out := append([]Transaction(nil), records...)
	less := func(a, b Transaction) int {
		switch field {
		case SortByAmount:
			return compareInt64(a.Amount.Cents, b.Amount.Cents)
		case SortByCategory:
			return strings.Compare(strings.ToLower(a.Category), strings.ToLower(b.Category))
		case SortByDescription:
			return strings.Compare(strings.ToLower(a.Description), strings.ToLower(b.Description))
		default:
			return a.Date.Compare(b.Date.Time)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := less(out[i], out[j])
		if c == 0 {
			return newerFirst(out[i], out[j])
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Recent returns the n newest records by date, then creation time.
func Recent(records []Transaction, n int) []Transaction {
	out := append([]Transaction(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i], out[j])
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func newerFirst(a, b Transaction) bool {
	if !a.Date.Equal(b.Date.Time) {
		return a.Date.After(b.Date)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
