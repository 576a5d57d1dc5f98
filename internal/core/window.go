package core

import (
	"strings"
	"time"
)

// Window narrows a record sequence to a trailing time range.
type Window int

const (
	AllTime Window = iota
	Last7Days
	Last30Days
)

func (w Window) String() string {
	switch w {
	case Last7Days:
		return "7d"
	case Last30Days:
		return "30d"
	default:
		return "all"
	}
}

// Days returns the length of a fixed window, 0 for AllTime.
func (w Window) Days() int {
	switch w {
	case Last7Days:
		return 7
	case Last30Days:
		return 30
	default:
		return 0
	}
}

// ParseWindow accepts "7d", "30d" or "all". Empty means all.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AllTime, nil
	case "7d":
		return Last7Days, nil
	case "30d":
		return Last30Days, nil
	default:
		return AllTime, ErrInvalidWindow
	}
}

// Cutoff returns the earliest date kept by w relative to ref, and false for
// AllTime.
func (w Window) Cutoff(ref time.Time) (Date, bool) {
	n := w.Days()
	if n == 0 {
		return Date{}, false
	}
	return DateOf(ref).AddDays(-n), true
}

// Filter returns the records whose date is on or after ref's calendar day
// minus the window length. AllTime returns a copy of every record. The input
// is never mutated and order is preserved.
func Filter(records []Transaction, w Window, ref time.Time) []Transaction {
	cutoff, bounded := w.Cutoff(ref)
	out := make([]Transaction, 0, len(records))
	for _, r := range records {
		if bounded && r.Date.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}
