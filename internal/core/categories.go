package core

import (
	"errors"
	"sort"
	"strings"
)

// CustomSentinel is the trailing candidate meaning "enter a new category".
const CustomSentinel = "Custom"

const fallbackColor = "#64748b"

// ErrReservedCategory is returned when freeform text equals the sentinel.
var ErrReservedCategory = errors.New("category name is reserved")

// Builtins maps a transaction type to its fixed category list, in display order.
type Builtins map[TransactionType][]string

// Resolution is the outcome of resolving a category selection.
type Resolution struct {
	Category string
	// Customs is the custom sequence for the resolved type after the call.
	// It is always a fresh slice.
	Customs  []string
	Promoted bool
}

var categoryColors = map[string]string{
	"Food":          "#f59e0b",
	"Transport":     "#3b82f6",
	"Shopping":      "#8b5cf6",
	"Bills":         "#ef4444",
	"Entertainment": "#14b8a6",
	"Salary":        "#10b981",
	"Freelance":     "#06b6d4",
	"Gift":          "#ec4899",
	"Investment":    "#6366f1",
}

// DefaultBuiltins returns the categories every user starts with.
func DefaultBuiltins() Builtins {
	return Builtins{
		Expense: {"Food", "Transport", "Shopping", "Bills", "Entertainment"},
		Income:  {"Salary", "Freelance", "Gift", "Investment"},
	}
}

// For returns a copy of the built-ins of one type.
func (b Builtins) For(t TransactionType) []string {
	return append([]string{}, b[t]...)
}

// Candidates returns the sorted, deduplicated union of built-in and custom
// categories for t, followed by CustomSentinel.
func Candidates(t TransactionType, builtins Builtins, customs CustomCategories) []string {
	set := candidateSet(t, builtins, customs)
	out := set.Items()
	sort.Strings(out)
	return append(out, CustomSentinel)
}

func candidateSet(t TransactionType, builtins Builtins, customs CustomCategories) *OrderedSet {
	set := NewOrderedSet()
	for _, c := range builtins[t] {
		if c != "" && c != CustomSentinel {
			set.Append(c)
		}
	}
	for _, c := range customs[t] {
		if c != "" && c != CustomSentinel {
			set.Append(c)
		}
	}
	return set
}

// IsCandidate reports whether selection is offered for t, sentinel included.
func IsCandidate(t TransactionType, builtins Builtins, customs CustomCategories, selection string) bool {
	if selection == CustomSentinel {
		return true
	}
	return candidateSet(t, builtins, customs).Contains(selection)
}

// Resolve turns a form selection into a canonical category. When selection is
// the sentinel the trimmed freeform text wins and is promoted to the front of
// the custom sequence for t. Persisting Resolution.Customs is the caller's job.
func Resolve(t TransactionType, builtins Builtins, customs CustomCategories, selection, freeform string) (Resolution, error) {
	current := customs.For(t)

	if selection == "" {
		return Resolution{}, ErrMissingCategory
	}

	if selection == CustomSentinel {
		text := strings.TrimSpace(freeform)
		if text == "" {
			return Resolution{}, ErrMissingCategory
		}
		if text == CustomSentinel {
			return Resolution{}, ErrReservedCategory
		}
		set := NewOrderedSet(current...)
		set.Promote(text)
		return Resolution{Category: text, Customs: set.Items(), Promoted: true}, nil
	}

	if !candidateSet(t, builtins, customs).Contains(selection) {
		return Resolution{}, ErrStaleSelection
	}
	return Resolution{Category: selection, Customs: current}, nil
}

// SelectionFor picks the active selection after the form switches to type t.
// previous survives only when it is a candidate of t; otherwise the first
// built-in of t is used, or "" when t has none.
func SelectionFor(t TransactionType, builtins Builtins, customs CustomCategories, previous string) string {
	if previous != "" && IsCandidate(t, builtins, customs, previous) {
		return previous
	}
	if list := builtins[t]; len(list) > 0 {
		return list[0]
	}
	return ""
}

// CategoryColor returns the chart colour of a category.
func CategoryColor(category string) string {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	return fallbackColor
}
