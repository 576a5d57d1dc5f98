package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO 8601 calendar date format used on every boundary.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date without time of day, held at UTC midnight.
	Date struct {
		time.Time
	}

	// Money is an amount in minor units (cents). Sums stay exact.
	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string // Assigned by the store, immutable
		UserID      string
		Description string
		Amount      Money
		Category    string
		Type        TransactionType
		Date        Date
		CreatedAt   time.Time
	}

	// CustomCategories maps a transaction type to user-defined categories,
	// most recently used first.
	CustomCategories map[TransactionType][]string

	UserProfile struct {
		UID              string
		Email            string
		Name             string
		PhotoURL         string // Empty when no avatar was uploaded
		CustomCategories CustomCategories
	}
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyDescription      = errors.New("empty description")
	ErrDescriptionTooLong    = errors.New("description too long (max 200 characters)")
	ErrMissingCategory       = errors.New("missing category")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidType           = errors.New("invalid transaction type")
	ErrStaleSelection        = errors.New("selected category is not available for this type")
	ErrInvalidWindow         = errors.New("invalid time window")
	ErrInvalidGranularity    = errors.New("invalid granularity")
	ErrUnknownSortField      = errors.New("unknown sort field")
	maxDescriptionLength     = 200
	transactionTypes         = []TransactionType{Expense, Income}
	emptyCustomCategoryTypes = CustomCategories{Expense: {}, Income: {}}
)

// TransactionTypes returns both variants, expense first.
func TransactionTypes() []TransactionType {
	return append([]TransactionType(nil), transactionTypes...)
}

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the two known variants.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// ParseTransactionType accepts "income" or "expense", case-insensitively.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", ErrInvalidType
	}
	return t, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Out-of-range days such as
// 2024-02-30 are rejected.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (earlier when negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// MonthStart returns the first day of d's month.
func (d Date) MonthStart() Date {
	return NewDate(d.Year(), int(d.Month()), 1)
}

// NextMonth returns the first day of the following month.
func (d Date) NextMonth() Date {
	return Date{Time: d.MonthStart().AddDate(0, 1, 0)}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrMissingCategory
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// NewUserProfile builds the profile document written on registration.
func NewUserProfile(uid, email, name string) UserProfile {
	return UserProfile{
		UID:              uid,
		Email:            email,
		Name:             name,
		CustomCategories: emptyCustomCategoryTypes.Clone(),
	}
}

// Clone deep-copies the mapping so callers can never alias a cached profile.
func (c CustomCategories) Clone() CustomCategories {
	out := make(CustomCategories, len(transactionTypes))
	for _, t := range transactionTypes {
		out[t] = append([]string{}, c[t]...)
	}
	return out
}

// For returns the categories of one type; never nil.
func (c CustomCategories) For(t TransactionType) []string {
	if c == nil || c[t] == nil {
		return []string{}
	}
	return append([]string{}, c[t]...)
}
