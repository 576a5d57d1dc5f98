package core

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationKind classifies why a submitted record was rejected.
type ValidationKind string

const (
	MissingField    ValidationKind = "missing_field"
	InvalidAmount   ValidationKind = "invalid_amount"
	MissingCategory ValidationKind = "missing_category"
	InvalidDate     ValidationKind = "invalid_date"
)

// TransactionInput holds the raw form values of a record before validation.
// Category is the already resolved (canonical) category.
type TransactionInput struct {
	Description string
	Amount      string
	Category    string
	Type        string
	Date        string
}

// ValidationError reports the first rejected field of a TransactionInput.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateInput checks the raw values in order description, amount,
// category, type, date and returns the record to persist. ID, UserID and
// CreatedAt are left for the store.
func ValidateInput(in TransactionInput) (Transaction, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Transaction{}, &ValidationError{Kind: MissingField, Field: "description", Err: ErrEmptyDescription}
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return Transaction{}, &ValidationError{Kind: MissingField, Field: "description", Err: ErrDescriptionTooLong}
	}

	amount, err := ParseMoney(in.Amount)
	if err != nil {
		return Transaction{}, &ValidationError{Kind: InvalidAmount, Field: "amount", Err: err}
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return Transaction{}, &ValidationError{Kind: MissingCategory, Field: "category", Err: ErrMissingCategory}
	}

	txType, err := ParseTransactionType(in.Type)
	if err != nil {
		return Transaction{}, &ValidationError{Kind: MissingField, Field: "type", Err: err}
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return Transaction{}, &ValidationError{Kind: InvalidDate, Field: "date", Err: err}
	}

	return Transaction{
		Description: desc,
		Amount:      amount,
		Category:    category,
		Type:        txType,
		Date:        date,
	}, nil
}
