package services

import (
	"context"
	"errors"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionForm is a submitted create or edit form. Category is the
// selected candidate; CustomCategory is the freeform text used when the
// selection is core.CustomSentinel.
type TransactionForm struct {
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Type           string `json:"type"`
	Date           string `json:"date"`
	Category       string `json:"category"`
	CustomCategory string `json:"customCategory"`
}

// ListOptions filters and orders List results.
type ListOptions struct {
	Type core.TransactionType // empty keeps both
	Sort core.SortField
	Desc bool
}

// WriteRecorder counts persisted writes.
type WriteRecorder interface {
	TransactionWritten(txType, op string)
}

// TransactionService runs the create, edit and delete flows for one user's
// records and tells subscribers about every change.
type TransactionService struct {
	store    storage.TransactionStore
	profiles *ProfileService
	notifier Notifier
	metrics  WriteRecorder
	logger   *applog.Logger
	audit    *applog.StructuredLogger
}

func NewTransactionService(store storage.TransactionStore, profiles *ProfileService, notifier Notifier, metrics WriteRecorder, logger *applog.Logger) *TransactionService {
	logger = logger.WithComponent(applog.ComponentTransaction)
	return &TransactionService{
		store:    store,
		profiles: profiles,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		audit:    applog.NewStructuredLogger(logger),
	}
}

// Create validates the form, resolves its category and stores the record.
func (s *TransactionService) Create(ctx context.Context, uid string, form TransactionForm) (core.Transaction, error) {
	tx, err := s.prepare(ctx, uid, form)
	if err != nil {
		return core.Transaction{}, err
	}

	stored, err := s.store.Create(ctx, tx)
	if err != nil {
		s.audit.LogError(ctx, "Failed to create transaction", err, applog.ComponentTransaction, applog.OpCreate,
			applog.NewFields().WithUser(uid).WithErrorType(applog.ErrorTypeDatabase))
		return core.Transaction{}, external(ServiceStore, "create transaction", err)
	}

	s.written(ctx, applog.OpCreate, stored)
	return stored, nil
}

// Update replaces every field of record id with the form's values.
func (s *TransactionService) Update(ctx context.Context, uid, id string, form TransactionForm) (core.Transaction, error) {
	existing, err := s.store.Get(ctx, uid, id)
	if err != nil {
		return core.Transaction{}, storeError("load transaction", err)
	}

	tx, err := s.prepare(ctx, uid, form)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.ID = existing.ID
	tx.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, tx); err != nil {
		s.audit.LogError(ctx, "Failed to update transaction", err, applog.ComponentTransaction, applog.OpUpdate,
			applog.NewFields().WithUser(uid).WithErrorType(applog.ErrorTypeDatabase))
		return core.Transaction{}, storeError("update transaction", err)
	}

	s.written(ctx, applog.OpUpdate, tx)
	return tx, nil
}

// Delete removes record id permanently.
func (s *TransactionService) Delete(ctx context.Context, uid, id string) error {
	existing, err := s.store.Get(ctx, uid, id)
	if err != nil {
		return storeError("load transaction", err)
	}
	if err := s.store.Delete(ctx, uid, id); err != nil {
		return storeError("delete transaction", err)
	}

	if s.metrics != nil {
		s.metrics.TransactionWritten(existing.Type.String(), applog.OpDelete)
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		applog.FieldUserID, uid,
		applog.FieldTransactionID, id,
		applog.FieldOperation, applog.OpDelete,
	)
	s.notifier.TransactionsChanged(ctx, uid)
	return nil
}

// Get returns one record.
func (s *TransactionService) Get(ctx context.Context, uid, id string) (core.Transaction, error) {
	tx, err := s.store.Get(ctx, uid, id)
	if err != nil {
		return core.Transaction{}, storeError("load transaction", err)
	}
	return tx, nil
}

// List returns the user's records filtered and sorted per opts.
func (s *TransactionService) List(ctx context.Context, uid string, opts ListOptions) ([]core.Transaction, error) {
	records, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return nil, external(ServiceStore, "list transactions", err)
	}
	records = core.FilterType(records, opts.Type)
	if opts.Sort == "" {
		opts.Sort = core.SortByDate
		opts.Desc = true
	}
	return core.Sort(records, opts.Sort, opts.Desc), nil
}

// prepare validates every field before the category is resolved, so a
// rejected form never promotes a custom category.
func (s *TransactionService) prepare(ctx context.Context, uid string, form TransactionForm) (core.Transaction, error) {
	in := core.TransactionInput{
		Description: form.Description,
		Amount:      form.Amount,
		Category:    form.Category,
		Type:        form.Type,
		Date:        form.Date,
	}
	if form.Category == core.CustomSentinel {
		in.Category = form.CustomCategory
	}
	tx, err := core.ValidateInput(in)
	if err != nil {
		return core.Transaction{}, err
	}

	category, err := s.profiles.ResolveCategory(ctx, uid, tx.Type, form.Category, form.CustomCategory)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Category = category
	tx.UserID = uid
	return tx, nil
}

func (s *TransactionService) written(ctx context.Context, op string, tx core.Transaction) {
	if s.metrics != nil {
		s.metrics.TransactionWritten(tx.Type.String(), op)
	}
	s.audit.LogTransactionWritten(ctx, op, tx.UserID, tx.ID, tx.Type.String(), tx.Category, tx.Amount.Cents, tx.Date.String())
	s.notifier.TransactionsChanged(ctx, tx.UserID)
}

// storeError keeps not-found distinguishable and wraps everything else.
func storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return external(ServiceStore, op, err)
}
