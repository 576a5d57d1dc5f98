package services

import (
	"context"
	"io"
	"sync"
	"testing"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage/memory"
)

// flakyStore fails selected operations on demand.
type flakyStore struct {
	*memory.Store
	categoriesErr error
	createErr     error
	listErr       error
	lists         int
}

func (f *flakyStore) UpdateCustomCategories(ctx context.Context, uid string, t core.TransactionType, list []string) error {
	if f.categoriesErr != nil {
		return f.categoriesErr
	}
	return f.Store.UpdateCustomCategories(ctx, uid, t, list)
}

func (f *flakyStore) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	return f.Store.Create(ctx, tx)
}

func (f *flakyStore) ListByUser(ctx context.Context, uid string) ([]core.Transaction, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.ListByUser(ctx, uid)
}

type recordingNotifier struct {
	mu   sync.Mutex
	uids []string
}

func (n *recordingNotifier) TransactionsChanged(_ context.Context, uid string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.uids = append(n.uids, uid)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.uids)
}

type fakeBlobs struct {
	err     error
	uploads map[string][]byte
}

func (b *fakeBlobs) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.uploads == nil {
		b.uploads = map[string][]byte{}
	}
	b.uploads[path] = data
	return "https://blobs.test/" + path, nil
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

type fixture struct {
	store    *flakyStore
	blobs    *fakeBlobs
	notifier *recordingNotifier
	profiles *ProfileService
	txs      *TransactionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := &flakyStore{Store: memory.New()}
	if err := store.CreateProfile(context.Background(), core.NewUserProfile("u1", "ada@example.com", "Ada")); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	blobs := &fakeBlobs{}
	notifier := &recordingNotifier{}
	profiles := NewProfileService(store, blobs, core.Builtins{
		core.Expense: {"Food", "Bills"},
		core.Income:  {"Salary"},
	}, testLogger())
	return &fixture{
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		profiles: profiles,
		txs:      NewTransactionService(store, profiles, notifier, nil, testLogger()),
	}
}

func form(desc, amount, typ, date, category string) TransactionForm {
	return TransactionForm{Description: desc, Amount: amount, Type: typ, Date: date, Category: category}
}
