package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

type fakeLocal struct{ calls int }

func (l *fakeLocal) Notify(context.Context, string) error {
	l.calls++
	return nil
}

type fakePublisher struct {
	err   error
	calls int
}

func (p *fakePublisher) PublishTransactionsChanged(context.Context, string) error {
	p.calls++
	return p.err
}

type failureCounter map[string]int

func (f failureCounter) NotifyFailed(transport string) { f[transport]++ }

func TestNotifierRouting(t *testing.T) {
	tests := []struct {
		name          string
		publisher     *fakePublisher
		wantLocal     int
		wantFailures  int
		wantPublished int
	}{
		{"local only", nil, 1, 0, 0},
		{"broker", &fakePublisher{}, 0, 0, 1},
		{"broker down falls back", &fakePublisher{err: errors.New("circuit breaker is open")}, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := &fakeLocal{}
			failures := failureCounter{}
			var pub Publisher
			if tt.publisher != nil {
				pub = tt.publisher
			}
			n := NewNotifier(local, pub, failures, testLogger())
			n.TransactionsChanged(context.Background(), "u1")

			if local.calls != tt.wantLocal {
				t.Errorf("local calls %d, want %d", local.calls, tt.wantLocal)
			}
			if failures["amqp"] != tt.wantFailures {
				t.Errorf("failures %d, want %d", failures["amqp"], tt.wantFailures)
			}
			if tt.publisher != nil && tt.publisher.calls != tt.wantPublished {
				t.Errorf("published %d, want %d", tt.publisher.calls, tt.wantPublished)
			}
		})
	}
}

func TestNotifierInvalidatesBeforePublishing(t *testing.T) {
	var order []string
	pub := publisherFunc(func(context.Context, string) error {
		order = append(order, "publish")
		return nil
	})
	n := NewNotifier(&fakeLocal{}, pub, nil, testLogger(), func(uid string) {
		order = append(order, "invalidate "+uid)
	})
	n.TransactionsChanged(context.Background(), "u1")

	if len(order) != 2 || order[0] != "invalidate u1" || order[1] != "publish" {
		t.Fatalf("order %v, want invalidate then publish", order)
	}
}

func TestBrokeredWriteRefreshesSummary(t *testing.T) {
	a, f, _ := newAnalytics(t)
	ctx := context.Background()
	pub := &fakePublisher{}
	txs := NewTransactionService(f.store, f.profiles, NewNotifier(&fakeLocal{}, pub, nil, testLogger(), a.Invalidate), nil, testLogger())

	if _, err := txs.Create(ctx, "u1", form("pay", "10", "income", "2024-01-05", "Salary")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s, _ := a.Summary(ctx, "u1", core.Last30Days, core.Daily); s.TotalIncome.Cents != 1000 {
		t.Fatalf("income %d, want 1000", s.TotalIncome.Cents)
	}
	if _, err := txs.Create(ctx, "u1", form("more", "5", "income", "2024-01-06", "Salary")); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The broker has not delivered anything back yet.
	s, _ := a.Summary(ctx, "u1", core.Last30Days, core.Daily)
	if s.TotalIncome.Cents != 1500 {
		t.Fatalf("stale summary after brokered write: income %d, want 1500", s.TotalIncome.Cents)
	}
	if pub.calls != 2 {
		t.Fatalf("published %d, want 2", pub.calls)
	}
}

type publisherFunc func(ctx context.Context, uid string) error

func (f publisherFunc) PublishTransactionsChanged(ctx context.Context, uid string) error {
	return f(ctx, uid)
}
