package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/feed"
)

// Subscriber opens live snapshot feeds.
type Subscriber interface {
	Subscribe(ctx context.Context, uid string) (<-chan feed.Snapshot, func(), error)
}

// Session is the state of one signed-in client: its profile and the latest
// snapshot of its records. Summaries are recomputed from that snapshot.
type Session struct {
	profile  core.UserProfile
	builtins core.Builtins
	updates  <-chan feed.Snapshot
	cancel   func()
	now      func() time.Time

	mu     sync.Mutex
	latest feed.Snapshot
}

// OpenSession loads the profile and subscribes to the user's records. The
// first snapshot is available as soon as it returns.
func OpenSession(ctx context.Context, uid string, profiles *ProfileService, sub Subscriber) (*Session, error) {
	profile, err := profiles.Profile(ctx, uid)
	if err != nil {
		return nil, err
	}
	updates, cancel, err := sub.Subscribe(ctx, uid)
	if err != nil {
		return nil, external(ServiceStore, "subscribe", err)
	}

	s := &Session{
		profile:  profile,
		builtins: profiles.Builtins(),
		updates:  updates,
		cancel:   cancel,
		now:      time.Now,
	}
	select {
	case snap, ok := <-updates:
		if !ok {
			cancel()
			return nil, fmt.Errorf("subscription closed before first snapshot")
		}
		s.latest = snap
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
	return s, nil
}

func (s *Session) Profile() core.UserProfile {
	p := s.profile
	p.CustomCategories = p.CustomCategories.Clone()
	return p
}

// Categories returns the candidates for t as of session start.
func (s *Session) Categories(t core.TransactionType) []string {
	return core.Candidates(t, s.builtins, s.profile.CustomCategories)
}

// Snapshot returns the latest snapshot received.
func (s *Session) Snapshot() feed.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Next blocks until a newer snapshot arrives. It returns false when the
// subscription ended or ctx was cancelled.
func (s *Session) Next(ctx context.Context) (feed.Snapshot, bool) {
	select {
	case snap, ok := <-s.updates:
		if !ok {
			return feed.Snapshot{}, false
		}
		s.mu.Lock()
		s.latest = snap
		s.mu.Unlock()
		return snap, true
	case <-ctx.Done():
		return feed.Snapshot{}, false
	}
}

// Summary aggregates the latest snapshot. It does no I/O.
func (s *Session) Summary(w core.Window, g core.Granularity) core.Summary {
	snap := s.Snapshot()
	return core.Aggregate(snap.Transactions, core.Query{Window: w, Reference: s.now(), Granularity: g})
}

// Recent returns the newest records of the latest snapshot.
func (s *Session) Recent() []core.Transaction {
	return core.Recent(s.Snapshot().Transactions, core.RecentLimit)
}

// Close ends the subscription.
func (s *Session) Close() {
	s.cancel()
}
