// Package feed delivers live snapshots of a user's transaction list.
//
// A subscriber receives the current list as soon as it subscribes and a
// fresh list after every change notification. Each subscriber channel holds
// at most one snapshot; when a reader falls behind, the pending snapshot is
// replaced by the newer one, so readers always converge on the latest state.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

var ErrClosed = errors.New("feed closed")

// Snapshot is the full ordered list of a user's records at one point in time.
type Snapshot struct {
	UserID       string
	Version      uint64
	Transactions []core.Transaction
	TakenAt      time.Time
}

// Loader reads the current list for a user, newest first.
type Loader interface {
	ListByUser(ctx context.Context, uid string) ([]core.Transaction, error)
}

// Gauge tracks open subscriptions.
type Gauge interface {
	SubscriberAdded()
	SubscriberRemoved()
}

type subscriber struct {
	ch   chan Snapshot
	once sync.Once
}

// push replaces any undelivered snapshot with s. Callers hold the hub lock.
func (s *subscriber) push(snap Snapshot) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}

type Hub struct {
	mu        sync.Mutex
	notifyMu  sync.Mutex // serializes reloads so snapshots go out in order
	loader    Loader
	gauge     Gauge
	logger    *applog.Logger
	subs      map[string]map[*subscriber]struct{}
	versions  map[string]uint64
	listeners []func(uid string)
	closed    bool
	now       func() time.Time
}

func NewHub(loader Loader, gauge Gauge, logger *applog.Logger) *Hub {
	return &Hub{
		loader:   loader,
		gauge:    gauge,
		logger:   logger.WithComponent(applog.ComponentFeed),
		subs:     make(map[string]map[*subscriber]struct{}),
		versions: make(map[string]uint64),
		now:      time.Now,
	}
}

// OnChange registers fn to run on every Notify, before snapshots go out.
func (h *Hub) OnChange(fn func(uid string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Subscribe returns a channel primed with the current snapshot and a cancel
// function. Cancelling ctx has the same effect as calling cancel. The
// channel is closed once the subscription ends.
func (h *Hub) Subscribe(ctx context.Context, uid string) (<-chan Snapshot, func(), error) {
	// Held across load and registration: a Notify either finishes before the
	// load or sees this subscriber and reloads for it.
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	list, err := h.loader.ListByUser(ctx, uid)
	if err != nil {
		return nil, nil, fmt.Errorf("load snapshot: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, nil, ErrClosed
	}
	sub := &subscriber{ch: make(chan Snapshot, 1)}
	if h.subs[uid] == nil {
		h.subs[uid] = make(map[*subscriber]struct{})
	}
	h.subs[uid][sub] = struct{}{}
	sub.push(h.snapshot(uid, list))
	h.mu.Unlock()

	if h.gauge != nil {
		h.gauge.SubscriberAdded()
	}
	h.logger.DebugContext(ctx, "Subscriber added", applog.FieldUserID, uid)

	cancel := func() { h.remove(uid, sub) }
	stop := context.AfterFunc(ctx, cancel)
	return sub.ch, func() {
		stop()
		cancel()
	}, nil
}

func (h *Hub) remove(uid string, sub *subscriber) {
	sub.once.Do(func() {
		h.mu.Lock()
		if set, ok := h.subs[uid]; ok {
			if _, ok := set[sub]; ok {
				delete(set, sub)
				close(sub.ch)
			}
			if len(set) == 0 {
				delete(h.subs, uid)
			}
		}
		h.mu.Unlock()
		if h.gauge != nil {
			h.gauge.SubscriberRemoved()
		}
	})
}

// Notify records a change to uid's list and broadcasts the reloaded list.
// Listeners run even when nobody is subscribed.
func (h *Hub) Notify(ctx context.Context, uid string) error {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	h.versions[uid]++
	listeners := append([]func(string){}, h.listeners...)
	watched := len(h.subs[uid]) > 0
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(uid)
	}
	if !watched {
		return nil
	}

	list, err := h.loader.ListByUser(ctx, uid)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to reload snapshot",
			applog.FieldUserID, uid,
			applog.FieldError, err.Error(),
		)
		return fmt.Errorf("reload snapshot: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	snap := h.snapshot(uid, list)
	for sub := range h.subs[uid] {
		sub.push(snap)
	}
	return nil
}

// Version is the number of changes seen for uid since start.
func (h *Hub) Version(uid string) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.versions[uid]
}

// Subscribers counts open subscriptions for uid.
func (h *Hub) Subscribers(uid string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[uid])
}

// Close ends every subscription; later Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []struct {
		uid string
		sub *subscriber
	}
	for uid, set := range h.subs {
		for sub := range set {
			all = append(all, struct {
				uid string
				sub *subscriber
			}{uid, sub})
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		h.remove(s.uid, s.sub)
	}
}

func (h *Hub) snapshot(uid string, list []core.Transaction) Snapshot {
	return Snapshot{
		UserID:       uid,
		Version:      h.versions[uid],
		Transactions: append([]core.Transaction(nil), list...),
		TakenAt:      h.now().UTC(),
	}
}
