package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// CacheRecorder counts summary cache lookups.
type CacheRecorder interface {
	CacheHit()
	CacheMiss()
}

// Dashboard is the home screen: the summary plus the newest records.
type Dashboard struct {
	Summary core.Summary
	Recent  []core.Transaction
}

// AnalyticsService computes summaries and caches them per user, window,
// granularity, reference day and data version.
type AnalyticsService struct {
	store   storage.TransactionStore
	cache   cache.Cache[core.Summary]
	metrics CacheRecorder
	logger  *applog.Logger
	now     func() time.Time

	mu       sync.Mutex
	versions map[string]uint64
}

func NewAnalyticsService(store storage.TransactionStore, c cache.Cache[core.Summary], metrics CacheRecorder, logger *applog.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:    store,
		cache:    c,
		metrics:  metrics,
		logger:   logger.WithComponent(applog.ComponentAnalytics),
		now:      time.Now,
		versions: make(map[string]uint64),
	}
}

// Summary aggregates uid's records for the window ending today.
func (s *AnalyticsService) Summary(ctx context.Context, uid string, w core.Window, g core.Granularity) (core.Summary, error) {
	ref := s.now()
	key := s.cacheKey(uid, w, g, ref)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if s.metrics != nil {
				s.metrics.CacheHit()
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.CacheMiss()
		}
	}

	records, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return core.Summary{}, external(ServiceStore, "list transactions", err)
	}
	summary := core.Aggregate(records, core.Query{Window: w, Reference: ref, Granularity: g})

	if s.cache != nil {
		s.cache.Set(key, summary)
	}
	s.logger.DebugContext(ctx, "Summary computed",
		applog.FieldUserID, uid,
		applog.FieldWindow, w.String(),
		applog.FieldOperation, applog.OpAggregate,
		"records", len(records),
	)
	return summary, nil
}

// Dashboard returns the summary for w and the newest records.
func (s *AnalyticsService) Dashboard(ctx context.Context, uid string, w core.Window) (Dashboard, error) {
	summary, err := s.Summary(ctx, uid, w, core.Daily)
	if err != nil {
		return Dashboard{}, err
	}
	records, err := s.store.ListByUser(ctx, uid)
	if err != nil {
		return Dashboard{}, external(ServiceStore, "list transactions", err)
	}
	return Dashboard{Summary: summary, Recent: core.Recent(records, core.RecentLimit)}, nil
}

// Invalidate drops cached summaries of uid. It is registered as a change
// listener on the feed hub.
func (s *AnalyticsService) Invalidate(uid string) {
	s.mu.Lock()
	s.versions[uid]++
	s.mu.Unlock()
	if s.cache != nil {
		s.cache.DeletePrefix(uid + "|")
	}
}

func (s *AnalyticsService) cacheKey(uid string, w core.Window, g core.Granularity, ref time.Time) string {
	s.mu.Lock()
	version := s.versions[uid]
	s.mu.Unlock()
	return fmt.Sprintf("%s|%s|%s|%s|%d", uid, w, g, core.DateOf(ref), version)
}
