package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "fintrack/internal/log"
)

// Purger removes expired sessions.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// SessionJanitor periodically deletes expired sessions.
type SessionJanitor struct {
	purger   Purger
	interval time.Duration
	logger   *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSessionJanitor(purger Purger, interval time.Duration, logger *applog.Logger) *SessionJanitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionJanitor{
		purger:   purger,
		interval: interval,
		logger:   logger.WithComponent(applog.ComponentIdentity),
	}
}

// Start begins the purge loop. Returns an error if already running.
func (j *SessionJanitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return fmt.Errorf("session janitor is already running")
	}
	j.running = true
	j.stopCh = make(chan struct{})
	j.doneCh = make(chan struct{})

	go j.runLoop(ctx, j.stopCh, j.doneCh)

	j.logger.InfoContext(ctx, "Session janitor started", "interval", j.interval.String())
	return nil
}

// Stop signals the loop and waits for it to finish.
func (j *SessionJanitor) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	stopCh, doneCh := j.stopCh, j.doneCh
	j.running = false
	j.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		j.logger.WarnContext(ctx, "Session janitor stop timed out")
		return ctx.Err()
	}
}

func (j *SessionJanitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

func (j *SessionJanitor) runLoop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.purge(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.purge(ctx)
		}
	}
}

func (j *SessionJanitor) purge(ctx context.Context) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to purge expired sessions", applog.FieldError, err.Error())
		return
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "Purged expired sessions", "count", n)
	}
}
