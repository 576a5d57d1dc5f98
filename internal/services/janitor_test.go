package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestSessionJanitorLifecycle(t *testing.T) {
	purger := &countingPurger{}
	j := NewSessionJanitor(purger, 10*time.Millisecond, testLogger())
	ctx := context.Background()

	if err := j.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.Start(ctx); err == nil {
		t.Fatal("second start should fail")
	}
	if !j.IsRunning() {
		t.Fatal("janitor not running")
	}

	deadline := time.Now().Add(time.Second)
	for purger.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if purger.calls.Load() < 2 {
		t.Fatalf("purge ran %d times", purger.calls.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := j.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if j.IsRunning() {
		t.Fatal("janitor still running")
	}
	if err := j.Stop(stopCtx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
