package services

import (
	"context"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/feed"
)

func TestSessionFollowsSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hub := feed.NewHub(f.store, nil, testLogger())
	txs := NewTransactionService(f.store, f.profiles, NewNotifier(hub, nil, nil, testLogger()), nil, testLogger())

	if _, err := txs.Create(ctx, "u1", form("pay", "100", "income", "2024-01-01", "Salary")); err != nil {
		t.Fatalf("create: %v", err)
	}

	sess, err := OpenSession(ctx, "u1", f.profiles, hub)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer sess.Close()

	if sess.Profile().Name != "Ada" {
		t.Fatalf("profile %+v", sess.Profile())
	}
	if n := len(sess.Snapshot().Transactions); n != 1 {
		t.Fatalf("initial snapshot has %d records", n)
	}

	if _, err := txs.Create(ctx, "u1", form("rent", "40", "expense", "2024-01-02", "Bills")); err != nil {
		t.Fatalf("create: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	snap, ok := sess.Next(waitCtx)
	if !ok {
		t.Fatal("no snapshot after write")
	}
	if len(snap.Transactions) != 2 {
		t.Fatalf("snapshot has %d records", len(snap.Transactions))
	}

	s := sess.Summary(core.AllTime, core.Monthly)
	if s.Balance.Cents != 6000 {
		t.Fatalf("balance %d, want 6000", s.Balance.Cents)
	}
	if got := sess.Recent(); len(got) != 2 || got[0].Description != "rent" {
		t.Fatalf("recent %+v", got)
	}
	cats := sess.Categories(core.Income)
	if cats[len(cats)-1] != core.CustomSentinel {
		t.Fatalf("categories %v", cats)
	}
}

func TestSessionNextEndsOnClose(t *testing.T) {
	f := newFixture(t)
	hub := feed.NewHub(f.store, nil, testLogger())
	sess, err := OpenSession(context.Background(), "u1", f.profiles, hub)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	sess.Close()
	if _, ok := sess.Next(context.Background()); ok {
		t.Fatal("Next returned a snapshot after Close")
	}
}
