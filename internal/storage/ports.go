// Package storage defines the persistence ports of the application and
// their SQLite implementation. The in-memory implementation lives in
// storage/memory.
package storage

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type (
	// Credential is the password record of an account. It is kept apart
	// from the profile document, which may be missing.
	Credential struct {
		UserID       string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	// SessionRecord backs a signed token; deleting it revokes the token.
	SessionRecord struct {
		ID        string
		UserID    string
		ExpiresAt time.Time
		CreatedAt time.Time
	}
)

// Ports for outbound adapters.
type (
	TransactionStore interface {
		// Create assigns ID and CreatedAt and returns the stored record.
		Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		// ListByUser returns the user's records newest first.
		ListByUser(ctx context.Context, uid string) ([]core.Transaction, error)
		Get(ctx context.Context, uid, id string) (core.Transaction, error)
		// Update replaces every mutable field of the record (uid, tx.ID).
		Update(ctx context.Context, tx core.Transaction) error
		Delete(ctx context.Context, uid, id string) error
	}

	ProfileStore interface {
		CreateProfile(ctx context.Context, p core.UserProfile) error
		GetProfile(ctx context.Context, uid string) (core.UserProfile, error)
		UpdateName(ctx context.Context, uid, name string) error
		UpdatePhotoURL(ctx context.Context, uid, url string) error
		UpdateCustomCategories(ctx context.Context, uid string, t core.TransactionType, categories []string) error
	}

	CredentialStore interface {
		CreateCredential(ctx context.Context, c Credential) error
		GetCredentialByEmail(ctx context.Context, email string) (Credential, error)
		UpdatePasswordHash(ctx context.Context, uid, hash string) error
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s SessionRecord) error
		SessionExists(ctx context.Context, id string) (bool, error)
		DeleteSession(ctx context.Context, id string) error
		// DeleteExpiredSessions removes sessions that expired before now.
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionStore
		ProfileStore
		CredentialStore
		SessionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
