// Package memory is a process-local implementation of storage.Store used by
// DATA_BACKEND=memory and by tests. Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	now          func() time.Time
	transactions map[string]core.Transaction // by id
	profiles     map[string]core.UserProfile // by uid
	credentials  map[string]storage.Credential // by email
	sessions     map[string]storage.SessionRecord
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:          time.Now,
		transactions: make(map[string]core.Transaction),
		profiles:     make(map[string]core.UserProfile),
		credentials:  make(map[string]storage.Credential),
		sessions:     make(map[string]storage.SessionRecord),
	}
}

// WithClock replaces the time source; used by tests that need ordered
// creation times.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Create(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = uuid.New().String()
	tx.CreatedAt = s.now().UTC()
	s.transactions[tx.ID] = tx
	return tx, nil
}

func (s *Store) ListByUser(_ context.Context, uid string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.UserID == uid {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, uid, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != uid {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) Update(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrNotFound)
	}
	tx.CreatedAt = existing.CreatedAt
	s.transactions[tx.ID] = tx
	return nil
}

func (s *Store) Delete(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok || tx.UserID != uid {
		return fmt.Errorf("transaction %s: %w", id, storage.ErrNotFound)
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) CreateProfile(_ context.Context, p core.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.UID]; ok {
		return fmt.Errorf("profile %s: %w", p.UID, storage.ErrConflict)
	}
	p.CustomCategories = p.CustomCategories.Clone()
	s.profiles[p.UID] = p
	return nil
}

func (s *Store) GetProfile(_ context.Context, uid string) (core.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[uid]
	if !ok {
		return core.UserProfile{}, fmt.Errorf("profile %s: %w", uid, storage.ErrNotFound)
	}
	p.CustomCategories = p.CustomCategories.Clone()
	return p, nil
}

func (s *Store) UpdateName(_ context.Context, uid, name string) error {
	return s.updateProfile(uid, func(p *core.UserProfile) { p.Name = name })
}

func (s *Store) UpdatePhotoURL(_ context.Context, uid, url string) error {
	return s.updateProfile(uid, func(p *core.UserProfile) { p.PhotoURL = url })
}

func (s *Store) UpdateCustomCategories(_ context.Context, uid string, t core.TransactionType, categories []string) error {
	if !t.IsValid() {
		return core.ErrInvalidType
	}
	return s.updateProfile(uid, func(p *core.UserProfile) {
		p.CustomCategories = p.CustomCategories.Clone()
		p.CustomCategories[t] = append([]string{}, categories...)
	})
}

func (s *Store) updateProfile(uid string, mutate func(*core.UserProfile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[uid]
	if !ok {
		return fmt.Errorf("profile %s: %w", uid, storage.ErrNotFound)
	}
	mutate(&p)
	s.profiles[uid] = p
	return nil
}

func (s *Store) CreateCredential(_ context.Context, c storage.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.credentials[c.Email]; ok {
		return fmt.Errorf("credential %s: %w", c.Email, storage.ErrConflict)
	}
	for _, existing := range s.credentials {
		if existing.UserID == c.UserID {
			return fmt.Errorf("credential for %s: %w", c.UserID, storage.ErrConflict)
		}
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	s.credentials[c.Email] = c
	return nil
}

func (s *Store) GetCredentialByEmail(_ context.Context, email string) (storage.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[email]
	if !ok {
		return storage.Credential{}, fmt.Errorf("credential %s: %w", email, storage.ErrNotFound)
	}
	return c, nil
}

func (s *Store) UpdatePasswordHash(_ context.Context, uid, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, c := range s.credentials {
		if c.UserID == uid {
			c.PasswordHash = hash
			s.credentials[email] = c
			return nil
		}
	}
	return fmt.Errorf("credential %s: %w", uid, storage.ErrNotFound)
}

func (s *Store) CreateSession(_ context.Context, rec storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[rec.ID]; ok {
		return fmt.Errorf("session %s: %w", rec.ID, storage.ErrConflict)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	s.sessions[rec.ID] = rec
	return nil
}

func (s *Store) SessionExists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok, nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.sessions {
		if rec.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
