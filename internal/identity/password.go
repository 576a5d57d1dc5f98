package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

const minPasswordLength = 6

// AccountStore is the subset of storage the authenticator needs.
type AccountStore interface {
	storage.CredentialStore
	storage.SessionStore
	CreateProfile(ctx context.Context, p core.UserProfile) error
	GetProfile(ctx context.Context, uid string) (core.UserProfile, error)
}

// PasswordAuthenticator implements Authenticator with bcrypt hashes and
// server-side sessions referenced by the token's jti.
type PasswordAuthenticator struct {
	store  AccountStore
	tokens *JWTManager
	logger *applog.Logger
	cost   int
}

var _ Authenticator = (*PasswordAuthenticator)(nil)

func NewPasswordAuthenticator(store AccountStore, tokens *JWTManager, logger *applog.Logger) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		store:  store,
		tokens: tokens,
		logger: logger.WithComponent(applog.ComponentIdentity),
		cost:   bcrypt.DefaultCost,
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (a *PasswordAuthenticator) WithCost(cost int) *PasswordAuthenticator {
	a.cost = cost
	return a
}

// ValidatePassword checks the minimum length.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeEmail trims and lowercases an address after checking its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (a *PasswordAuthenticator) SignUp(ctx context.Context, name, email, password string) (Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	uid := uuid.New().String()
	err = a.store.CreateCredential(ctx, storage.Credential{UserID: uid, Email: email, PasswordHash: string(hash)})
	if errors.Is(err, storage.ErrConflict) {
		return Session{}, ErrEmailInUse
	}
	if err != nil {
		return Session{}, fmt.Errorf("create credential: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fallbackName(email)
	}
	if err := a.store.CreateProfile(ctx, core.NewUserProfile(uid, email, name)); err != nil {
		return Session{}, fmt.Errorf("create profile: %w", err)
	}

	a.logger.InfoContext(ctx, "Account created",
		applog.FieldUserID, uid,
		applog.FieldOperation, applog.OpSignUp,
	)
	return a.startSession(ctx, uid, email)
}

func (a *PasswordAuthenticator) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	cred, err := a.store.GetCredentialByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup credential: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		a.logger.WarnContext(ctx, "Sign-in rejected",
			applog.FieldUserID, cred.UserID,
			applog.FieldErrorType, applog.ErrorTypeAuth,
		)
		return Session{}, ErrInvalidCredentials
	}

	if err := a.ensureProfile(ctx, cred); err != nil {
		return Session{}, err
	}
	return a.startSession(ctx, cred.UserID, cred.Email)
}

// ensureProfile recreates a missing profile document with the email's local
// part as display name.
func (a *PasswordAuthenticator) ensureProfile(ctx context.Context, cred storage.Credential) error {
	_, err := a.store.GetProfile(ctx, cred.UserID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load profile: %w", err)
	}

	a.logger.WarnContext(ctx, "Profile missing, recreating",
		applog.FieldUserID, cred.UserID,
		applog.FieldOperation, applog.OpSignIn,
	)
	p := core.NewUserProfile(cred.UserID, cred.Email, fallbackName(cred.Email))
	if err := a.store.CreateProfile(ctx, p); err != nil && !errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("recreate profile: %w", err)
	}
	return nil
}

func (a *PasswordAuthenticator) SignOut(ctx context.Context, token string) error {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return err
	}
	if err := a.store.DeleteSession(ctx, claims.SessionID()); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	a.logger.InfoContext(ctx, "Signed out",
		applog.FieldUserID, claims.UserID,
		applog.FieldOperation, applog.OpSignOut,
	)
	return nil
}

func (a *PasswordAuthenticator) ChangePassword(ctx context.Context, uid, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), a.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = a.store.UpdatePasswordHash(ctx, uid, string(hash))
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotAuthenticated
	}
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (a *PasswordAuthenticator) Verify(ctx context.Context, token string) (Claims, error) {
	claims, err := a.tokens.Validate(token)
	if err != nil {
		return Claims{}, err
	}
	ok, err := a.store.SessionExists(ctx, claims.SessionID())
	if err != nil {
		return Claims{}, fmt.Errorf("lookup session: %w", err)
	}
	if !ok {
		return Claims{}, ErrNotAuthenticated
	}
	return *claims, nil
}

// PurgeExpired drops sessions whose tokens can no longer validate.
func (a *PasswordAuthenticator) PurgeExpired(ctx context.Context) (int, error) {
	return a.store.DeleteExpiredSessions(ctx, a.tokens.now())
}

func (a *PasswordAuthenticator) startSession(ctx context.Context, uid, email string) (Session, error) {
	sessionID := uuid.New().String()
	token, expiresAt, err := a.tokens.Generate(sessionID, uid, email)
	if err != nil {
		return Session{}, err
	}
	rec := storage.SessionRecord{ID: sessionID, UserID: uid, ExpiresAt: expiresAt}
	if err := a.store.CreateSession(ctx, rec); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	a.logger.InfoContext(ctx, "Session started",
		applog.FieldUserID, uid,
		applog.FieldOperation, applog.OpSignIn,
	)
	return Session{Token: token, UserID: uid, Email: email, ExpiresAt: expiresAt.UTC()}, nil
}

func fallbackName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "User"
	}
	return local
}
