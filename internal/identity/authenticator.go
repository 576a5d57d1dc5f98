// Package identity signs users up and in with email and password and issues
// the bearer tokens the HTTP API accepts.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailInUse         = errors.New("this email address is already in use")
	ErrWeakPassword       = errors.New("the password is too weak, use at least 6 characters")
	ErrInvalidEmail       = errors.New("please enter a valid email address")
	ErrNotAuthenticated   = errors.New("not authenticated")
)

// Session is what a successful sign-up or sign-in hands back to the client.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"uid"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Authenticator is the identity provider boundary.
type Authenticator interface {
	// SignUp creates the account and its profile document.
	SignUp(ctx context.Context, name, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	// SignOut revokes the session behind token.
	SignOut(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, uid, newPassword string) error
	// Verify returns the claims of a live token or ErrNotAuthenticated.
	Verify(ctx context.Context, token string) (Claims, error)
}
