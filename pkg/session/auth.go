package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthGuard makes sure the reaction to a rejected token (clear credentials,
// send the visitor to sign-in) happens once per request, however many
// backend calls the page made.
type AuthGuard struct {
	once      sync.Once
	triggered atomic.Bool
}

// Trigger marks the request as unauthenticated. It returns true only for
// the first call.
func (g *AuthGuard) Trigger() bool {
	first := false
	g.once.Do(func() {
		g.triggered.Store(true)
		first = true
	})
	return first
}

// Triggered reports whether Trigger has been called.
func (g *AuthGuard) Triggered() bool {
	return g.triggered.Load()
}

// Get implements api.CredentialStore for the session attached to ctx.
// Without a session there are no credentials.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	s := FromContext(ctx)
	if s == nil {
		return "", nil
	}
	return s.Get(ctx, key)
}

// Clear implements api.CredentialStore.
func (m *Manager) Clear(ctx context.Context, keys ...string) error {
	s := FromContext(ctx)
	if s == nil {
		return nil
	}
	return s.Delete(ctx, keys...)
}

// Unauthenticated is the api client's 401 hook. It trips the request's
// guard; the web layer turns a tripped guard into one redirect.
func (m *Manager) Unauthenticated(ctx context.Context) {
	s := FromContext(ctx)
	if s == nil {
		return
	}
	if s.guard.Trigger() {
		m.logger.InfoWithContext(ctx, "Backend rejected session token", map[string]interface{}{
			"session": shortID(s.id),
		})
	}
}

// Token returns the stored bearer token, or "".
func (s *Session) Token(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyAuthToken)
}

// SignIn stores the token and the cached user profile.
func (s *Session) SignIn(ctx context.Context, token string, user interface{}) error {
	if err := s.Set(ctx, KeyAuthToken, token); err != nil {
		return err
	}
	if user == nil {
		return s.Delete(ctx, KeyUserData)
	}
	return s.SetJSON(ctx, KeyUserData, user)
}

// SignOut removes the token and every cached profile.
func (s *Session) SignOut(ctx context.Context) error {
	return s.Delete(ctx, KeyAuthToken, KeyUserData, KeySellerData, KeyPendingSignup)
}

// Authenticated reports whether a usable token is stored. A token whose JWT
// exp claim has passed is removed together with the cached profiles.
func (s *Session) Authenticated(ctx context.Context, now time.Time) (bool, error) {
	token, err := s.Token(ctx)
	if err != nil || token == "" {
		return false, err
	}
	if exp, ok := TokenExpiry(token); ok && !now.Before(exp) {
		s.m.logger.InfoWithContext(ctx, "Session token expired", map[string]interface{}{
			"session": shortID(s.id),
			"expired": exp.UTC().Format(time.RFC3339),
		})
		return false, s.SignOut(ctx)
	}
	return true, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature;
// verification is the backend's job. Opaque tokens and tokens without exp
// report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
