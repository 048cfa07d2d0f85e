// Package session keeps per-visitor state on the server: the backend token,
// the cached profile, the pending sign-up payload, one-shot flash messages
// and the last checkout result.
//
// The browser only holds an opaque cookie carrying a random session ID.
// Values live in a core.Store (memory or Redis) under "<id>:<key>" and expire
// after the configured TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/minimall/storefront/core"
)

// Session keys.
const (
	KeyAuthToken     = "authToken"
	KeyUserData      = "userData"
	KeyPendingSignup = "pendingSignup"
	KeyFlash         = "flash"
	KeyLastOrder     = "lastOrder"
	KeySellerData    = "sellerData"
)

// allKeys are moved on Renew and dropped on Destroy.
var allKeys = []string{KeyAuthToken, KeyUserData, KeyPendingSignup, KeyFlash, KeyLastOrder, KeySellerData}

// Defaults.
const (
	DefaultCookieName = "minimall_session"
	DefaultTTL        = 24 * time.Hour
)

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Logger     core.Logger
}

// Manager issues session cookies and scopes store access to the current
// visitor.
type Manager struct {
	store      core.Store
	cookieName string
	ttl        time.Duration
	secure     bool
	logger     core.Logger
}

// NewManager creates a Manager over store.
func NewManager(store core.Store, opts Options) *Manager {
	m := &Manager{
		store:      store,
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
		logger:     opts.Logger,
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.logger == nil {
		m.logger = &core.NoOpLogger{}
	}
	return m
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string { return m.cookieName }

// Session is the state of one visitor, bound to one request.
type Session struct {
	id    string
	isNew bool
	m     *Manager
	guard *AuthGuard
}

type contextKey struct{}

// FromContext returns the session attached by Middleware, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// Middleware loads the visitor's session from the cookie, or starts a new
// one, and makes it available through FromContext. Each request also gets a
// fresh AuthGuard.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		if s.isNew {
			m.writeCookie(w, s.id)
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func (m *Manager) load(r *http.Request) *Session {
	s := &Session{m: m, guard: &AuthGuard{}}
	if c, err := r.Cookie(m.cookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			s.id = id.String()
			return s
		}
	}
	s.id = uuid.NewString()
	s.isNew = true
	return s
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// New starts a session outside of HTTP handling; tests and the CLI use it.
func (m *Manager) New() *Session {
	return &Session{id: uuid.NewString(), isNew: true, m: m, guard: &AuthGuard{}}
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// IsNew reports whether the session was created by this request.
func (s *Session) IsNew() bool { return s.isNew }

// Guard returns the request's 401 guard.
func (s *Session) Guard() *AuthGuard { return s.guard }

func (s *Session) key(k string) string { return s.id + ":" + k }

// Get returns the value stored under key, or "".
func (s *Session) Get(ctx context.Context, key string) (string, error) {
	v, err := s.m.store.Get(ctx, s.key(key))
	if err != nil {
		return "", fmt.Errorf("session get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key for the session TTL.
func (s *Session) Set(ctx context.Context, key, value string) error {
	if err := s.m.store.Set(ctx, s.key(key), value, s.m.ttl); err != nil {
		return fmt.Errorf("session set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys.
func (s *Session) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = s.key(k)
	}
	if err := s.m.store.Delete(ctx, scoped...); err != nil {
		return fmt.Errorf("session delete: %w", err)
	}
	return nil
}

// SetJSON stores v encoded as JSON.
func (s *Session) SetJSON(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// GetJSON decodes the value under key into v. It reports false when the key
// is absent. A value that no longer decodes is dropped and reported absent.
func (s *Session) GetJSON(ctx context.Context, key string, v interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if err != nil || raw == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.m.logger.WarnWithContext(ctx, "Dropping undecodable session value", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		_ = s.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// Take is GetJSON followed by Delete: the value is read at most once.
func (s *Session) Take(ctx context.Context, key string, v interface{}) (bool, error) {
	ok, err := s.GetJSON(ctx, key, v)
	if err != nil || !ok {
		return ok, err
	}
	return true, s.Delete(ctx, key)
}

// Renew moves the session's state to a new ID and reissues the cookie.
// Sign-in calls it so a session ID seen before authentication is never
// reused after it. A pending sign-up is not carried over: it holds a
// password and only lives between sending and verifying the code.
func (s *Session) Renew(ctx context.Context, w http.ResponseWriter) error {
	oldID := s.id
	newID := uuid.NewString()

	var errs []error
	for _, k := range allKeys {
		if k == KeyPendingSignup {
			continue
		}
		v, err := s.m.store.Get(ctx, oldID+":"+k)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if v == "" {
			continue
		}
		if err := s.m.store.Set(ctx, newID+":"+k, v, s.m.ttl); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session renew: %w", err)
	}

	s.id = newID
	s.m.writeCookie(w, newID)
	return s.m.store.Delete(ctx, prefixed(oldID, allKeys)...)
}

// Destroy drops every key of the session.
func (s *Session) Destroy(ctx context.Context) error {
	return s.Delete(ctx, allKeys...)
}

func prefixed(id string, keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = id + ":" + k
	}
	return out
}
