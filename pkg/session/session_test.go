package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minimall/storefront/core"
)

// backends returns every Store implementation the session layer runs on.
func backends(t *testing.T) map[string]core.Store {
	t.Helper()

	mem := core.NewMemoryStore(0)
	t.Cleanup(func() { _ = mem.Close() })

	mr := miniredis.RunT(t)
	rs, err := core.NewRedisStore(context.Background(), core.RedisStoreOptions{
		RedisURL:  "redis://" + mr.Addr(),
		Namespace: "minimall:session",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	return map[string]core.Store{"memory": mem, "redis": rs}
}

// serve runs one request through the middleware and returns the session the
// handler saw.
func serve(m *Manager, cookie *http.Cookie) (*Session, *httptest.ResponseRecorder) {
	var got *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return got, rec
}

func TestMiddleware_Cookie(t *testing.T) {
	m := NewManager(core.NewMemoryStore(0), Options{TTL: time.Hour, Secure: true})

	t.Run("new visitor gets a cookie", func(t *testing.T) {
		s, rec := serve(m, nil)
		require.NotNil(t, s)
		assert.True(t, s.IsNew())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		c := cookies[0]
		assert.Equal(t, DefaultCookieName, c.Name)
		assert.Equal(t, s.ID(), c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("returning visitor keeps the id", func(t *testing.T) {
		first, _ := serve(m, nil)
		again, rec := serve(m, &http.Cookie{Name: DefaultCookieName, Value: first.ID()})
		assert.Equal(t, first.ID(), again.ID())
		assert.False(t, again.IsNew())
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("forged cookie is replaced", func(t *testing.T) {
		s, _ := serve(m, &http.Cookie{Name: DefaultCookieName, Value: "../../admin"})
		assert.True(t, s.IsNew())
		assert.NotEqual(t, "../../admin", s.ID())
	})

	t.Run("each request gets its own guard", func(t *testing.T) {
		a, _ := serve(m, nil)
		b, _ := serve(m, &http.Cookie{Name: DefaultCookieName, Value: a.ID()})
		a.Guard().Trigger()
		assert.False(t, b.Guard().Triggered())
	})
}

func TestSession_ScopedValues(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			m := NewManager(store, Options{})
			a, b := m.New(), m.New()

			require.NoError(t, a.Set(ctx, KeyAuthToken, "tok-a"))
			require.NoError(t, b.Set(ctx, KeyAuthToken, "tok-b"))

			tok, err := a.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-a", tok)

			require.NoError(t, a.SignOut(ctx))
			tok, err = a.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)

			tok, err = b.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-b", tok)
		})
	}
}

func TestSession_Flashes(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewManager(store, Options{}).New()

			require.NoError(t, s.AddFlash(ctx, FlashSuccess, "Added to cart"))
			require.NoError(t, s.AddFlash(ctx, FlashError, "Out of stock"))

			got, err := s.Flashes(ctx)
			require.NoError(t, err)
			assert.Equal(t, []Flash{
				{Kind: FlashSuccess, Message: "Added to cart"},
				{Kind: FlashError, Message: "Out of stock"},
			}, got)

			got, err = s.Flashes(ctx)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSession_LastOrderReadOnce(t *testing.T) {
	ctx := context.Background()
	s := NewManager(core.NewMemoryStore(0), Options{}).New()

	none, err := s.TakeLastOrder(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, s.SetLastOrder(ctx, LastOrder{OrderID: "5", OrderNumber: "ORD-5", Total: 1200}))

	got, err := s.TakeLastOrder(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ORD-5", got.OrderNumber)

	again, err := s.TakeLastOrder(ctx)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSession_PendingSignup(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := core.NewRedisStore(context.Background(), core.RedisStoreOptions{RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s := NewManager(store, Options{}).New()

	p, err := s.PendingSignup(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, s.SetPendingSignup(ctx, PendingSignup{FullName: "Ana Reyes", Email: "ana@x.com", Password: "secret123"}))
	p, err = s.PendingSignup(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "ana@x.com", p.Email)

	mr.FastForward(PendingSignupTTL + time.Second)
	p, err = s.PendingSignup(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "pending sign-up expires on its own")
}

func TestSession_GetJSONDropsGarbage(t *testing.T) {
	ctx := context.Background()
	s := NewManager(core.NewMemoryStore(0), Options{}).New()
	require.NoError(t, s.Set(ctx, KeyUserData, "{not json"))

	var v map[string]interface{}
	ok, err := s.GetJSON(ctx, KeyUserData, &v)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, err := s.Get(ctx, KeyUserData)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestSession_Renew(t *testing.T) {
	ctx := context.Background()
	store := core.NewMemoryStore(0)
	m := NewManager(store, Options{})
	s := m.New()
	oldID := s.ID()

	require.NoError(t, s.Set(ctx, KeyFlash, `[{"kind":"info","message":"hi"}]`))
	require.NoError(t, s.SignIn(ctx, "tok", map[string]string{"full_name": "Ana"}))

	rec := httptest.NewRecorder()
	require.NoError(t, s.Renew(ctx, rec))

	assert.NotEqual(t, oldID, s.ID())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, s.ID(), cookies[0].Value)

	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	stale, err := store.Get(ctx, oldID+":"+KeyAuthToken)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestSession_RenewDropsPendingSignup(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewManager(store, Options{TTL: 24 * time.Hour}).New()
			oldID := s.ID()

			require.NoError(t, s.SetPendingSignup(ctx, PendingSignup{FullName: "Ana Reyes", Email: "ana@x.com", Password: "secret123"}))
			require.NoError(t, s.SignIn(ctx, "tok", map[string]string{"full_name": "Ana"}))
			require.NoError(t, s.Renew(ctx, httptest.NewRecorder()))

			p, err := s.PendingSignup(ctx)
			require.NoError(t, err)
			assert.Nil(t, p, "password-bearing payload is not carried to the new id")

			stale, err := store.Get(ctx, oldID+":"+KeyPendingSignup)
			require.NoError(t, err)
			assert.Empty(t, stale)

			tok, err := s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok", tok)
		})
	}
}

func TestAuthGuard_Once(t *testing.T) {
	var g AuthGuard
	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Trigger() {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts)
	assert.True(t, g.Triggered())
}

func TestManager_CredentialStore(t *testing.T) {
	ctx := context.Background()
	m := NewManager(core.NewMemoryStore(0), Options{})

	tok, err := m.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.Empty(t, tok, "no session in context")
	assert.NoError(t, m.Clear(ctx, KeyAuthToken))
	m.Unauthenticated(ctx)

	s := m.New()
	ctx = WithSession(ctx, s)
	require.NoError(t, s.SignIn(ctx, "tok", map[string]string{"full_name": "Ana"}))

	tok, err = m.Get(ctx, KeyAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, m.Clear(ctx, KeyAuthToken, KeyUserData))
	m.Unauthenticated(ctx)
	m.Unauthenticated(ctx)

	tok, _ = s.Token(ctx)
	assert.Empty(t, tok)
	assert.True(t, s.Guard().Triggered())
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := TokenExpiry(signed(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestSession_Authenticated(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(core.NewMemoryStore(0), Options{})

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"no token", "", false},
		{"opaque token", "opaque", true},
		{"valid jwt", signed(t, now.Add(time.Hour)), true},
		{"expired jwt", signed(t, now.Add(-time.Minute)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := m.New()
			if tt.token != "" {
				require.NoError(t, s.SignIn(ctx, tt.token, map[string]string{"full_name": "Ana"}))
			}

			ok, err := s.Authenticated(ctx, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)

			if tt.token != "" && !tt.want {
				user, _ := s.Get(ctx, KeyUserData)
				assert.Empty(t, user, "expired token clears cached profile")
			}
		})
	}
}
