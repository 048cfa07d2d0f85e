package core

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1"
	cfg.Development.Enabled = false
	return cfg
}

func TestServer_HandleAndHealth(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	require.NoError(t, srv.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("storefront"))
	})))

	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "minimall-storefront", body["service"])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	assert.Equal(t, "storefront", rec.Body.String())
}

func TestServer_DuplicatePattern(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	require.NoError(t, srv.Handle("/cart", noop))
	err := srv.Handle("/cart", noop)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestServer_MiddlewareOrder(t *testing.T) {
	srv := NewServer(testConfig(), nil)

	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	srv.Use(mark("outer"), mark("inner"))
	require.NoError(t, srv.Handle("/", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})))

	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestServer_RecoversPanics(t *testing.T) {
	srv := NewServer(testConfig(), nil)
	require.NoError(t, srv.Handle("/boom", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("template exploded")
	})))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_ServeAndStop(t *testing.T) {
	srv := NewServer(testConfig(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	err = srv.Handle("/late", http.NotFoundHandler())
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	require.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, <-errCh)
}

func TestCORSMiddleware(t *testing.T) {
	cfg := &CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://*.minimall.ph", "http://localhost:*"},
		AllowedMethods: []string{"GET", "POST"},
		MaxAge:         600,
	}
	h := CORSMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"subdomain allowed", http.MethodGet, "https://shop.minimall.ph", "https://shop.minimall.ph", http.StatusTeapot},
		{"bare domain rejected", http.MethodGet, "https://minimall.ph", "", http.StatusTeapot},
		{"lookalike rejected", http.MethodGet, "https://evilminimall.ph", "", http.StatusTeapot},
		{"any localhost port", http.MethodGet, "http://localhost:5173", "http://localhost:5173", http.StatusTeapot},
		{"preflight", http.MethodOptions, "http://localhost:3000", "http://localhost:3000", http.StatusNoContent},
		{"same origin", http.MethodGet, "", "", http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

type recordingLogger struct {
	NoOpLogger
	levels []string
}

func (l *recordingLogger) InfoWithContext(ctx context.Context, msg string, f map[string]interface{}) {
	l.levels = append(l.levels, "info")
}
func (l *recordingLogger) WarnWithContext(ctx context.Context, msg string, f map[string]interface{}) {
	l.levels = append(l.levels, "warn")
}
func (l *recordingLogger) ErrorWithContext(ctx context.Context, msg string, f map[string]interface{}) {
	l.levels = append(l.levels, "error")
}

func TestLoggingMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name    string
		devMode bool
		status  int
		want    []string
	}{
		{"dev logs success", true, http.StatusOK, []string{"info"}},
		{"prod skips success", false, http.StatusOK, nil},
		{"prod skips redirect", false, http.StatusSeeOther, nil},
		{"client error", false, http.StatusNotFound, []string{"warn"}},
		{"server error", false, http.StatusBadGateway, []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &recordingLogger{}
			h := LoggingMiddleware(logger, tt.devMode)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cart", nil))
			assert.Equal(t, tt.want, logger.levels)
		})
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		https    bool
		wantHSTS bool
	}{
		{"plain http", false, false},
		{"behind https", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Session.SecureCookie = tt.https
			srv := NewServer(cfg, nil)
			require.NoError(t, srv.Handle("/embed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			})))

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/embed", nil))
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, tt.wantHSTS, rec.Header().Get("Strict-Transport-Security") != "")
		})
	}
}
