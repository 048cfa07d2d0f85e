package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server owns the storefront's HTTP listener: the route table, the
// middleware chain, the health endpoint and graceful shutdown.
type Server struct {
	Config *Config
	Logger Logger

	mu                 sync.Mutex
	mux                *http.ServeMux
	middleware         []Middleware
	registeredPatterns map[string]bool
	server             *http.Server
	serverStarted      bool
}

// NewServer creates a server for cfg. A nil logger disables logging.
func NewServer(cfg *Config, logger Logger) *Server {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Server{
		Config:             cfg,
		Logger:             logger,
		mux:                http.NewServeMux(),
		registeredPatterns: make(map[string]bool),
	}
}

// Handle registers handler for pattern.
// It fails if the pattern is taken or the server is already running.
func (s *Server) Handle(pattern string, handler http.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.serverStarted {
		return fmt.Errorf("cannot register handler for pattern %s: %w", pattern, ErrAlreadyStarted)
	}
	if s.registeredPatterns[pattern] {
		return fmt.Errorf("handler for pattern %s: %w", pattern, ErrAlreadyRegistered)
	}

	s.mux.Handle(pattern, handler)
	s.registeredPatterns[pattern] = true

	s.Logger.Debug("Registered handler", map[string]interface{}{
		"pattern": pattern,
	})
	return nil
}

// Use appends middleware. The first one added is the outermost.
func (s *Server) Use(mw ...Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middleware = append(s.middleware, mw...)
}

// Handler returns the fully wrapped handler. It also installs the health
// endpoint, so it is what both Start and tests serve.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Config.HTTP.EnableHealthCheck {
		path := s.Config.HTTP.HealthCheckPath
		if !s.registeredPatterns[path] {
			s.mux.HandleFunc(path, s.handleHealth)
			s.registeredPatterns[path] = true
		}
	}

	var handler http.Handler = s.mux
	if s.Config.HTTP.CORS.Enabled {
		handler = CORSMiddleware(&s.Config.HTTP.CORS)(handler)
	}
	handler = SecurityHeadersMiddleware(s.Config.Session.SecureCookie)(handler)
	handler = RecoveryMiddleware(s.Logger)(handler)
	handler = LoggingMiddleware(s.Logger, s.Config.Development.Enabled)(handler)
	for i := len(s.middleware) - 1; i >= 0; i-- {
		handler = s.middleware[i](handler)
	}
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": s.Config.Name,
	}); err != nil {
		s.Logger.Error("Failed to encode health response", map[string]interface{}{"error": err.Error()})
	}
}

// Start listens on the configured address and blocks until the server stops.
// It returns nil after a graceful Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Config.ListenAddr())
	if err != nil {
		return &FrameworkError{Op: "Server.Start", Kind: "server", ID: s.Config.ListenAddr(), Err: err}
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Server) Serve(ln net.Listener) error {
	handler := s.Handler()

	s.mu.Lock()
	if s.serverStarted {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrAlreadyStarted
	}
	s.server = &http.Server{
		Handler:        handler,
		ReadTimeout:    s.Config.HTTP.ReadTimeout,
		WriteTimeout:   s.Config.HTTP.WriteTimeout,
		IdleTimeout:    s.Config.HTTP.IdleTimeout,
		MaxHeaderBytes: s.Config.HTTP.MaxHeaderBytes,
	}
	s.serverStarted = true
	srv := s.server
	s.mu.Unlock()

	s.Logger.Info("Starting HTTP server", map[string]interface{}{
		"address": ln.Addr().String(),
		"backend": s.Config.Backend.BaseURL,
		"session": s.Config.Session.Provider,
	})

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down, bounded by the configured
// shutdown timeout.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	shutdownCtx := ctx
	if s.Config.HTTP.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.Config.HTTP.ShutdownTimeout)
		defer cancel()
	}

	s.serverStarted = false
	err := s.server.Shutdown(shutdownCtx)
	s.server = nil
	return err
}

// Run starts the server and stops it when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Logger.Info("Shutting down HTTP server", map[string]interface{}{
			"reason": ctx.Err().Error(),
		})
		if err := s.Stop(context.Background()); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}
