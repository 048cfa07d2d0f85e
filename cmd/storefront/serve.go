package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	storefront "github.com/minimall/storefront"
	"github.com/minimall/storefront/core"
	"github.com/minimall/storefront/internal/web"
	"github.com/minimall/storefront/pkg/api"
	"github.com/minimall/storefront/pkg/session"
	"github.com/minimall/storefront/pkg/telemetry"
)

var serveFlags struct {
	port            int
	backendURL      string
	sessionProvider string
	redisURL        string
	dev             bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront over HTTP",
	Long: `Starts the HTTP server. It stops gracefully on SIGINT or SIGTERM,
finishing in-flight requests within the configured shutdown timeout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.IntVar(&serveFlags.port, "port", 0, "listen port")
	f.StringVar(&serveFlags.backendURL, "backend-url", "", "base URL of the MiniMall API")
	f.StringVar(&serveFlags.sessionProvider, "session-provider", "", "session store: memory or redis")
	f.StringVar(&serveFlags.redisURL, "redis-url", "", "Redis URL for the redis session store")
	f.BoolVar(&serveFlags.dev, "dev", false, "development mode (text logs, stdout spans)")
}

// configOptions turns the flags that were set into config options. Flags
// left alone keep the environment and file values.
func configOptions(cmd *cobra.Command) []core.Option {
	var opts []core.Option
	if configFile != "" {
		opts = append(opts, core.WithConfigFile(configFile))
	}
	if logLevel != "" {
		opts = append(opts, core.WithLogLevel(logLevel))
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		opts = append(opts, core.WithPort(serveFlags.port))
	}
	if flags.Changed("backend-url") {
		opts = append(opts, core.WithBackendURL(serveFlags.backendURL))
	}
	if flags.Changed("session-provider") {
		opts = append(opts, core.WithSessionProvider(serveFlags.sessionProvider))
	}
	if flags.Changed("redis-url") {
		opts = append(opts, core.WithRedisURL(serveFlags.redisURL))
	}
	if flags.Changed("dev") {
		opts = append(opts, core.WithDevelopmentMode(serveFlags.dev))
	}
	return opts
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := core.NewConfig(configOptions(cmd)...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := telemetry.NewLogger(cfg.Logging, cfg.Name)
	if err != nil {
		return err
	}
	defer logger.Close()

	service := cfg.Telemetry.ServiceName
	if service == "" {
		service = cfg.Name
	}
	otelProvider, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    service,
		ServiceVersion: storefront.Version,
		Enabled:        cfg.Telemetry.Enabled,
		TracingEnabled: cfg.Telemetry.TracingEnabled,
		MetricsEnabled: cfg.Telemetry.MetricsEnabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		StdoutTraces:   cfg.Development.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	store, err := core.OpenStore(ctx, cfg.Session, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := session.NewManager(store, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.SecureCookie,
		Logger:     logger,
	})

	metrics, err := telemetry.NewAPIMetrics(otelProvider.Meter)
	if err != nil {
		return err
	}
	client, err := api.New(cfg.Backend.BaseURL,
		api.WithCredentials(sessions),
		api.WithUnauthenticatedHook(sessions.Unauthenticated),
		api.WithRecorder(metrics),
		api.WithTimeout(cfg.Backend.Timeout),
		api.WithBulkConcurrency(cfg.Backend.BulkConcurrency),
		api.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	app, err := web.New(web.Config{
		API:         client,
		Sessions:    sessions,
		Logger:      logger,
		ServiceName: service,
	})
	if err != nil {
		return err
	}

	server := core.NewServer(cfg, logger)
	server.Use(telemetry.CorrelationMiddleware)
	if err := server.Handle("/", app.Routes()); err != nil {
		return err
	}

	logger.Info("Storefront starting", map[string]interface{}{
		"address":  cfg.ListenAddr(),
		"backend":  client.BaseURL(),
		"sessions": cfg.Session.Provider,
		"version":  storefront.Version,
	})
	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("Storefront stopped", nil)
	return nil
}
