package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/canvas-mcp/internal/config"
	"github.com/Sternrassler/canvas-mcp/internal/mcpserver"
	"github.com/Sternrassler/canvas-mcp/pkg/canvas"
	"github.com/Sternrassler/canvas-mcp/pkg/client"
	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/Sternrassler/canvas-mcp/pkg/metrics"
	"github.com/Sternrassler/canvas-mcp/pkg/ratelimit"
	"github.com/Sternrassler/canvas-mcp/pkg/session"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout = 10 * time.Second
	readTimeout     = 5 * time.Second
	idleTimeout     = 120 * time.Second
)

func main() {
	// Logs go to stderr; stdout carries the stdio transport.
	logging.Setup(logging.DefaultConfig())

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx := context.Background()

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	tracker := ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
	canvasClient, err := client.New(cfg.APIToken, cfg.Domain,
		client.WithMaxRetries(cfg.MaxRetries),
		client.WithRetryDelay(cfg.RetryDelay.Duration()),
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(logging.NewLogger("client")),
		client.WithRateLimitTracker(tracker),
	)
	if err != nil {
		return fmt.Errorf("create Canvas client: %w", err)
	}
	defer canvasClient.Close()

	svc := canvas.NewService(canvasClient, logging.NewLogger("canvas"))

	store := newSessionStore(redisClient, cfg.SessionTTL)
	defer store.Close()

	mcpLogger := logging.NewLogger("mcpserver")
	s := mcpserver.New(svc, store, mcpserver.Options{
		Name:       cfg.ServerName,
		Version:    cfg.ServerVersion,
		Logger:     &mcpLogger,
		SessionTTL: cfg.SessionTTL,
	})

	if useStdio(cfg.Transport, stdinIsPipe()) {
		if cfg.MetricsAddr != "" {
			go serveMetrics(cfg.MetricsAddr)
		}
		log.Info().Str("name", cfg.ServerName).Msg("Starting Canvas MCP server (stdio transport)")
		return server.ServeStdio(s)
	}
	return serveHTTP(cfg.HTTPAddr, s, svc, redisClient)
}

// connectRedis returns nil when no URL is configured.
func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	if rawURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: REDIS_URL: %v", config.ErrInvalidConfig, err)
	}
	redisClient := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return redisClient, nil
}

func newSessionStore(redisClient *redis.Client, ttl time.Duration) session.Store {
	if redisClient != nil {
		log.Info().Dur("ttl", ttl).Msg("Using Redis session store")
		return session.NewRedisStore(redisClient, ttl)
	}
	log.Info().Dur("ttl", ttl).Msg("Using in-memory session store")
	return session.NewMemoryStore(ttl)
}

// useStdio resolves the transport mode. In auto mode stdio is chosen when
// stdin is not a terminal, i.e. the server was launched by an MCP host.
func useStdio(mode string, stdinPiped bool) bool {
	switch mode {
	case config.TransportStdio:
		return true
	case config.TransportHTTP:
		return false
	default:
		return stdinPiped
	}
}

func stdinIsPipe() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

func newMux(streamSrv http.Handler, svc *canvas.Service, redisClient *redis.Client) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/mcp", streamSrv)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", healthHandler(svc))
	mux.HandleFunc("/ready", readyHandler(redisClient))
	return mux
}

func serveHTTP(addr string, s *server.MCPServer, svc *canvas.Service, redisClient *redis.Client) error {
	streamSrv := server.NewStreamableHTTPServer(s,
		server.WithEndpointPath("/mcp"),
		server.WithHeartbeatInterval(30*time.Second),
	)

	srv := &http.Server{
		Addr:        addr,
		Handler:     newMux(streamSrv, svc, redisClient),
		ReadTimeout: readTimeout,
		// Streaming responses have no deadline.
		WriteTimeout: 0,
		IdleTimeout:  idleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	shutdownComplete := make(chan struct{})

	go func() {
		defer close(shutdownComplete)

		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error during HTTP server shutdown")
		}
		if err := streamSrv.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error during MCP server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("Starting Canvas MCP server (streamable HTTP)")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}

	<-shutdownComplete
	log.Info().Msg("Server shutdown complete")
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: readTimeout}

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

// healthHandler reports Canvas connectivity. It answers 503 when the
// authenticated profile cannot be fetched.
func healthHandler(svc *canvas.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		health := svc.HealthCheck(ctx)
		status := http.StatusOK
		if health.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(health); err != nil {
			log.Error().Err(err).Msg("Failed to write health response")
		}
	}
}

// readyHandler checks the shared Redis state when one is configured.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}
