// Command authflow-bridge serves the auth flow controller over a local HTTP
// API for a UI shell.
//
// It runs the in-process memory gateway. Rate limiting uses REDIS_URL when
// set and an embedded miniredis otherwise, so no external services are
// required.
//
// Run:
//
//	go run ./cmd/authflow-bridge -config authflow.yaml
//
// Then:
//
//	curl -s -X POST localhost:8787/signup \
//	  -d '{"fullName":"Ana Lima","email":"ana@example.com","password":"password123","agreeToTerms":true}'
//	curl -s -X POST localhost:8787/dev/confirm -d '{"email":"ana@example.com"}'
//	curl -s localhost:8787/screens/home
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/gotg/authflow"
	"github.com/gotg/authflow/bridge"
	"github.com/gotg/authflow/credstore"
	"github.com/gotg/authflow/gateway/memory"
	"github.com/gotg/authflow/internal/logging"
	"github.com/gotg/authflow/internal/rate"
	tokens "github.com/gotg/authflow/jwt"
	"github.com/redis/go-redis/v9"
)

const sweepInterval = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to authflow YAML config (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)
	if err := run(cfg, logger); err != nil {
		logger.Error("bridge exited", "error", err)
		os.Exit(1)
	}
	logger.Info("bridge exited cleanly")
}

func loadConfig(path string) (authflow.Config, error) {
	cfg := authflow.DefaultConfig()
	if path != "" {
		loaded, err := authflow.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func run(cfg authflow.Config, logger *slog.Logger) error {
	ctx := context.Background()

	rdb, closeRedis, err := redisClient(ctx, cfg.CredentialStore.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer closeRedis()

	creds, closeCreds, err := credstore.Open(ctx, cfg.CredentialStore.Options())
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() {
		if err := closeCreds(); err != nil {
			logger.Warn("close credential store", "error", err)
		}
	}()

	gw, err := newGateway(cfg, creds, rdb)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}

	c, err := authflow.New().
		WithConfig(cfg).
		WithGateway(gw).
		WithCredentialStore(creds).
		WithLogger(logger).
		WithNotificationSink(authflow.NotificationSinkFunc(func(_ context.Context, n authflow.Notification) {
			logger.Info("notification",
				"kind", string(n.Kind),
				"event", n.Event,
				"message", n.Message,
			)
		})).
		Build()
	if err != nil {
		return fmt.Errorf("build controller: %w", err)
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}

	h := bridge.New(c, bridge.WithLogger(logger))
	defer h.Close()

	r := chi.NewRouter()
	r.Post("/dev/confirm", confirmHandler(gw))
	r.Mount("/", h)

	srv := &http.Server{
		Addr:              cfg.Bridge.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweep(sweepCtx, c, logger)

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("bridge listening", "addr", cfg.Bridge.Addr)
		srvErrCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// redisClient connects to url, or starts an embedded miniredis when url is
// empty.
func redisClient(ctx context.Context, url string) (*redis.Client, func(), error) {
	if url == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		return rdb, func() {
			_ = rdb.Close()
			mr.Close()
		}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return rdb, func() { _ = rdb.Close() }, nil
}

func newGateway(cfg authflow.Config, creds credstore.Store, rdb redis.UniversalClient) (*memory.Backend, error) {
	opts := []memory.Option{
		memory.WithVerificationRequired(cfg.Gateway.RequireVerification),
		memory.WithStore(creds),
		memory.WithLimiter(rate.New(rdb, "authflow", rate.Config{
			MaxAttempts: cfg.Gateway.RateLimit.MaxAttempts,
			Window:      cfg.Gateway.RateLimit.Window,
		})),
	}
	if cfg.Gateway.SigningSecret != "" {
		m, err := tokens.NewManager(tokens.Config{
			AccessTTL:     cfg.Gateway.AccessTTL,
			SigningMethod: tokens.MethodHS256,
			PrivateKey:    []byte(cfg.Gateway.SigningSecret),
			Issuer:        cfg.Gateway.Issuer,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, memory.WithTokenManager(m))
	}
	return memory.New(opts...)
}

// confirmHandler stands in for the verification deep link.
func confirmHandler(gw *memory.Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if _, err := gw.ConfirmEmail(r.Context(), req.Email); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func sweep(ctx context.Context, c *authflow.Controller, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.SweepExpired() {
				logger.Info("expired session cleared")
			}
		}
	}
}
