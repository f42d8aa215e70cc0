// Package main runs the Automower event stream session daemon
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"

	"github.com/wrale/automower-session/internal/mowerapi"
	"github.com/wrale/automower-session/internal/mowerstate"
	"github.com/wrale/automower-session/internal/oauth"
	"github.com/wrale/automower-session/internal/stream"
	"github.com/wrale/automower-session/internal/tokens"
)

// Version is set by the build process
var Version = "dev"

func main() {
	// Load configuration from environment
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	client, err := oauth.NewHusqvarnaClient(oauth.Config{
		ApplicationKey: cfg.AppKey,
		BaseURL:        cfg.AuthURL,
	})
	if err != nil {
		return fmt.Errorf("creating authentication client: %w", err)
	}

	manager := tokens.NewManager(client,
		tokens.Credentials{Username: cfg.Username, Password: cfg.Password},
		tokens.WithLogger(logger.With("component", "tokens")),
	)

	store, closeStore, err := newStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	session := stream.NewSession(manager,
		stream.NewWebsocketTransport(cfg.StreamURL, cfg.AppKey, logger.With("component", "transport")),
		stream.WithPollInterval(cfg.PollInterval),
		stream.WithStaleThreshold(cfg.StaleThreshold),
		stream.WithLogger(logger.With("component", "session")),
	)

	srv := newServer(session, store, logger.With("component", "http"))
	session.OnStatusEventReceived(srv.recordStatus)

	// A 401 here flags the token, so the stream below starts with a fresh one
	api := mowerapi.NewClient(cfg.APIURL, &http.Client{
		Timeout:   cfg.APITimeout,
		Transport: tokens.NewTransport(manager, cfg.AppKey, logger.With("component", "api")),
	})
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), cfg.APITimeout)
	if err := seedStatuses(seedCtx, api, store, logger); err != nil {
		logger.Warn("seeding mower statuses", slog.Any("error", err))
	}
	cancelSeed()

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = session.Start(startCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("starting event stream: %w", err)
	}

	// Create HTTP server with proper timeout configurations
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.Int("port", cfg.Port))
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var serveErr error
	select {
	case err := <-serverErrors:
		serveErr = fmt.Errorf("serving http: %w", err)
	case sig := <-shutdown:
		logger.Info("starting shutdown", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("shutting down server", slog.Any("error", err))
		if err := httpServer.Close(); err != nil {
			logger.Warn("closing server", slog.Any("error", err))
		}
	}

	session.Stop()
	if err := manager.Logout(ctx); err != nil {
		logger.Warn("revoking access token", slog.Any("error", err))
	}

	return serveErr
}

// newStore picks Redis when configured and process memory otherwise
func newStore(cfg Config) (mowerstate.Store, func(), error) {
	if cfg.RedisURL == "" {
		return mowerstate.NewMemoryStore(), func() {}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	// Verify Redis connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}

	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("closing redis connection", slog.Any("error", err))
		}
	}
	return mowerstate.NewRedisStore(redisClient, cfg.StatusTTL), closeFn, nil
}
