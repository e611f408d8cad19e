// Package main implements a Battlesnake API server for the hunter policy.
//
// Every /move is answered by hunt.Selector: chase the first enemy on the
// board, otherwise take a safe cell, then any open cell, then up. Snakes
// started through this server are registered per match so they never
// chase each other.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brensch/hunter/hunt"
	"github.com/brensch/hunter/logging"
	"github.com/brensch/hunter/rules"
	"github.com/brensch/hunter/store"
	"github.com/brensch/hunter/team"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", ":"+getEnvOrDefault("PORT", "8080"), "HTTP listen address")
	logLevel := fs.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json, text")
	decisionsDir := fs.String("decisions-dir", getEnvOrDefault("DECISIONS_DIR", ""), "Record every decision as parquet under this directory (empty disables)")
	sweepEvery := fs.Duration("sweep-every", getEnvDurationOrDefault("SWEEP_EVERY", 5*time.Minute), "How often to evict matches that never sent /end")
	matchTTL := fs.Duration("match-ttl", getEnvDurationOrDefault("MATCH_TTL", time.Hour), "Age after which a match is evicted from the registry")
	color := fs.String("color", getEnvOrDefault("SNAKE_COLOR", "#cc4343"), "Snake color")
	redisAddr := fs.String("redis-addr", getEnvOrDefault("REDIS_ADDR", ""), "Redis address for sharing own snakes across instances (empty disables)")
	teamNamespace := fs.String("team-namespace", getEnvOrDefault("TEAM_NAMESPACE", "default"), "Instances with the same namespace never hunt each other")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	if err := run(logger, config{
		listen:       *listen,
		decisionsDir: *decisionsDir,
		sweepEvery:   *sweepEvery,
		matchTTL:     *matchTTL,
		color:        *color,
		redisAddr:    *redisAddr,
		teamNS:       *teamNamespace,
	}); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

type config struct {
	listen       string
	decisionsDir string
	sweepEvery   time.Duration
	matchTTL     time.Duration
	color        string
	redisAddr    string
	teamNS       string
}

func run(logger *slog.Logger, cfg config) error {
	registry := hunt.NewRegistry()
	selector := hunt.NewSelector(registry, rules.Pathfinder{})
	selector.Logger = logger

	var recorder *store.Recorder
	if cfg.decisionsDir != "" {
		var err error
		recorder, err = store.NewRecorder(store.RecorderConfig{OutDir: cfg.decisionsDir}, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := recorder.Close(); err != nil {
				logger.Error("recorder close", "err", err)
			}
			logger.Info("recorder closed", "stats", recorder.Stats())
		}()
	}

	server := NewServer(registry, selector, recorderOrNil(recorder), Appearance{
		Author: "hunter",
		Color:  cfg.color,
		Heads:  []string{"smile", "tongue"},
		Tails:  []string{"fat-rattle", "small-rattle"},
	}, logger)

	if cfg.redisAddr != "" {
		shared, err := team.NewShared(&redis.Options{Addr: cfg.redisAddr}, cfg.teamNS, registry, cfg.matchTTL, logger)
		if err != nil {
			return err
		}
		defer shared.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = shared.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to Redis at %s: %w", cfg.redisAddr, err)
		}
		server.WithTeam(shared)
		logger.Info("sharing own snakes", "redis", cfg.redisAddr, "namespace", cfg.teamNS)
	}

	srv := &http.Server{
		Addr:              cfg.listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, logger, registry, cfg.sweepEvery, cfg.matchTTL)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("battlesnake server listening", "addr", cfg.listen, "recording", cfg.decisionsDir != "")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// recorderOrNil keeps a nil *store.Recorder from becoming a non-nil interface.
func recorderOrNil(r *store.Recorder) decisionRecorder {
	if r == nil {
		return nil
	}
	return r
}

// sweep evicts matches whose /end never arrived.
func sweep(ctx context.Context, logger *slog.Logger, registry *hunt.Registry, every, ttl time.Duration) {
	if every <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := registry.Sweep(ttl); n > 0 {
				logger.Info("evicted stale matches", "count", n, "tracked_games", registry.Len())
			}
		}
	}
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
