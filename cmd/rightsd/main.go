package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goRights "github.com/MrEthical07/goRights"
	"github.com/MrEthical07/goRights/jwt"
	"github.com/MrEthical07/goRights/permission"
	"github.com/MrEthical07/goRights/resource"
	"github.com/MrEthical07/goRights/role"
	"github.com/MrEthical07/goRights/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := newLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rightsd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{AddSource: true, Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	st, pinger, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedFile != "" {
		if err := applySeed(ctx, cfg.SeedFile, st); err != nil {
			return err
		}
		logger.Info("seed applied", slog.String("file", cfg.SeedFile))
	}

	rightsCfg := goRights.DefaultConfig()
	rightsCfg.Voter.DenyDisabled = cfg.DenyDisabled
	rightsCfg.Store.RefreshInterval = cfg.RefreshInterval
	rightsCfg.Metrics.Enabled = true
	rightsCfg.Metrics.EnableLatencyHistograms = true
	rightsCfg.Audit.Enabled = cfg.AuditLog
	rightsCfg.Audit.EmitGrants = cfg.AuditGrants

	engine, err := goRights.New().
		WithConfig(rightsCfg).
		WithStore(st).
		WithLogger(logger).
		WithAuditSink(goRights.NewJSONWriterSink(os.Stderr)).
		BuildContext(ctx)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	tokens, err := newTokenManager(cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: NewRouter(RouterParams{
			Config: cfg,
			Logger: logger,
			Engine: engine,
			Tokens: tokens,
			Pinger: pinger,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.Addr), slog.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore connects the configured backend. pinger is nil for the memory
// backend.
func openStore(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Store, func(context.Context) error, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		st := store.NewRedis(client, cfg.RedisPrefix)
		return st, st.Ping, func() {
			if err := client.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}, nil

	case "postgres":
		if err := store.Migrate(migrateURL(cfg.PGDSN), logger); err != nil {
			return nil, nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store.NewPostgres(pool), pool.Ping, pool.Close, nil

	default:
		return store.NewMemory(), nil, func() {}, nil
	}
}

// migrateURL rewrites a libpq style DSN to the pgx5 scheme golang-migrate
// registers for pgx v5.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, scheme) {
			return "pgx5://" + strings.TrimPrefix(dsn, scheme)
		}
	}
	return dsn
}

func applySeed(ctx context.Context, path string, st store.Store) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	seed, err := store.LoadSeed(f, permission.Default(), resource.Default())
	if err != nil {
		return err
	}
	return seed.Apply(ctx, st)
}

func newTokenManager(cfg *Config) (*jwt.Manager, error) {
	return jwt.NewManager(jwt.Config{
		TTL:           cfg.JWTTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(cfg.JWTSecret),
		Issuer:        cfg.JWTIssuer,
		Audience:      cfg.JWTAudience,
		Leeway:        30 * time.Second,
		RequireIAT:    true,
		ElevatedRoles: []string{role.NameSuperAdmin},
		ElevatedTTL:   cfg.JWTElevatedTTL,
	})
}
