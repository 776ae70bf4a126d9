package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/janus/internal/alert"
	"github.com/dropDatabas3/janus/internal/cache"
	memcache "github.com/dropDatabas3/janus/internal/cache/memory"
	redcache "github.com/dropDatabas3/janus/internal/cache/redis"
	"github.com/dropDatabas3/janus/internal/cache/tenantcache"
	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	httpserver "github.com/dropDatabas3/janus/internal/http"
	authctrl "github.com/dropDatabas3/janus/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/janus/internal/http/controllers/health"
	socialctrl "github.com/dropDatabas3/janus/internal/http/controllers/social"
	authsvc "github.com/dropDatabas3/janus/internal/http/services/auth"
	socialsvc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/providers/apple"
	"github.com/dropDatabas3/janus/internal/providers/facebook"
	"github.com/dropDatabas3/janus/internal/providers/github"
	"github.com/dropDatabas3/janus/internal/providers/google"
	"github.com/dropDatabas3/janus/internal/providers/microsoft"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
	"github.com/dropDatabas3/janus/internal/session"
	"github.com/dropDatabas3/janus/internal/store/pg"
	"github.com/dropDatabas3/janus/internal/sweep"
	migrations "github.com/dropDatabas3/janus/migrations/postgres"
)

func main() {
	_ = godotenv.Load()

	var configPath string

	root := &cobra.Command{
		Use:          "janus",
		Short:        "Multi-tenant federated identity service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("JANUS_CONFIG"), "path to config.yaml (optional)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service and the background sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runMigrate(cmd.Context(), cfg)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired rows once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runSweep(cmd.Context(), cfg)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, sweepCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()
	log := logger.With(logger.Component("main"))

	box, err := secretbox.New(cfg.Security.SecretBoxMasterKey)
	if err != nil {
		return fmt.Errorf("secretbox: %w", err)
	}

	store, err := pg.Connect(ctx, pg.Config{
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	tenants := tenantcache.New(store.Tenants(), buildCache(cfg), cfg.Cache.DefaultTTL)

	client := &http.Client{Timeout: 10 * time.Second}
	registry := providers.NewRegistry()
	registry.Register(google.New(box, client))
	registry.Register(github.New(box, client))
	registry.Register(microsoft.New(box, client))
	registry.Register(facebook.New(box, client))
	registry.Register(apple.New(box, client))

	issuer, err := buildIssuer(cfg)
	if err != nil {
		return err
	}

	notifier := buildNotifier(cfg)
	sessionCfg := session.Config{
		RefreshTTL:            cfg.Auth.RefreshTTL,
		DefaultSessionCeiling: cfg.Auth.SessionCeiling,
		RevokeChainOnReplay:   cfg.RevokeChainOnReplay(),
	}
	users := session.New(store, repository.OwnerUser, sessionCfg, notifier)
	members := session.New(store, repository.OwnerMember, sessionCfg, notifier)

	deps := &socialsvc.Deps{
		Store:       store,
		Tenants:     tenants,
		Registry:    registry,
		Box:         box,
		Sessions:    users,
		Issuer:      issuer,
		BaseURL:  cfg.Server.BaseURL,
		StateTTL: cfg.Auth.StateTTL,
		CodeTTL:  cfg.Auth.CodeTTL,
	}

	metricsHandler, err := httpserver.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Tenants:        tenants,
		Start:          socialctrl.NewStartController(socialsvc.NewStartService(deps)),
		Callback:       socialctrl.NewCallbackController(socialsvc.NewCallbackService(deps)),
		Exchange:       socialctrl.NewExchangeController(socialsvc.NewExchangeService(deps)),
		Providers:      socialctrl.NewProvidersController(socialsvc.NewProvidersService(deps)),
		Refresh:        authctrl.NewRefreshController(authsvc.NewRefreshService(users, members, issuer)),
		Logout:         authctrl.NewLogoutController(authsvc.NewLogoutService(users, members)),
		Health:         healthctrl.New(store.Pool()),
		MetricsHandler: metricsHandler,
	})

	server := httpserver.NewServer(httpserver.ServerConfig{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, router)
	sweeper := sweep.New(store, cfg.Sweep.Interval)

	log.Info("service starting",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error {
		err := sweeper.Run(logger.ToContext(gctx, logger.L()))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}

func runMigrate(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()

	store, err := pg.Connect(ctx, pg.Config{
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	result, err := pg.NewMigrator(migrations.FS).Run(ctx, store)
	if err != nil {
		return err
	}
	logger.L().Info("migrations applied",
		logger.Int("applied", len(result.Applied)),
		logger.Int("skipped", len(result.Skipped)),
	)
	return nil
}

func runSweep(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})
	defer func() { _ = logger.Sync() }()

	store, err := pg.Connect(ctx, pg.Config{
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	deleted, err := sweep.New(store, 0).RunOnce(ctx)
	if err != nil {
		return err
	}
	for table, n := range deleted {
		logger.L().Info("swept", logger.String("table", table), logger.Count(n))
	}
	return nil
}

func buildCache(cfg *config.Config) cache.Cache {
	if cfg.Cache.Driver == "redis" {
		return redcache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB)
	}
	return memcache.New(cfg.Cache.DefaultTTL)
}

func buildIssuer(cfg *config.Config) (*jwt.Issuer, error) {
	raw, err := base64.StdEncoding.DecodeString(cfg.JWT.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("jwt: decode signing key: %w", err)
	}
	var priv ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("jwt: signing key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
	return jwt.New(jwt.Config{
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		KeyID:     cfg.JWT.KeyID,
		AccessTTL: cfg.JWT.AccessTTL,
	}, priv)
}

func buildNotifier(cfg *config.Config) alert.Notifier {
	sinks := alert.Fanout{alert.LogNotifier{}}
	if cfg.SMTP.Host != "" {
		sinks = append(sinks, alert.NewSMTP(cfg.SMTP))
	}
	return sinks
}
