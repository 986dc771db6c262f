package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/gatehouse/pkg/api"
	"github.com/platinummonkey/gatehouse/pkg/cache"
	"github.com/platinummonkey/gatehouse/pkg/claims"
	"github.com/platinummonkey/gatehouse/pkg/config"
	"github.com/platinummonkey/gatehouse/pkg/licensing"
	"github.com/platinummonkey/gatehouse/pkg/middleware"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/permission"
	"github.com/platinummonkey/gatehouse/pkg/registry"
	"github.com/platinummonkey/gatehouse/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		// No logger yet; log.Fatal equivalent through a fresh one.
		observability.NewLogger("info", os.Stderr).Fatalf("failed to load configuration: %v", err)
	}

	log := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)
	if !cfg.Observability.MetricsEnabled {
		promRegistry = nil
	}

	// Postgres stores.
	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.WithError(err).Fatal("failed to open postgres")
	}
	defer db.Close()

	roles := postgres.NewRoleStore(db, metrics)
	orgs := postgres.NewOrgStore(db, metrics)
	subscriptions := postgres.NewSubscriptionStore(db, metrics)
	users := postgres.NewUserStore(db, metrics)

	// Redis-backed token revocation.
	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()

	tokens, err := cache.NewTokenCache(redisClient, log, metrics)
	if err != nil {
		log.WithError(err).Fatal("failed to create token cache")
	}
	sweeper, err := tokens.StartSweeper(cfg.Auth.SweepSchedule)
	if err != nil {
		log.WithError(err).Fatal("failed to start revocation sweeper")
	}
	defer sweeper.Stop()

	// Webservice registry. The watcher picks up files dropped in while the
	// process is still starting; after Finalize the set is immutable.
	reg := registry.New()
	if cfg.Auth.WatchRegistry {
		watcher, err := registry.NewWatcher(reg, cfg.Auth.RegistryDir, log)
		if err != nil {
			log.WithError(err).Fatal("failed to watch registry dir")
		}
		defer watcher.Close()
	}
	if err := registry.LoadDir(reg, cfg.Auth.RegistryDir); err != nil {
		log.WithError(err).Fatal("failed to load webservice registry")
	}
	if err := reg.Finalize(); err != nil {
		log.WithError(err).Fatal("failed to finalize webservice registry")
	}
	log.WithField("webservices", len(reg.All())).Info("webservice registry loaded")

	// Permission chain in the configured module order.
	chain, err := permission.NewChainFromConfig(cfg.Auth.ChainModules, permission.Dependencies{
		Registry:      reg,
		Log:           log,
		Metrics:       metrics,
		Roles:         roles,
		OrgRoles:      orgs,
		Subscriptions: subscriptions,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to build permission chain")
	}

	// License checker with optional provider verification.
	var provider licensing.Provider
	if cfg.Licensing.BaseURL != "" {
		provider, err = licensing.NewHTTPProvider(cfg.Licensing, metrics)
		if err != nil {
			log.WithError(err).Fatal("failed to create license provider")
		}
	}
	checker, err := licensing.NewChecker(subscriptions, provider, log, metrics)
	if err != nil {
		log.WithError(err).Fatal("failed to create license checker")
	}

	// Layered claims generation.
	generator := claims.NewGenerator(log,
		claims.WithLayerMetrics(&claims.BaseLayer{Registry: reg}, metrics),
		claims.WithLayerMetrics(&claims.RoleLayer{Roles: roles}, metrics),
		claims.WithLayerMetrics(&claims.OrganizationLayer{Registry: reg, Orgs: orgs, License: subscriptions}, metrics),
		claims.WithLayerMetrics(&licensing.SubscriptionLayer{Orgs: orgs, Checker: checker}, metrics),
	)

	issuer, err := claims.NewIssuer([]byte(cfg.Auth.SigningKey), cfg.Auth.TokenTTL)
	if err != nil {
		log.WithError(err).Fatal("failed to create token issuer")
	}

	auth := middleware.NewAuthMiddleware(issuer, tokens, cfg.Auth.ServiceTokens, log).WithMetrics(metrics)
	access := middleware.NewAccessMiddleware(chain)
	server := api.NewServer(log, metrics, promRegistry, issuer, tokens, users, generator, auth, access)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", httpServer.Addr).Info("starting gatehouse server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
