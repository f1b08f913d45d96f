// Package main initializes and starts the tea-shop HTTP server,
// setting up configuration, logging, database connections, the catalog,
// locks, repositories, services and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/teashop/internal/catalog"
	"github.com/atinyakov/teashop/internal/clock"
	"github.com/atinyakov/teashop/internal/config"
	"github.com/atinyakov/teashop/internal/db"
	"github.com/atinyakov/teashop/internal/lock"
	"github.com/atinyakov/teashop/internal/logger"
	"github.com/atinyakov/teashop/internal/middleware"
	"github.com/atinyakov/teashop/internal/repository"
	"github.com/atinyakov/teashop/internal/server/handler/http"
	"github.com/atinyakov/teashop/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging. Until it succeeds only stderr is
	// available for errors.
	log, err := newLogger(options.LogLevel)
	if err != nil {
		stdlog.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = log.Log.Sync() }()
	zapLogger := log.Log

	// Initialize PostgreSQL connection and apply migrations.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Load the product catalog.
	cat := catalog.Default()
	if options.CatalogFile != "" {
		cat, err = catalog.Load(options.CatalogFile)
		if err != nil {
			zapLogger.Fatal("cannot load catalog", zap.String("path", options.CatalogFile), zap.Error(err))
		}
	}
	zapLogger.Info("catalog loaded", zap.Int("categories", len(cat)))

	// The shop's calendar day is decided in its own timezone.
	loc, err := time.LoadLocation(options.Timezone)
	if err != nil {
		zapLogger.Fatal("unknown timezone", zap.String("tz", options.Timezone), zap.Error(err))
	}
	clk := clock.System{Location: loc}

	locker := newLocker(options.RedisAddress, zapLogger)

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	ledgerRepo := repository.NewPostgresLedgerRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, service.AuthOptions{
		Secret:      []byte(options.JWTSecret),
		TokenTTL:    options.TokenTTL.Duration,
		PhoneRegion: options.PhoneRegion,
	})
	ledgerService := service.NewLedgerService(ledgerRepo, cat, clk, locker)

	// Create HTTP handlers for auth and ledger endpoints.
	authHandler := &http.AuthHandler{AuthService: authService, Logger: zapLogger}
	ledgerHandler := &http.LedgerHandler{Ledger: ledgerService, Logger: zapLogger}
	authMiddleware := middleware.BearerAuth(authService, func(err error) bool {
		return errors.Is(err, service.ErrUnauthorized)
	}, zapLogger)

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, ledgerHandler, authMiddleware, options.AllowedOrigins(), zapLogger)

	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if options.TLSEnabled() {
		zapLogger.Info("starting HTTPS server", zap.String("addr", addr))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", addr))
		err = server.ListenAndServe()
	}
	if err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

// newLogger builds the process logger at level.
func newLogger(level string) (*logger.Logger, error) {
	log := logger.New()
	if err := log.Init(level); err != nil {
		return nil, err
	}
	return log, nil
}

// newLocker returns a Redis-backed locker when addr is set, otherwise a
// process-local one.
func newLocker(addr string, log *zap.Logger) lock.Locker {
	if addr == "" {
		return lock.NewLocal()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("cannot reach redis", zap.String("addr", addr), zap.Error(err))
	}
	log.Info("using redis locks", zap.String("addr", addr))
	return lock.NewRedis(rdb, 10*time.Second, log)
}
