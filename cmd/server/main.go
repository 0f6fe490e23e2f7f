// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentrusty/securetask/internal/audit"
	"github.com/opentrusty/securetask/internal/authz"
	"github.com/opentrusty/securetask/internal/config"
	"github.com/opentrusty/securetask/internal/identity"
	"github.com/opentrusty/securetask/internal/observability/logger"
	"github.com/opentrusty/securetask/internal/observability/metrics"
	"github.com/opentrusty/securetask/internal/observability/tracing"
	"github.com/opentrusty/securetask/internal/store/memory"
	"github.com/opentrusty/securetask/internal/store/postgres"
	"github.com/opentrusty/securetask/internal/task"
	"github.com/opentrusty/securetask/internal/tenant"
	"github.com/opentrusty/securetask/internal/token"
	transportHTTP "github.com/opentrusty/securetask/internal/transport/http"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	// CLI Commands
	if len(os.Args) > 1 {
		var cmdErr error
		switch os.Args[1] {
		case "migrate":
			cmdErr = runMigrate(cfg)
		case "seed":
			cmdErr = runSeed(cfg)
		default:
			cmdErr = fmt.Errorf("unknown command %q", os.Args[1])
		}
		if cmdErr != nil {
			slog.Error("command failed", logger.Operation(os.Args[1]), logger.Error(cmdErr))
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("server failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	slog.Info("starting securetask", slog.String("store", cfg.Store.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
	})
	if err != nil {
		slog.Error("failed to initialize tracer, tracing disabled", logger.Error(err))
		tracer, _ = tracing.New(ctx, tracing.Config{})
	}
	defer tracer.Shutdown(context.Background())

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	securityMetrics, err := metrics.NewSecurityMetrics(meter)
	if err != nil {
		return err
	}

	// Initialize storage
	stores, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.close()

	auditLog, closeAudit, err := openAuditLog(cfg)
	if err != nil {
		return err
	}
	defer closeAudit()

	// Initialize services
	tenantService := tenant.NewService(stores.orgs)
	identityService := newIdentityService(cfg, stores, tenantService, auditLog)

	scope := authz.ScopeChecker{Policy: authz.ScopeDistinct}
	if cfg.Tenant.ConcealCrossAccess {
		scope.Policy = authz.ScopeConceal
	}
	taskService := task.NewService(stores.tasks, scope, auditLog)

	if err := identity.NewBootstrapService(identityService, tenantService).
		Bootstrap(ctx, cfg.Seed.DemoData, cfg.Seed.Password); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	issuer, err := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		identityService,
		taskService,
		auditLog,
		issuer,
		authz.NewGuard(authz.DefaultPolicy()),
		transportHTTP.Observability{
			Security: logger.NewSecurityLogger(slog.Default()),
			Metrics:  securityMetrics,
			Tracer:   tracer,
		},
	)

	router := transportHTTP.NewRouter(handler, transportHTTP.RouterOptions{
		RateLimiter:  limiter,
		DashboardDir: cfg.Dashboard.Dir,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

// stores bundles the repositories of the configured driver.
type stores struct {
	users identity.UserRepository
	orgs  tenant.Repository
	tasks task.Repository
	close func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		st := memory.New()
		return &stores{
			users: st.Users(),
			orgs:  st.Organizations(),
			tasks: st.Tasks(),
			close: func() {},
		}, nil
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("connected to database")

	return &stores{
		users: postgres.NewUserRepository(db),
		orgs:  postgres.NewOrganizationRepository(db),
		tasks: postgres.NewTaskRepository(db),
		close: db.Close,
	}, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.New(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func openAuditLog(cfg *config.Config) (audit.Log, func(), error) {
	fallback := audit.NewSlogRecorder(slog.Default())
	if cfg.Audit.LogPath == "" {
		slog.Warn("AUDIT_LOG_PATH not set, audit log kept in memory")
		return audit.NewMemoryLog(), func() {}, nil
	}

	fileLog, err := audit.OpenFileLog(cfg.Audit.LogPath, fallback)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return fileLog, func() {
		if err := fileLog.Close(); err != nil {
			slog.Error("failed to close audit log", logger.Error(err))
		}
	}, nil
}

func newIdentityService(cfg *config.Config, st *stores, orgs identity.OrganizationResolver, recorder audit.Recorder) *identity.Service {
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	return identity.NewService(
		st.users,
		orgs,
		passwordHasher,
		recorder,
		cfg.Security.LockoutMaxAttempts,
		cfg.Security.LockoutDuration,
	)
}

func newRateLimiter(ctx context.Context, cfg *config.Config) (transportHTTP.Limiter, func(), error) {
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		limiter, err := transportHTTP.NewRedisLimiter(client, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		slog.Info("using redis rate limiter", slog.Duration("window", limiter.Window()))
		return limiter, func() { client.Close() }, nil
	}

	limiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	return limiter, limiter.Close, nil
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("applying migrations")
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("migration successful")
	return nil
}

// runSeed creates the default organization and the demo users on an empty
// store, regardless of SEED_DEMO_DATA.
func runSeed(cfg *config.Config) error {
	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	tenantService := tenant.NewService(st.orgs)
	identityService := newIdentityService(cfg, st, tenantService, audit.NewSlogRecorder(slog.Default()))
	return identity.NewBootstrapService(identityService, tenantService).Bootstrap(ctx, true, cfg.Seed.Password)
}
