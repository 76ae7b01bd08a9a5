// Copyright 2026 The Checkpointd Authors
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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/checkpointd/checkpointd/internal/accessgroup"
	"github.com/checkpointd/checkpointd/internal/audit"
	"github.com/checkpointd/checkpointd/internal/config"
	"github.com/checkpointd/checkpointd/internal/domain"
	"github.com/checkpointd/checkpointd/internal/godauth"
	"github.com/checkpointd/checkpointd/internal/notify"
	"github.com/checkpointd/checkpointd/internal/observability/logger"
	"github.com/checkpointd/checkpointd/internal/observability/metrics"
	"github.com/checkpointd/checkpointd/internal/observability/tracing"
	"github.com/checkpointd/checkpointd/internal/realm"
	"github.com/checkpointd/checkpointd/internal/store/postgres"
	transportHTTP "github.com/checkpointd/checkpointd/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting checkpointd authorization service")

	ctx := context.Background()

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
		os.Exit(1)
	}
	defer tracer.Shutdown(ctx)

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
		os.Exit(1)
	}

	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Repositories
	realmRepo := postgres.NewRealmRepository(db)
	domainRepo := postgres.NewDomainRepository(db)
	identityRepo := postgres.NewIdentityRepository(db)
	godKeyRepo := postgres.NewGodKeyRepository(db)
	groupRepo := postgres.NewAccessGroupRepository(db)
	membershipRepo := postgres.NewMembershipRepository(db)
	subtreeRepo := postgres.NewSubtreeRepository(db)

	// Helpers
	auditLogger := audit.NewSlogLogger()
	sink := notify.SlogSink{}
	hasher := godauth.NewHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	godChecker := godauth.NewKeyChecker(godKeyRepo, hasher)

	// Services
	realmService := realm.NewService(realmRepo)
	resolver := domain.NewResolver(domainRepo, domain.NewNetLookup(), cfg.Resolver.DNSTimeout)
	domainService := domain.NewService(domainRepo, realmRepo, resolver, auditLogger)
	groupService := accessgroup.NewService(
		groupRepo,
		membershipRepo,
		subtreeRepo,
		identityRepo,
		realmRepo,
		sink,
		auditLogger,
	)

	accessChecks, err := meter.CreateCounter("access_checks_total", "Access decisions served")
	if err != nil {
		slog.Error("failed to create access check counter", logger.Error(err))
	}

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handler := transportHTTP.NewHandler(
		realmService,
		domainService,
		groupService,
		identityRepo,
		godChecker,
		auditLogger,
		accessChecks,
	)
	router := transportHTTP.NewRouter(handler, rateLimiter)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", logger.Error(err))
	}

	slog.Info("server stopped")
}
