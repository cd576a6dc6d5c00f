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

	"github.com/geocoder89/workerhub/internal/auth"
	"github.com/geocoder89/workerhub/internal/config"
	"github.com/geocoder89/workerhub/internal/db"
	httpx "github.com/geocoder89/workerhub/internal/http"
	"github.com/geocoder89/workerhub/internal/http/handlers"
	"github.com/geocoder89/workerhub/internal/jobs"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/observability"
	"github.com/geocoder89/workerhub/internal/queue/redisclient"
	"github.com/geocoder89/workerhub/internal/repo/memory"
	"github.com/geocoder89/workerhub/internal/repo/postgres"
	"github.com/geocoder89/workerhub/internal/security"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(observability.LogConfig{Env: cfg.Env, Service: "workerhub-api", Level: cfg.LogLevel})
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled {
		shutdown, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: "workerhub-api",
			Environment: cfg.Env,
			Endpoint:    cfg.OTELEndpoint,
			SampleRatio: cfg.OTELSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	var (
		users    service.UserStore
		projects service.ProjectStore
		refresh  service.RefreshStore
		jobsRepo *postgres.JobsRepo
		checks   = map[string]handlers.Pinger{}
	)

	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		users = memory.NewUsersRepo()
		projects = memory.NewProjectsRepo()
		refresh = memory.NewRefreshTokensRepo()

	case "postgres":
		if cfg.DBAutoMigrate {
			if err := db.Migrate(cfg.DBURL); err != nil {
				return err
			}
			log.Info("migrations applied")
		}

		pool, err := db.NewPool(ctx, cfg.DBURL, 10)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		users = postgres.NewUsersRepo(pool, prom)
		projects = postgres.NewProjectsRepo(pool, prom)
		refresh = postgres.NewRefreshTokensRepo(pool, prom)
		jobsRepo = postgres.NewJobsRepo(pool, prom)
		checks["postgres"] = pool

	default:
		return fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	transport, err := notifications.NewTransport(cfg.Notifier, notifications.SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		FromAddress: cfg.MailFrom,
	}, prom, log)
	if err != nil {
		return err
	}

	var sender notifications.Sender = transport
	if cfg.EmailDelivery == "queue" {
		if jobsRepo == nil {
			log.Warn("EMAIL_DELIVERY=queue needs STORE=postgres; sending synchronously")
		} else {
			sender = jobs.NewOutboxSender(jobsRepo, 10)
		}
	}

	routerDeps := httpx.Deps{
		Env:                cfg.Env,
		Log:                log,
		Prom:               prom,
		Checks:             checks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		OTELEnabled:        cfg.OTELEnabled,
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()

		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = rdb.Ping(pctx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable; rate limits fail open until it recovers", "err", err)
		}

		routerDeps.Limiter = redisclient.NewRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute)
		routerDeps.Checks["redis"] = rdb
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.ResetTTL)

	policy := security.DefaultPasswordPolicy()
	policy.MinLength = cfg.PasswordMinLength

	accounts := service.NewAccountService(users, refresh, tokens, sender, service.AccountsConfig{
		PasswordPolicy:          policy,
		ResetURL:                cfg.ResetURL,
		ResetTTL:                cfg.ResetTTL,
		RevealUnknownResetEmail: cfg.RevealUnknown,
		AdminInviteToken:        cfg.AdminInviteToken,
	}, log)

	seedCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = db.EnsureAdminUser(seedCtx, users, db.AdminSeed{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	}, log)
	cancel()
	if err != nil {
		return err
	}

	routerDeps.Accounts = accounts
	routerDeps.Projects = service.NewProjectService(projects, users, log)
	routerDeps.Tokens = tokens
	if jobsRepo != nil {
		routerDeps.Jobs = jobsRepo
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(routerDeps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store, "email_delivery", cfg.EmailDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Info("server shutting down")

	sctx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
