package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"zephyr-lounge/internal/admission"
	"zephyr-lounge/internal/audit"
	"zephyr-lounge/internal/auth"
	"zephyr-lounge/internal/catalog"
	"zephyr-lounge/internal/config"
	"zephyr-lounge/internal/database"
	"zephyr-lounge/internal/httpapi"
	"zephyr-lounge/internal/metrics"
	"zephyr-lounge/internal/ratelimit"
	"zephyr-lounge/internal/users"
	"zephyr-lounge/internal/webhook"
	"zephyr-lounge/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout    = 20 * time.Second
	memoryDeliveryKeys = 10000
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func serveFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("migrate", false, "apply schema migrations before serving")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if migrateFirst, _ := cmd.Flags().GetBool("migrate"); migrateFirst {
		if err := database.Migrate(rootCtx, cfg, log); err != nil {
			log.Error("migrations failed", "err", err)
			return err
		}
	}

	db, err := database.Open(rootCtx, cfg)
	if err != nil {
		log.Error("database init failed", "err", err)
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: addr, Password: cfg.Redis.Password})
		if err != nil {
			log.Error("redis init failed", "err", err)
			return err
		}
		defer rdb.Close()
	}

	deps, err := buildDeps(rootCtx, cfg, log, db, rdb)
	if err != nil {
		log.Error("dependency init failed", "err", err)
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	registerRoutes(r, log, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "mode", cfg.App.Mode, "db", cfg.DB.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
		return err
	}
	return nil
}

// buildDeps wires services from config. rdb may be nil.
func buildDeps(ctx context.Context, cfg config.Config, log *slog.Logger, db *sql.DB, rdb *redis.Client) (routeDeps, error) {
	var d routeDeps

	auditSvc := audit.NewService(audit.NewLogRepo(log, audit.NewSQLRepo(db, cfg.SQLDriverName())))
	userSvc := users.NewService(users.NewSQLRepo(db, cfg.SQLDriverName()), auth.ContextSessions{}, auditSvc)

	verifier, err := auth.NewVerifier(ctx, cfg.Session, log)
	if err != nil {
		return d, fmt.Errorf("session verifier: %w", err)
	}

	cat, err := catalog.Load()
	if err != nil {
		return d, err
	}

	limiter, err := ratelimit.New(ratelimit.Config{})
	if err != nil {
		return d, err
	}
	limiter.OnEvict = func(string) { metrics.RateLimitEvictions.Inc() }

	wh := &webhook.Handler{Users: userSvc, Bypass: cfg.WebhookBypass()}
	if wh.Bypass {
		log.Warn("test mode: webhook signature verification is DISABLED", "env", cfg.App.Env)
	} else {
		wh.Verifier, err = webhook.NewSvixVerifier(cfg.Webhook.Secret)
		if err != nil {
			return d, fmt.Errorf("webhook verifier: %w", err)
		}
	}
	if rdb != nil {
		wh.Deliveries = webhook.NewRedisTracker(rdb)
	} else {
		wh.Deliveries = webhook.NewMemoryTracker(memoryDeliveryKeys, webhook.DeliveryTTL)
	}

	d = routeDeps{
		Session:    verifier,
		CookieName: cfg.Session.CookieName,
		SignInURL:  cfg.Session.SignInURL,
		Users:      userSvc,
		Handlers: httpapi.Handlers{
			Users:   userSvc,
			Catalog: cat,
			Ping: func(ctx context.Context) error {
				return utils.HealthCheck(ctx, db, 2*time.Second)
			},
		},
		Guard: &admission.Guard{
			Mode:    cfg.App.Mode,
			Env:     cfg.App.Env,
			Limiter: limiter,
			Users:   userSvc,
			Audit:   auditSvc,
		},
		Webhook: wh,
	}
	return d, nil
}
