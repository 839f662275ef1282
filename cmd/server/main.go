package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aftercollage_app_go/backend"
	"aftercollage_app_go/config"
	"aftercollage_app_go/db"
	"aftercollage_app_go/handlers"
	"aftercollage_app_go/logger"
	"aftercollage_app_go/metrics"
	"aftercollage_app_go/middleware"
	"aftercollage_app_go/services"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	logger.SetGlobal(log)
	defer log.Sync()

	b, cleanup := newBackend(cfg, log)
	defer cleanup()

	// Redis is optional; without it the busy flag and rate limits stay in-process
	var rdb *redis.Client
	var inflight services.InFlight = services.NewMemoryInFlight()
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := services.NewRedisClient(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, using in-process state", zap.Error(err))
		} else {
			rdb = client
			defer rdb.Close()
			inflight = services.NewRedisInFlight(rdb, 30*time.Second)
			log.Info("redis connected")
		}
	}

	auditor := services.NewAuditor(b, log)
	guards := middleware.NewGuards(b, log)
	guards.SetAuditor(auditor)

	mailer := services.NewMailer(cfg, log)
	monitor := services.NewLoginMonitor(mailer, cfg.TeamNotifyEmail, log)
	intake := services.NewIntake(b, inflight, log)
	intake.OnStored(mailer.NotifySubmission(cfg.AppURL))

	h := handlers.New(handlers.Deps{
		Config:       cfg,
		Log:          log,
		Backend:      b,
		Intake:       intake,
		Reviews:      services.NewReviewStore(b, log),
		Guards:       guards,
		Auditor:      auditor,
		Storage:      services.NewStorage(cfg, log),
		Assets:       middleware.NewAssets("static", "/static", []string{"css/style.css", "js/app.js"}, log),
		Monitor:      monitor,
		FormLimiter:  middleware.NewPublicFormRateLimiter(rdb),
		LoginLimiter: middleware.NewLoginRateLimiter(rdb),
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})
	e.Use(middleware.CSPNonce())
	e.Use(middleware.CSRF(cfg.IsProduction()))
	e.Use(metrics.Middleware())

	// Static files
	e.Static("/static", "static")
	e.GET("/metrics", metrics.Handler())

	h.Register(e)

	// Background cleanup (runs every hour)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go cleanupLoop(ctx, b, guards, monitor, log)

	go func() {
		log.Info("server starting", zap.String("port", cfg.ServerPort), zap.String("backend", cfg.Backend))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
	auditor.Wait()
}

// newBackend opens the configured persistence service
func newBackend(cfg *config.Config, log *zap.Logger) (backend.Backend, func()) {
	if cfg.Backend == config.BackendSupabase {
		if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
			log.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY are required for the supabase backend")
		}
		log.Info("using supabase backend", zap.String("url", cfg.SupabaseURL))
		return backend.NewRestBackend(cfg.SupabaseURL, cfg.SupabaseAnonKey), func() {}
	}

	// Initialize database
	if err := db.Initialize(cfg); err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	// Run migrations
	if err := db.AutoMigrate(backend.Models()...); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	return backend.NewGormBackend(db.DB, cfg.SessionSecret, cfg.SessionDuration), func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func cleanupLoop(ctx context.Context, b backend.Backend, guards *middleware.Guards, monitor *services.LoginMonitor, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if gb, ok := b.(*backend.GormBackend); ok {
				n, err := gb.CleanupExpiredSessions(ctx)
				if err != nil {
					log.Error("session cleanup failed", zap.Error(err))
				} else if n > 0 {
					log.Info("expired sessions removed", zap.Int64("count", n))
				}
			}
			if n := guards.Prune(now); n > 0 {
				log.Debug("stale admin guards unmounted", zap.Int("count", n))
			}
			monitor.Prune()
		}
	}
}
