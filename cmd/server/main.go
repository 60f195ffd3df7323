// Command server runs the blog service REST API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/inkwell-labs/blog_service/internal/app"
	"github.com/inkwell-labs/blog_service/internal/app/httpapi"
	"github.com/inkwell-labs/blog_service/internal/app/storage/postgres"
	"github.com/inkwell-labs/blog_service/internal/config"
	"github.com/inkwell-labs/blog_service/internal/middleware"
	"github.com/inkwell-labs/blog_service/internal/platform/migrations"
	"github.com/inkwell-labs/blog_service/internal/token"
	"github.com/inkwell-labs/blog_service/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file applied over the environment")
	addr := flag.String("addr", "", "listen address override")
	flag.Parse()

	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromPath(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		logger.NewDefault("server").WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	log := logger.New("server", logger.LoggingConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := app.Stores{}
	if cfg.Database.DSN != "" {
		pg, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := migrations.Apply(ctx, pg.DB()); err != nil {
			return err
		}
		stores = app.Stores{Identities: pg, Posts: pg, Comments: pg}
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
	}

	var denylist token.Denylist
	if cfg.Redis.Addr != "" {
		redisDenylist := token.NewRedisDenylist(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisDenylist.Close()
		denylist = redisDenylist
		log.WithField("addr", cfg.Redis.Addr).Info("token denylist enabled")
	}

	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	application, err := app.New(stores, app.Options{
		Tokens:     tokens,
		Denylist:   denylist,
		BcryptCost: cfg.Auth.BcryptCost,
	}, log)
	if err != nil {
		return err
	}

	authLimit := middleware.NewRateLimiter(float64(cfg.RateLimit.AuthRequestsPerSecond), cfg.RateLimit.AuthBurst, log)
	cleanupStop := make(chan struct{})
	defer close(cleanupStop)
	authLimit.StartCleanup(10*time.Minute, cleanupStop)

	handler, err := httpapi.NewHandler(application, httpapi.Options{
		Auth:      middleware.NewAuthMiddleware(tokens, denylist, log),
		CORS:      middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins),
		AuthLimit: authLimit,
		AuditMax:  cfg.Audit.MaxEntries,
		AuditFile: cfg.Audit.File,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	if err := application.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("application shutdown reported errors")
		}
	}()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("http server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}
