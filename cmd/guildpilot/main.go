package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildpilot/internal/analytics"
	"guildpilot/internal/bot"
	"guildpilot/internal/config"
	"guildpilot/internal/modules/audit"
	"guildpilot/internal/storage"
	"guildpilot/internal/webapi"

	"github.com/go-redis/redis/v8"
	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type Options struct {
	Config      string `short:"c" long:"config" description:"Path to the YAML config file" default:""`
	MigrateOnly bool   `long:"migrate-only" description:"Apply database migrations and exit"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if cfg.DatabaseURL != "" {
		pg, err := storage.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("storage init failed", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
		store = pg
	} else {
		logger.Warn("database_url not set, using in-memory storage")
		store = storage.NewMemory()
	}
	defer store.Close()

	if opts.MigrateOnly {
		logger.Info("migrations applied")
		return
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid redis_url", zap.Error(err))
		}
		rdb = redis.NewClient(redisOpts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		store = storage.NewCached(store, rdb, time.Duration(cfg.GuildCacheSeconds)*time.Second, logger)
	}

	auditLogger := audit.NewLogger(store, logger)
	analyticsService := analytics.New(store)

	botSvc, err := bot.New(cfg, logger, store, auditLogger, analyticsService)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}
	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.Int("slash_commands", len(botSvc.Registry().ApplicationCommands())))

	serveErr := make(chan error, 1)
	var health *http.Server
	switch {
	case cfg.Web.Enabled:
		ttl := time.Duration(cfg.Web.SessionTTLMinutes) * time.Minute
		var sessions webapi.SessionStore = webapi.NewMemorySessions(ttl)
		if rdb != nil {
			sessions = webapi.NewRedisSessions(rdb, ttl)
		}
		server := webapi.New(cfg.Web, store, analyticsService, sessions, webapi.NewDiscordOAuth(cfg.Web.OAuth), botSvc, logger)
		go func() {
			serveErr <- server.Serve(ctx)
		}()
	case cfg.Health.Enabled:
		health = &http.Server{Addr: cfg.Health.Addr, ReadHeaderTimeout: 10 * time.Second}
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		go func() {
			logger.Info("health endpoint enabled", zap.String("addr", cfg.Health.Addr))
			if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-serveErr:
		if err != nil {
			logger.Error("web api stopped", zap.Error(err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if health != nil {
		_ = health.Shutdown(shutdownCtx)
	}
	botSvc.Close(shutdownCtx)
}
