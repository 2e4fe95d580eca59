package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/glimpse/internal/config"
	"github.com/MrSnakeDoc/glimpse/internal/flow"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver"
	"github.com/MrSnakeDoc/glimpse/internal/httpserver/deps"
	"github.com/MrSnakeDoc/glimpse/internal/identify"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
	"github.com/MrSnakeDoc/glimpse/internal/redis"
	"github.com/MrSnakeDoc/glimpse/internal/scheduler"
	redisstore "github.com/MrSnakeDoc/glimpse/internal/store/redis"
	"github.com/MrSnakeDoc/glimpse/internal/utils"
	"github.com/MrSnakeDoc/glimpse/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	janitor     *scheduler.SessionJanitor
}

// New wires storage, the identification flow and the HTTP server. When redis
// is configured it must be reachable within its connect timeout.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	var (
		storage     kv.Store
		redisClient *goredis.Client
	)

	if cfg.UsesRedis() {
		client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		storage = redisstore.NewKV(client)
	} else {
		loggerClient.Warn("GLIMPSE_REDIS_ADDR not set, favourites are kept in memory and lost on restart")
		storage = kv.NewMemory()
	}

	if cfg.WebhookURL == "" {
		loggerClient.Warn("GLIMPSE_WEBHOOK_URL not set, identification requests will fail")
	}

	m := metrics.New()
	client := identify.NewClient(cfg.WebhookURL, cfg.WebhookTimeout, loggerClient)

	janitor := scheduler.NewSessionJanitor(storage, loggerClient, cfg.GCInterval, cfg.SessionIdle)

	d := deps.Deps{
		Logger:               loggerClient,
		StartTime:            time.Now(),
		Version:              version.Version,
		Commit:               version.Commit,
		BuildDate:            version.BuildDate,
		GoVersion:            version.GoVersion,
		TimeNow:              time.Now,
		AllowedHosts:         cfg.AllowedHosts,
		AllowedCIDRS:         cfg.AllowedCIDRS,
		TrustProxy:           cfg.TrustProxy,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
		Storage:              storage,
		RedisClient:          redisClient,
		CookieSecure:         cfg.CookieSecure,
		Flow:                 flow.New(client, m, loggerClient, cfg.PlaceholderImage),
		WebhookConfigured:    client.Configured(),
		PlaceholderImage:     cfg.PlaceholderImage,
		MaxImageBytes:        cfg.MaxImageBytes,
		IdentifyBurst:        cfg.IdentifyBurst,
		IdentifyRefillPerMin: cfg.IdentifyRefillPerMin,
		Metrics:              m,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		janitor:     janitor,
	}, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting glimpse %s on %s", version.String(), a.cfg.ListenPort)

	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session janitor: %w", err)
	}
	a.logger.Info("session janitor started",
		logger.Duration("interval", a.cfg.GCInterval),
		logger.Duration("idle", a.cfg.SessionIdle))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.janitor.Stop()
		a.closeRedis()
		return err
	}

	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.closeRedis()
	a.logger.Info("✅ glimpse stopped cleanly")
	return nil
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	utils.CloseOrLog(a.redisClient, a.logger, "redis")
}
