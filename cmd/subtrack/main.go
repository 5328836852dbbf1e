package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/subtrack/internal/adapter/backend"
	cacheadapter "github.com/smallbiznis/subtrack/internal/adapter/cache"
	"github.com/smallbiznis/subtrack/internal/config"
	httptransport "github.com/smallbiznis/subtrack/internal/http"
	"github.com/smallbiznis/subtrack/internal/http/handler"
	"github.com/smallbiznis/subtrack/internal/metrics"
	apimiddleware "github.com/smallbiznis/subtrack/internal/middleware"
	"github.com/smallbiznis/subtrack/internal/repository"
	"github.com/smallbiznis/subtrack/internal/server"
	"github.com/smallbiznis/subtrack/internal/service"
	gmailsvc "github.com/smallbiznis/subtrack/internal/service/gmail"
	"github.com/smallbiznis/subtrack/internal/telemetry"
)

func main() {
	fx.New(appOptions()).Run()
}

func appOptions() fx.Option {
	return fx.Options(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			metrics.New,
			cacheadapter.NewMemoryStore,
			newArtifactStore,
			newSettingsStore,
			newBackendClient,
			newProber,
			newInitiator,
			newCallbackHandler,
			newDashboardService,
			newGmailHandler,
			handler.NewDashboardHandler,
			newSessionHandler,
			newHandlers,
			newRateLimiter,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, logStartup, startHTTPServer),
	)
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}

func newArtifactStore(lc fx.Lifecycle, cfg config.Config, memory *cacheadapter.MemoryStore, logger *zap.Logger) (repository.ArtifactStore, error) {
	if cfg.ArtifactStore != "redis" {
		return memory, nil
	}
	client, err := newRedisClient(lc, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("artifact store: redis", zap.String("addr", cfg.RedisAddr))
	return cacheadapter.NewRedisArtifactStore(client), nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newSettingsStore(memory *cacheadapter.MemoryStore) repository.SettingsStore {
	return memory
}

func newBackendClient(cfg config.Config, m *metrics.Metrics) *backend.HTTPClient {
	return backend.NewHTTPClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.BackendTimeout}, m)
}

func newProber(client *backend.HTTPClient, cfg config.Config, m *metrics.Metrics, logger *zap.Logger) *backend.Prober {
	return backend.NewProber(client, cfg.ProbeTimeout, m, logger)
}

func newInitiator(cfg config.Config, prober *backend.Prober, client *backend.HTTPClient, node *snowflake.Node, m *metrics.Metrics, logger *zap.Logger) *gmailsvc.Initiator {
	return gmailsvc.NewInitiator(cfg, prober, client, node, m, logger)
}

func newCallbackHandler(cfg config.Config, prober *backend.Prober, client *backend.HTTPClient, artifacts repository.ArtifactStore, m *metrics.Metrics, logger *zap.Logger) *gmailsvc.CallbackHandler {
	return gmailsvc.NewCallbackHandler(prober, client, artifacts, cfg.ArtifactTTL, m, logger)
}

func newDashboardService(client *backend.HTTPClient, logger *zap.Logger) *service.DashboardService {
	return service.NewDashboardService(client, logger)
}

func newGmailHandler(initiator *gmailsvc.Initiator, callbacks *gmailsvc.CallbackHandler, client *backend.HTTPClient, logger *zap.Logger) *handler.GmailHandler {
	return handler.NewGmailHandler(initiator, callbacks, client, logger)
}

func newSessionHandler(cfg config.Config, client *backend.HTTPClient, logger *zap.Logger) *handler.SessionHandler {
	return handler.NewSessionHandler(cfg, client, logger)
}

func newHandlers(gmail *handler.GmailHandler, dashboard *handler.DashboardHandler, sessions *handler.SessionHandler) httptransport.Handlers {
	return httptransport.Handlers{Gmail: gmail, Dashboard: dashboard, Session: sessions}
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func logStartup(cfg config.Config, logger *zap.Logger) {
	if !cfg.GoogleClientConfigured() {
		logger.Warn("GOOGLE_CLIENT_ID not set; direct Gmail connection is disabled while the backend is down")
	}
	logger.Info("subtrack web configured",
		zap.String("env", cfg.Environment),
		zap.String("api_base_url", cfg.APIBaseURL),
		zap.String("public_url", cfg.PublicURL),
		zap.String("artifact_store", cfg.ArtifactStore),
	)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
