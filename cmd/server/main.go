package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	echoapi "go.pilab.hu/loginbroker/api/echo"
	"go.pilab.hu/loginbroker/config"
	"go.pilab.hu/loginbroker/domain"
	"go.pilab.hu/loginbroker/internal/broker"
	"go.pilab.hu/loginbroker/internal/metrics"
	"go.pilab.hu/loginbroker/internal/server"
	"go.pilab.hu/loginbroker/log"
	"go.pilab.hu/loginbroker/mongodb"
	"go.pilab.hu/loginbroker/store"
	"go.pilab.hu/loginbroker/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting login broker", map[string]interface{}{
		"http_addr":     cfg.HTTPAddr,
		"pending_store": cfg.PendingStore,
		"account_store": cfg.AccountStore,
		"session_store": cfg.SessionStore,
	})

	tracerProvider, err := tracing.InitTracerProvider("loginbroker")
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize tracing", err, nil)
	}
	metrics.Register(prometheus.DefaultRegisterer)

	// Provider registry. A broken registry is fatal: the process must not
	// serve logins with invalid provider configuration.
	providers := make([]domain.Provider, len(cfg.Providers))
	for i := range cfg.Providers {
		providers[i] = cfg.Providers[i]
		broker.ApplyDefaults(&providers[i])
	}
	registry, err := broker.NewRegistry(providers)
	if err != nil {
		appLogger.Fatal(ctx, "Invalid provider configuration", err, nil)
	}
	appLogger.Info(ctx, "Provider registry loaded", map[string]interface{}{
		"providers": registry.IDs(),
	})

	var redisClient *redis.Client
	if cfg.PendingStore == config.BackendRedis || cfg.SessionStore == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLogger.Fatal(ctx, "Failed to connect to redis", err, nil)
		}
	}

	var pendingStore domain.PendingLoginStore
	if cfg.PendingStore == config.BackendRedis {
		pendingStore = store.NewRedisPendingLoginStore(redisClient, cfg.RedisPrefix)
	} else {
		pendingStore = store.NewMemoryPendingLoginStore()
	}

	var accountStore domain.AccountStore
	if cfg.AccountStore == config.BackendMongoDB {
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to connect to mongodb", err, nil)
		}
		accountStore, err = mongodb.NewAccountRepository(ctx, db)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to initialize account repository", err, nil)
		}
	} else {
		accountStore = store.NewMemoryAccountStore()
	}

	var sessionStore domain.SessionStore
	if cfg.SessionStore == config.BackendRedis {
		sessionStore = store.NewRedisSessionStore(redisClient, cfg.RedisPrefix)
	} else {
		sessionStore = store.NewMemorySessionStore()
	}

	loginBroker := broker.NewLoginBroker(
		registry,
		broker.NewStateManager(pendingStore, cfg.StateTTL),
		broker.NewExchangeClient(nil, cfg.ExchangeTimeout, cfg.ExchangeBackoff),
		broker.NewNormalizer(nil, cfg.ExchangeTimeout),
		broker.NewSessionIssuer(accountStore, sessionStore, cfg.SessionTTL),
		cfg.RedirectBaseURL,
		appLogger,
	)

	loginAPI := echoapi.NewLoginAPI(loginBroker, cfg.PostLoginURL, cfg.LoginFailureURL, appLogger)
	httpServer := server.NewHTTPServer(cfg.HTTPAddr, appLogger, loginAPI)

	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.HTTPAddr})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(ctx, "HTTP server failed", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown failed", err, nil)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "Tracer provider shutdown failed", err, nil)
	}
	if closer, ok := pendingStore.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
