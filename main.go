package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/interntrack/tracker/handlers"
	"github.com/interntrack/tracker/internal/application/handler"
	"github.com/interntrack/tracker/internal/application/service"
	"github.com/interntrack/tracker/internal/bootstrap"
	"github.com/interntrack/tracker/internal/config"
	"github.com/interntrack/tracker/pkg/logger"
	"github.com/interntrack/tracker/pkg/metrics"
	"github.com/interntrack/tracker/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// unlimited paths are never rate limited.
var unlimited = []string{"/health", "/ready", "/metrics", "/swagger"}

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	logger.Infof("config loaded: backend=%s key=%s archive=%v rate_limit=%v",
		cfg.Storage.Backend, cfg.Storage.Key, cfg.MinIO.Enabled(), cfg.RateLimit.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, closeStore, err := bootstrap.Tracker(ctx, cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warnf("closing store: %v", err)
		}
	}()

	var limiterRedis *redis.Client
	if cfg.RateLimit.Enabled && cfg.RateLimit.UseRedis {
		limiterRedis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := limiterRedis.Ping(ctx).Err(); err != nil {
			logger.Warnf("rate limiter redis unavailable (%s), using in-memory limiter: %v", cfg.Redis.Addr(), err)
			_ = limiterRedis.Close()
			limiterRedis = nil
		} else {
			defer limiterRedis.Close()
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, tr, limiterRedis)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("tracker listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

func newRouter(cfg *config.Config, tr *service.Tracker, limiterRedis *redis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && limiterRedis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(limiterRedis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win, unlimited...))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst, unlimited...))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready once the collection is loaded; reports whether an import is pending
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"backend":   cfg.Storage.Backend,
			"records":   len(tr.Get()),
			"version":   tr.Version(),
			"importing": tr.Importing(),
			"uptime":    time.Since(startTime).String(),
		})
	})

	handlers.RegisterSwagger(r)
	handler.RegisterApplicationRoutes(r, tr)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
