package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"wxbridge/internal/binding"
	"wxbridge/internal/callback"
	"wxbridge/internal/config"
	"wxbridge/internal/dispatch"
	"wxbridge/internal/forward"
	"wxbridge/internal/logger"
	"wxbridge/internal/push"
	"wxbridge/pkg/bootstrap"
	"wxbridge/pkg/health"
	"wxbridge/pkg/metrics"
	"wxbridge/pkg/middleware"
	"wxbridge/pkg/ratelimit"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	dbConnector *bootstrap.DatabaseConnector
	redisClient *redis.Client
	server      *http.Server
	router      *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("bridge-service")
	}
	return &App{
		config:      cfg,
		logger:      log,
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRedis(ctx); err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	metrics.RegisterGatewayMetrics()
	if a.config.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}
	if a.config.Push.Breaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) initRedis(ctx context.Context) error {
	client, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = client
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.logger))

	bindingTTL := time.Duration(a.config.Redis.BindingTTLSeconds) * time.Second
	bindings := binding.NewRepository(a.redisClient, bindingTTL)

	forwarder := forward.NewService(a.config.Forward, a.config.Bridge.BaseURL, a.logger)

	dispatchService := dispatch.NewService(bindings, forwarder, a.logger)
	dispatchHandler, err := dispatch.NewHandler(dispatchService, a.config.WeChat, a.logger)
	if err != nil {
		return err
	}
	dispatchHandler.RegisterRoutes(router)

	var sender callback.Sender = push.NewClient(a.config.WeChat, a.config.Push, a.logger)
	if a.config.Push.Breaker.Enabled {
		sender = push.NewBreakerSender(sender.(*push.Client), a.config.Push.Breaker)
	}

	callbackService := callback.NewService(bindings, sender, a.logger)
	callbackHandler := callback.NewHandler(callbackService, a.logger)

	var callbackMiddleware []gin.HandlerFunc
	if a.config.RateLimit.Enabled {
		rateLimitConfig := ratelimit.Config{
			RPS:             a.config.RateLimit.RPS,
			Burst:           a.config.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.RateLimit.MaxAge) * time.Second,
		}
		callbackMiddleware = append(callbackMiddleware, ratelimit.Middleware(rateLimitConfig))
		a.logger.Infow("Rate limiting enabled for callback routes", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}
	callbackHandler.RegisterRoutes(router, callbackMiddleware...)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewRedisChecker(a.redisClient))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(ctx, "HTTP server starting", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	a.logger.Info("Shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	errs = append(errs, a.dbConnector.Shutdown(a.redisClient)...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.logger.Info("Application exited successfully")
	return nil
}
