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
	"github.com/spf13/cobra"
	compustathttp "github.com/wyfcoding/datacollector/internal/compustat/interfaces/http"
	"github.com/wyfcoding/datacollector/pkg/logger"
	"github.com/wyfcoding/datacollector/pkg/middleware"
	"github.com/wyfcoding/datacollector/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      a.router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(context.Background(), "shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error(context.Background(), "server exited with error", "error", err)
		return err
	}
	return nil
}

func (a *app) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if a.cfg.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinMetricsMiddleware(a.metrics),
	)

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := a.db.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": a.cfg.ServiceName})
	})
	if a.cfg.Metrics.Enabled {
		r.GET(a.cfg.Metrics.Path, gin.WrapH(a.metrics.Handler()))
	}

	api := r.Group("/api")
	if a.cfg.RateLimit.Enabled && a.redis != nil {
		limit := ratelimit.PerSecond(a.cfg.RateLimit.QPS, a.cfg.RateLimit.Burst)
		api.Use(middleware.RateLimitMiddleware(ratelimit.NewRedisRateLimiter(a.redis), limit))
	}
	compustathttp.NewCompustatHandler(a.compustatService()).RegisterRoutes(api)
	return r
}
