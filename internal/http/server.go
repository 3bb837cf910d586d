package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/churn"
	"github.com/jmehdipour/crm-analytics/internal/config"
	"github.com/jmehdipour/crm-analytics/internal/http/middleware"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
	"github.com/jmehdipour/crm-analytics/internal/repository"
)

// Deps are the backends behind the API. Facts, Runs and Redis may be nil.
type Deps struct {
	Store churn.Store
	Facts repository.RunFactsRepository
	Runs  Publisher
	Redis *redis.Client
}

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, d Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.WARN)
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(cfg.HTTP.APIKeys)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          d.Redis,
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "crm:rl:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/churn/:schema/score", scoreHandler(d.Store))
	v1.GET("/churn/:schema/model", modelHandler(d.Store))
	v1.GET("/reports/churn/:schema/performance", listPerformanceHandler(d.Facts))
	v1.POST("/runs", runHandler(d.Runs))

	return &Server{e: e}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.e }

func (s *Server) Start(addr string) error {
	logger.Log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
