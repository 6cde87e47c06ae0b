// Package httpapi exposes the phishing service and the ignore list over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/config"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/metrics"
)

const maxRequestBytes = 1 << 20

// Server is the HTTP front end. It satisfies ports.EmailFilter.
type Server struct {
	handler  *Handler
	cfg      config.HTTPConfig
	metrics  bool
	logger   *zap.Logger
	router   *gin.Engine
	srv      *http.Server
	stop     chan struct{}
	stopOnce sync.Once
}

// NewServer creates the HTTP server and its routes.
func NewServer(analyzer Analyzer, trust TrustAdmin, status core.RulesStatus, cfg config.HTTPConfig, withMetrics bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		handler: NewHandler(analyzer, trust, status, logger),
		cfg:     cfg,
		metrics: withMetrics,
		logger:  logger,
		stop:    make(chan struct{}),
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Dev-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
		c.Next()
	})

	if s.metrics {
		router.Use(metrics.PrometheusMiddleware())
		router.GET("/metrics", metrics.GinHandler())
	}
	router.Use(requestLogger(s.logger))

	router.GET("/healthz", s.handler.Health)

	v1 := router.Group("/api/v1")
	v1.Use(requireDevToken(s.cfg.DevToken))
	v1.Use(RateLimiter(s.cfg.RatePerMinute, s.stop))
	analyzeRate := 0
	if s.cfg.RatePerMinute > 0 {
		analyzeRate = max(1, s.cfg.RatePerMinute/2)
	}
	s.handler.Register(v1, RateLimiter(analyzeRate, s.stop))

	return router
}

// Start starts serving in the background
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API starting", zap.String("address", s.cfg.ListenAddress))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// ProcessEmail analyzes an email without going through HTTP
func (s *Server) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.Verdict, error) {
	if email == nil {
		return nil, fmt.Errorf("email is nil")
	}
	return s.handler.analyzer.Analyze(ctx, *email)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
