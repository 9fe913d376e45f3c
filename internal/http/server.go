// Package http serves the tutoring API over HTTP.
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/logging"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// Config holds HTTP server configuration.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
	// BodyLimit uses echo's size syntax, e.g. "2M".
	BodyLimit string
	// AuthToken, when set, is required as a bearer token on /api/v1.
	AuthToken string
	Version   string
}

// Classifier routes queries.
type Classifier interface {
	Classify(ctx context.Context, query string, opts classifier.Options) (classifier.Result, error)
	Stats() classifier.Stats
}

// Embedder embeds text through the cache pipeline.
type Embedder interface {
	Embed(ctx context.Context, text string) (embeddings.Result, error)
	EmbedBatch(ctx context.Context, texts []string) ([]embeddings.Result, error)
}

// Index is the vector index.
type Index interface {
	AddDocuments(ctx context.Context, collection string, docs []vectorstore.Document) ([]string, error)
	UpdateDocuments(ctx context.Context, collection string, docs []vectorstore.Document) error
	DeleteDocuments(ctx context.Context, collection string, ids []string) error
	Search(ctx context.Context, collection, query string, opts vectorstore.SearchOptions) ([]vectorstore.SearchResult, error)
	Count(ctx context.Context, collection string) (int, error)
	Ready() bool
}

// Tutor runs tutoring sessions.
type Tutor interface {
	Start(ctx context.Context, userID, topic string, level tutor.Level) (*tutor.Reply, error)
	Interact(ctx context.Context, sessionID, message string) (*tutor.Reply, error)
	GetSession(ctx context.Context, sessionID string) (*tutor.State, error)
	EndSession(ctx context.Context, sessionID string) (*tutor.Reply, error)
}

// Deps are the services behind the API. Nil services leave their routes
// answering 503.
type Deps struct {
	Classifier Classifier
	Embedder   Embedder
	Index      Index
	Tutor      Tutor
	// Gatherer serves /metrics. Defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	logger  *zap.Logger
	config  *Config
	metrics *HTTPMetrics
}

// NewServer creates the server and registers routes.
func NewServer(cfg *Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Addr: ":8080"}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = errorHandler(logger)

	s := &Server{
		echo:    e,
		deps:    deps,
		logger:  logger,
		config:  cfg,
		metrics: NewHTTPMetrics(logger),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(s.metrics.MetricsMiddleware())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.RequestTimeout,
		}))
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if s.config.AuthToken != "" {
		v1.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, _ echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(s.config.AuthToken)) == 1, nil
			},
			ErrorHandler: func(error, echo.Context) error {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			},
		}))
	}

	v1.POST("/classify", s.handleClassify)
	v1.GET("/classifier/stats", s.handleClassifierStats)

	v1.POST("/embed", s.handleEmbed)
	v1.POST("/embed/batch", s.handleEmbedBatch)

	v1.POST("/collections/:name/search", s.handleSearch)
	v1.POST("/collections/:name/documents", s.handleAddDocuments)
	v1.PUT("/collections/:name/documents", s.handleUpdateDocuments)
	v1.DELETE("/collections/:name/documents", s.handleDeleteDocuments)
	v1.GET("/collections/:name/count", s.handleCount)

	v1.POST("/sessions", s.handleStartSession)
	v1.POST("/sessions/:id/messages", s.handleInteract)
	v1.GET("/sessions/:id", s.handleGetSession)
	v1.DELETE("/sessions/:id", s.handleEndSession)
}

// requestLogger logs each request and carries the request id into the
// handler context.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		reqID := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), reqID)))

		err := next(c)
		if err != nil {
			// Resolve the status before logging it.
			c.Error(err)
		}

		s.logger.Info("http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", reqID),
		)
		return nil
	}
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	if err := s.echo.Start(s.config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
