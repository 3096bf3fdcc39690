package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/report"
	"github.com/rezonia/tax-ledger/internal/signature/xml"
	"github.com/rezonia/tax-ledger/internal/store"
)

// Version is reported by /health
var Version = "1.0.0"

// DefaultMaxFiles caps files per upload
const DefaultMaxFiles = 100

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	MaxFiles       int
	Debug          bool

	// Batch limits applied to each upload
	ProcessTimeout time.Duration
	Concurrency    int
	MaxDocuments   int
	MaxFileBytes   int64

	Report report.Options
}

// Server represents the HTTP API server
type Server struct {
	config    *Config
	router    *gin.Engine
	pipeline  *processor.Pipeline
	store     *store.Store
	inspector *xml.Inspector
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// Option configures a Server
type Option func(*Server)

// WithPipeline sets the processing pipeline
func WithPipeline(p *processor.Pipeline) Option {
	return func(s *Server) {
		s.pipeline = p
	}
}

// WithStore sets the report store
func WithStore(st *store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics exposed at /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// NewServer creates a new API server. Without WithStore, reports are kept
// for 24h under the system temp dir.
func NewServer(config *Config, opts ...Option) (*Server, error) {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultMaxFiles
	}

	s := &Server{
		config:    config,
		inspector: xml.NewInspector(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.pipeline == nil {
		s.pipeline = processor.NewPipeline(
			processor.WithLogger(s.logger),
			processor.WithMetrics(s.metrics),
		)
	}
	if s.store == nil {
		st, err := store.New(filepath.Join(os.TempDir(), "tax-ledger"), 24*time.Hour, store.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.store = st
	}
	if s.config.Report == (report.Options{}) {
		s.config.Report = report.DefaultOptions()
	}
	s.config.Report.Logger = s.logger

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(s.logger))
	if config.MaxUploadBytes > 0 {
		router.Use(limitBody(config.MaxUploadBytes))
	}
	s.router = router

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/process", s.handleProcess)
		v1.GET("/download/:id", s.handleDownload)
		v1.POST("/cleanup", s.handleCleanup)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/info", s.handleInfo)
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails. Expired reports are swept while it runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.store.Run(ctx, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("address", s.config.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Version: Version,
		Reports: s.store.Stats(),
	})
}
