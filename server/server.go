// Package server exposes a postal.Client over HTTP.
package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/config"
)

// Server serves the libpostal operations of one client.
type Server struct {
	client   *postal.Client
	cfg      config.ServerConfig
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access logs and server lifecycle.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatherer serves /metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New builds the router. The client stays owned by the caller.
func New(client *postal.Client, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		client:   client,
		cfg:      cfg,
		logger:   zap.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), accessLog(s.logger), recovery(s.logger))

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/parse", s.handleParse)
	v1.POST("/expand", s.handleExpand)
	v1.POST("/normalize", s.handleNormalize)
	v1.POST("/normalized-tokens", s.handleNormalizedTokens)
	v1.POST("/tokenize", s.handleTokenize)
	v1.POST("/classify", s.handleClassify)
	v1.POST("/duplicates/toponym", s.handleToponymDuplicate)
	v1.POST("/duplicates/fuzzy/:kind", s.handleFuzzyDuplicate)
	v1.POST("/duplicates/:kind", s.handleDuplicate)
	v1.POST("/hashes/name", s.handleNameHashes)
	v1.POST("/hashes/near-dupe", s.handleNearDupeHashes)
	v1.POST("/place-languages", s.handlePlaceLanguages)
	return r
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("shutting down", zap.Duration("timeout", timeout))
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
