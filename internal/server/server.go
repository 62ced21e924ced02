// Package server is the report-archive HTTP service behind `repowatch serve`.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/repowatch/repowatch/internal/archive"
	"github.com/rs/zerolog"
)

type Options struct {
	ServiceName string
	Version     string
	Logger      zerolog.Logger
}

type Server struct {
	store   archive.Store
	opts    Options
	log     zerolog.Logger
	metrics *metrics
	router  *gin.Engine
}

// New wires the routes over store.
func New(store archive.Store, opts Options) *Server {
	if opts.ServiceName == "" {
		opts.ServiceName = "repowatch"
	}
	s := &Server{
		store:   store,
		opts:    opts,
		log:     opts.Logger.With().Str("component", "server").Logger(),
		metrics: newMetrics(),
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	scans := api.Group("/scans")
	scans.POST("", s.createScan)
	scans.GET("", s.listScans)
	scans.GET("/:id", s.getScan)
	scans.DELETE("/:id", s.deleteScan)
	api.GET("/totals", s.totals)
	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		took := time.Since(start)
		s.metrics.requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(took.Seconds())
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("took", took).
			Msg("request")
	}
}
