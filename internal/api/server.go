// Package api exposes newsbell's durable state over HTTP for presentation
// clients: the cached article list, checkpoints, the unread counter,
// notification click-through, manual refresh, recent events and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/abelbrown/newsbell/internal/coord"
	"github.com/abelbrown/newsbell/internal/deliver"
	"github.com/abelbrown/newsbell/internal/logging"
	"github.com/abelbrown/newsbell/internal/metrics"
	"github.com/abelbrown/newsbell/internal/model"
	"github.com/abelbrown/newsbell/internal/otel"
)

// Server timeouts.
const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Store is the read side of the durable state.
type Store interface {
	Articles(ctx context.Context, limit int) ([]model.Article, error)
	Article(ctx context.Context, id string) (model.Article, error)
	Checkpoints(ctx context.Context) (model.Checkpoints, error)
}

// Unread is the unread counter.
type Unread interface {
	Value(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Refresher triggers cycles outside the timer.
type Refresher interface {
	RunNow(ctx context.Context) (coord.Result, error)
	Running() bool
}

// Server serves the API. Only Store and Unread are required.
type Server struct {
	Store   Store
	Unread  Unread
	Refresh Refresher
	Links   *deliver.Links
	Events  *otel.RingBuffer
	// Enabled returns the enabled flag per source; nil lists every source.
	Enabled  func() map[string]bool
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
	Now      func() time.Time

	// base outlives requests; background refreshes run under it.
	base context.Context
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logging.OrNop(s.Logger)))

	r.GET("/healthz", s.health)
	r.GET("/articles", s.listArticles)
	r.GET("/articles/:id", s.getArticle)
	r.GET("/checkpoints", s.checkpoints)
	r.GET("/unread", s.unread)
	r.POST("/unread/reset", s.resetUnread)
	r.POST("/refresh", s.refresh)
	r.GET("/notifications/:id", s.openNotification)
	r.GET("/events", s.events)
	if s.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(s.Gatherer)))
	}
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.base = ctx
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.OrNop(s.Logger).Info("api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return <-errCh
}

// requestLogger logs one line per request.
func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"dur", time.Since(start),
		}
		if len(c.Errors) > 0 {
			logger.Error("http request with errors", append(kv, "errors", c.Errors.String())...)
			return
		}
		logger.Debug("http request", kv...)
	}
}

func (s *Server) baseContext() context.Context {
	if s.base != nil {
		return s.base
	}
	return context.Background()
}
