// Package server exposes the task service over HTTP: a JSON API for
// programmatic clients and server-rendered HTML pages for browsers.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

const (
	maxBodySize            = 1 << 20 // 1MB
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// TaskService is the subset of the task service used by the handlers.
type TaskService interface {
	List(ctx context.Context) ([]task.Task, error)
	Get(ctx context.Context, id string) (task.Task, error)
	Create(ctx context.Context, draft task.Draft) (task.Task, error)
	Update(ctx context.Context, id string, patch task.Patch) (task.Task, error)
	Delete(ctx context.Context, id string) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logging.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDefaultSort sets the board ordering used when a request names none.
func WithDefaultSort(mode view.SortMode) Option {
	return func(s *Server) {
		if mode != "" {
			s.defaultSort = mode
		}
	}
}

// WithShutdownTimeout bounds how long Serve waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// Server is the taskboard HTTP server.
type Server struct {
	svc             TaskService
	router          *gin.Engine
	logger          *log.Logger
	defaultSort     view.SortMode
	shutdownTimeout time.Duration
}

// New creates a server with all routes registered. The gin mode is left to
// the caller.
func New(svc TaskService, opts ...Option) (*Server, error) {
	s := &Server{
		svc:             svc,
		logger:          log.New(io.Discard),
		defaultSort:     view.DefaultSort,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	router := gin.New()
	router.Use(requestLogger(s.logger), recovery(s.logger), securityHeaders())
	router.SetHTMLTemplate(tmpl)
	router.NoRoute(s.handleNoRoute)
	s.router = router

	// HTML pages
	router.GET("/", s.handleBoard)
	router.GET("/static/app.css", handleCSS)
	router.GET("/healthz", handleHealth)
	ui := router.Group("/ui/tasks")
	{
		ui.POST("", s.handleCreateForm)
		ui.POST("/:id/toggle", s.handleToggleForm)
		ui.GET("/:id/delete", s.handleConfirmDelete)
		ui.POST("/:id/delete", s.handleDeleteForm)
	}

	// JSON API, mounted at both paths
	for _, prefix := range []string{"/tasks", "/api/tasks"} {
		api := router.Group(prefix, limitBody(maxBodySize))
		{
			api.GET("", s.handleList)
			api.POST("", s.handleCreate)
			api.PUT("", s.handleUpdate)
			api.DELETE("", s.handleDelete)
		}
	}

	return s, nil
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe listens on addr and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func handleCSS(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/css; charset=utf-8", appCSS)
}

