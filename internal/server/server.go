package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"infometis/internal/api"
	"infometis/internal/imagecache"
	"infometis/internal/orchestrator"
	"infometis/pkg/logging"
)

const (
	subsystem = "Server"

	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second
	// DefaultShutdownTimeout bounds the graceful shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Platform is the orchestrator surface exposed over HTTP.
type Platform interface {
	Components() []string
	DeployComponent(ctx context.Context, spec api.ComponentSpec) (*api.ComponentDeployment, error)
	CleanupComponent(ctx context.Context, name string, env api.Environment, cfg map[string]any) error
	ComponentStatus(ctx context.Context, name string, env api.Environment, cfg map[string]any) (*api.StatusReport, error)
	DeployStack(ctx context.Context, spec api.StackSpec) (*api.StackDeployment, error)
	FindStack(ctx context.Context, idOrName string) (*api.StackDeployment, error)
	ListStacks(ctx context.Context) ([]*api.StackDeployment, error)
	CleanupStack(ctx context.Context, id string) error
	GetStackStatus(ctx context.Context, id string) (*api.StackStatus, error)
	Status(ctx context.Context) (*orchestrator.Status, error)
}

// ImageCache caches images locally and loads them into the cluster.
type ImageCache interface {
	CacheAll(ctx context.Context, images []string) error
	TransferAll(ctx context.Context) error
	List() ([]imagecache.Entry, error)
}

// StackSource resolves stack definitions by name when a deploy request has
// no body.
type StackSource interface {
	Load(name string) (api.StackSpec, error)
}

// Config configures the HTTP server.
type Config struct {
	Host     string
	Port     int
	Platform Platform
	Images   ImageCache
	// CacheImages is the image list cached by POST /cache/images.
	CacheImages []string
	Stacks      StackSource
	// CORSOrigins defaults to all origins.
	CORSOrigins []string
}

// Server serves the orchestrator over HTTP.
type Server struct {
	cfg    Config
	router *gin.Engine
}

// New builds the router. Platform is required; Images and Stacks are
// optional and the routes using them answer 500 when they are missing.
func New(cfg Config) (*Server, error) {
	if cfg.Platform == nil {
		return nil, errors.New("server: platform is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"*"}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"*"}
	router.Use(cors.New(corsCfg))

	s := &Server{cfg: cfg, router: router}
	s.setupRoutes()
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	host := s.cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := s.cfg.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info(subsystem, "Listening on http://%s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info(subsystem, "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
