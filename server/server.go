package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/authguard/logger"
	"github.com/kbukum/authguard/observability"
	"github.com/kbukum/authguard/server/middleware"
)

// Server is an HTTP server backed by Gin. Middleware added with Use wraps
// the whole engine, so it runs for unmatched routes too.
type Server struct {
	httpServer  *http.Server
	engine      *gin.Engine
	middlewares []middleware.Middleware
	config      Config
	log         *logger.Logger
}

// New creates a new Server. cfg should already have defaults applied.
func New(cfg Config, log *logger.Logger) *Server {
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	s := &Server{
		engine: engine,
		config: cfg,
		log:    log.WithComponent("server"),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
		IdleTimeout:       time.Duration(cfg.IdleTimeout) * time.Second,
	}
	return s
}

// Engine returns the underlying Gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Use appends server-level middleware. The first added is the outermost.
// Call before Start or Handler.
func (s *Server) Use(mws ...middleware.Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// Handler returns the fully wrapped handler: middleware chain around the
// Gin engine, with h2c support.
func (s *Server) Handler() http.Handler {
	h := middleware.Chain(s.middlewares...)(s.engine)
	return h2c.NewHandler(h, &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          120 * time.Second,
	})
}

// RegisterHealth serves GET /health, aggregating the given checkers.
// Any component down turns the response into a 503.
func (s *Server) RegisterHealth(service, version string, checkers ...observability.HealthChecker) {
	s.engine.GET("/health", func(c *gin.Context) {
		sh := observability.CheckAll(c.Request.Context(), service, version, checkers...)
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, sh)
	})
}

// Start binds the port and begins serving. It returns once the listener is
// bound; serving continues in a goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer.Handler = s.Handler()

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	s.httpServer.Addr = listener.Addr().String()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Server error", logger.Fields("error", err.Error()))
		}
	}()

	s.log.Info("HTTP server started", logger.Fields("addr", s.httpServer.Addr))
	return nil
}

// Stop gracefully shuts down the server with a 5-second deadline.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields("error", err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("HTTP server shut down")
	return nil
}

// Addr returns the listen address; after Start it is the bound address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
