// Package server exposes the catalog GraphQL API over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/graph"
	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/pubsub"
)

const graphqlPath = "/graphql"

// Options configures a Server.
type Options struct {
	Port       int
	Playground bool
	// Origins allowed for CORS and websocket upgrades. "*" allows any.
	Origins []string

	Catalog *catalog.Service
	Events  *pubsub.Bus[*library.Book]
	Gate    *auth.Gate
	Logger  *slog.Logger
}

// Server serves the GraphQL endpoint, the playground and a health check.
type Server struct {
	opts   Options
	logger *slog.Logger
	router *gin.Engine
}

// New builds the router. It does not start listening.
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil || opts.Events == nil || opts.Gate == nil {
		return nil, errors.New("server: catalog, events and gate are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{opts: opts, logger: logger}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler, for use in tests or behind another mux.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	if len(s.opts.Origins) > 0 {
		r.Use(cors(s.opts.Origins))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	es := graph.NewExecutableSchema(graph.Config{
		Resolvers: &graph.Resolver{Catalog: s.opts.Catalog, Events: s.opts.Events},
	})
	gql := gin.WrapH(newGraphQLHandler(es, s.opts.Gate, s.opts.Origins, s.logger))

	api := r.Group(graphqlPath, authenticate(s.opts.Gate))
	api.POST("", gql)
	api.GET("", gql)
	api.OPTIONS("", gql)

	if s.opts.Playground {
		r.GET("/", gin.WrapH(playgroundHandler()))
	}
	return r
}

// Run listens on the configured port until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. Shutting down closes
// the event bus, which ends every open subscription.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// No write timeout: subscriptions keep responses open.
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	// Open subscription streams only end when their event channel closes,
	// so Shutdown would otherwise wait for them until it times out.
	srv.RegisterOnShutdown(s.opts.Events.Close)

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String(), "graphql", graphqlPath)
		serverErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped")
		return nil
	}
}
