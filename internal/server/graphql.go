package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/graph"
)

func newGraphQLHandler(es graphql.ExecutableSchema, gate *auth.Gate, origins []string, logger *slog.Logger) *handler.Server {
	srv := handler.New(es)

	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: 10 * time.Second,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(r, origins)
			},
		},
		// Browsers can't set headers on websocket upgrades, so subscriptions
		// authenticate through the connection_init payload instead.
		InitFunc: func(ctx context.Context, payload transport.InitPayload) (context.Context, *transport.InitPayload, error) {
			header, _ := payload["authorization"].(string)
			if header == "" {
				header, _ = payload["Authorization"].(string)
			}
			if header == "" {
				return ctx, &payload, nil
			}
			ctx, err := gate.Authenticate(ctx, header)
			if err != nil {
				logger.Debug("websocket authentication failed", "error", err)
				return ctx, nil, err
			}
			return ctx, &payload, nil
		},
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.SSE{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New[*ast.QueryDocument](1000))
	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{Cache: lru.New[string](100)})

	srv.SetErrorPresenter(graph.ErrorPresenter(logger))
	srv.SetRecoverFunc(graph.RecoverFunc(logger))

	return srv
}

func playgroundHandler() http.Handler {
	return playground.Handler("Library catalog", graphqlPath)
}

// originAllowed permits requests without an Origin header, same-host origins
// and configured origins.
func originAllowed(r *http.Request, origins []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return originListed(origin, origins)
}

func originListed(origin string, origins []string) bool {
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
