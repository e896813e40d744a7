package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/gin-gonic/gin"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/graph"
)

var errAuthUnavailable = errors.New("authentication unavailable")

// authenticate resolves the Authorization header once per request and stores
// the identity on the request context. Bad tokens are rejected before any
// resolver runs.
func authenticate(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			abortWithError(c, http.StatusUnauthorized, err.Error(), graph.CodeUnauthenticated)
			return
		case err != nil:
			_ = c.Error(err)
			abortWithError(c, http.StatusInternalServerError, errAuthUnavailable.Error(), graph.CodeInternal)
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, &graphql.Response{
		Errors: gqlerror.List{{
			Message:    message,
			Extensions: map[string]any{"code": code},
		}},
	})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			logger.Error("request failed", append(attrs, "error", c.Errors.String())...)
			return
		}
		logger.Debug("request", attrs...)
	}
}

func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && originListed(origin, origins) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
