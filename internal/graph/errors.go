package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/catalog"
)

// Error codes reported in extensions.code.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// ErrorPresenter returns a presenter that tags every error with a code.
// Errors that are neither authentication nor validation failures are logged
// and replaced with a generic message.
func ErrorPresenter(logger *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		gqlErr := graphql.DefaultErrorPresenter(ctx, err)

		var verr *catalog.ValidationError
		switch {
		case errors.As(err, &verr):
			gqlErr.Message = verr.Message
			setExtension(gqlErr, "code", CodeBadUserInput)
			setExtension(gqlErr, "invalidArgs", verr.Value)
			if verr.Err != nil {
				setExtension(gqlErr, "error", verr.Err.Error())
			}

		case errors.Is(err, catalog.ErrNotAuthenticated),
			errors.Is(err, catalog.ErrInvalidCredentials),
			errors.Is(err, auth.ErrInvalidToken):
			setExtension(gqlErr, "code", CodeUnauthenticated)

		case gqlErr.Extensions["code"] != nil:
			// Parse and validation errors from gqlgen already carry a code.

		default:
			logger.ErrorContext(ctx, "resolver failed", "path", gqlErr.Path.String(), "error", err)
			gqlErr.Message = "internal server error"
			setExtension(gqlErr, "code", CodeInternal)
		}
		return gqlErr
	}
}

// RecoverFunc logs a resolver panic and turns it into an internal error.
func RecoverFunc(logger *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p any) error {
		logger.ErrorContext(ctx, "resolver panicked", "panic", p)
		return errors.New("internal server error")
	}
}

func setExtension(err *gqlerror.Error, key string, value any) {
	if err.Extensions == nil {
		err.Extensions = make(map[string]any)
	}
	err.Extensions[key] = value
}
