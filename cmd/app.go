package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/hmans/catalog/internal/auth"
	"github.com/hmans/catalog/internal/catalog"
	"github.com/hmans/catalog/internal/config"
	"github.com/hmans/catalog/internal/library"
	"github.com/hmans/catalog/internal/pubsub"
	"github.com/hmans/catalog/internal/store/memory"
	"github.com/hmans/catalog/internal/store/sqlstore"
)

// application wires the store, event bus and catalog service for a command.
type application struct {
	store   library.Store
	events  *pubsub.Bus[*library.Book]
	tokens  *auth.Tokens
	catalog *catalog.Service
}

func openApplication(ctx context.Context, cfg *config.Config) (*application, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	ttl, err := cfg.TTL()
	if err != nil {
		store.Close()
		return nil, err
	}
	secret := cfg.Auth.Secret
	if secret == "" {
		// Tokens issued with a throwaway secret are only good for this process.
		secret = ulid.Make().String()
		slog.Debug("no auth secret configured, using a temporary one")
	}
	tokens, err := auth.NewTokens(secret, ttl)
	if err != nil {
		store.Close()
		return nil, err
	}

	events := pubsub.New[*library.Book]()
	svc, err := catalog.New(store, events, tokens)
	if err != nil {
		events.Close()
		store.Close()
		return nil, err
	}
	svc.SetLogger(slog.Default())

	n, err := svc.Reindex(ctx)
	if err != nil {
		svc.Close()
		events.Close()
		store.Close()
		return nil, fmt.Errorf("building search index: %w", err)
	}
	slog.Debug("search index ready", "books", n)

	return &application{
		store:   store,
		events:  events,
		tokens:  tokens,
		catalog: svc,
	}, nil
}

func openStore(ctx context.Context, sc config.StorageConfig) (library.Store, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite, config.DriverPostgres:
		s, err := sqlstore.Open(ctx, sc.Driver, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", sc.Driver, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
}

// Close ends subscriptions and releases the index and the store.
func (a *application) Close() error {
	a.events.Close()
	return errors.Join(a.catalog.Close(), a.store.Close())
}
