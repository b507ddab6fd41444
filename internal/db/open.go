package db

import (
	"context"
	"fmt"
	"strings"

	"naturedex/internal/game"
)

const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindMemory   = "memory"
)

type Store interface {
	game.Store
	Close() error
}

type Options struct {
	Kind        string
	DatabaseURL string
	SQLitePath  string
}

// Open returns a ready store of the requested kind, with its schema in
// place.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case KindPostgres, "":
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		pool, err := Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store := NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case KindSQLite:
		return OpenSQLite(ctx, opts.SQLitePath)
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", opts.Kind)
	}
}
