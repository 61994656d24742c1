// Package store writes imported makes and models into the destination database.
//
// Three sinks are supported, chosen by the scheme of the database URL:
// a Postgres connection (lib/pq), a local SQLite file (go-sqlite3) and the
// PostgREST endpoint of a hosted database. Every insert is a single row and
// is not wrapped in a transaction; a failed row never affects the others.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrUnsupportedScheme is returned by Open for URLs it cannot map to a sink.
var ErrUnsupportedScheme = errors.New("store: unsupported database url scheme")

// MakeRow is one row of the makes table.
type MakeRow struct {
	ID       uuid.UUID `json:"id"`
	MakeID   int       `json:"make_id"`
	MakeName string    `json:"make_name"`
}

// ModelRow is one row of the models table. NHTSAModelID is empty when
// vPIC did not report a model id.
type ModelRow struct {
	ID           uuid.UUID `json:"id"`
	MakeID       int       `json:"make_id"`
	ModelName    string    `json:"model_name"`
	NHTSAModelID string    `json:"nhtsa_model_id,omitempty"`
}

type Store interface {
	InsertMake(ctx context.Context, row MakeRow) error
	InsertModel(ctx context.Context, row ModelRow) error
	Close() error
}

// Open returns the sink for rawURL. key is only used by the REST sink.
func Open(ctx context.Context, rawURL, key string) (Store, error) {
	scheme, rest, found := strings.Cut(rawURL, "://")
	if !found {
		return OpenSQLite(ctx, rawURL)
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return OpenPostgres(ctx, rawURL)
	case "sqlite", "sqlite3", "file":
		return OpenSQLite(ctx, rest)
	case "http", "https":
		return NewRESTStore(rawURL, key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}
