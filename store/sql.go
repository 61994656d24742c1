package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the insert statements for one SQL driver.
type Dialect struct {
	Name        string
	insertMake  string
	insertModel string
}

var (
	Postgres = Dialect{
		Name:        "postgres",
		insertMake:  `INSERT INTO makes (id, make_id, make_name) VALUES ($1, $2, $3);`,
		insertModel: `INSERT INTO models (id, make_id, model_name, nhtsa_model_id) VALUES ($1, $2, $3, $4);`,
	}
	SQLite = Dialect{
		Name:        "sqlite3",
		insertMake:  `INSERT INTO makes (id, make_id, make_name) VALUES (?, ?, ?);`,
		insertModel: `INSERT INTO models (id, make_id, model_name, nhtsa_model_id) VALUES (?, ?, ?, ?);`,
	}
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS makes (
  id          TEXT PRIMARY KEY,
  make_id     INTEGER UNIQUE,
  make_name   TEXT NOT NULL,
  created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS models (
  id              TEXT PRIMARY KEY,
  make_id         INTEGER REFERENCES makes (make_id),
  model_name      TEXT NOT NULL,
  nhtsa_model_id  TEXT,
  created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// SQLStore inserts rows through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenPostgres connects to a pre-provisioned Postgres database.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewSQLStore(db, Postgres), nil
}

// OpenSQLite opens (or creates) a local SQLite file and makes sure the
// makes and models tables exist.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases alive across statements
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA temp_store=MEMORY;",
	} {
		if _, err = db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return NewSQLStore(db, SQLite), nil
}

func (s *SQLStore) InsertMake(ctx context.Context, row MakeRow) error {
	_, err := s.db.ExecContext(ctx, s.dialect.insertMake, row.ID.String(), row.MakeID, row.MakeName)
	return err
}

func (s *SQLStore) InsertModel(ctx context.Context, row ModelRow) error {
	nhtsaID := sql.NullString{String: row.NHTSAModelID, Valid: row.NHTSAModelID != ""}
	_, err := s.db.ExecContext(ctx, s.dialect.insertModel, row.ID.String(), row.MakeID, row.ModelName, nhtsaID)
	return err
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
