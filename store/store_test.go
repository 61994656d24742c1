package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPostgresStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, Postgres), mock
}

func TestSQLStore_Postgres_InsertMake(t *testing.T) {
	t.Run("inserts one row", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO makes (id, make_id, make_name) VALUES ($1, $2, $3);`)).
			WithArgs(id.String(), 448, "TOYOTA").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.InsertMake(context.Background(), MakeRow{ID: id, MakeID: 448, MakeName: "TOYOTA"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("surfaces unique violation without upserting", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		conflict := errors.New(`pq: duplicate key value violates unique constraint "makes_make_id_key"`)

		mock.ExpectExec(`INSERT INTO makes`).WillReturnError(conflict)

		err := s.InsertMake(context.Background(), MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"})
		assert.ErrorIs(t, err, conflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSQLStore_Postgres_InsertModel(t *testing.T) {
	t.Run("stores nhtsa model id when present", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)
		id := uuid.New()

		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO models (id, make_id, model_name, nhtsa_model_id) VALUES ($1, $2, $3, $4);`)).
			WithArgs(id.String(), 448, "Camry", "2469").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.InsertModel(context.Background(), ModelRow{ID: id, MakeID: 448, ModelName: "Camry", NHTSAModelID: "2469"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("writes NULL when nhtsa model id is missing", func(t *testing.T) {
		s, mock := newMockPostgresStore(t)

		mock.ExpectExec(`INSERT INTO models`).
			WithArgs(sqlmock.AnyArg(), 448, "Camry", nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.InsertModel(context.Background(), ModelRow{ID: uuid.New(), MakeID: 448, ModelName: "Camry"})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vpic.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.InsertMake(ctx, MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"}))
	require.NoError(t, s.InsertModel(ctx, ModelRow{ID: uuid.New(), MakeID: 448, ModelName: "Camry", NHTSAModelID: "2469"}))
	require.NoError(t, s.InsertModel(ctx, ModelRow{ID: uuid.New(), MakeID: 448, ModelName: "Camry"}))

	t.Run("models are not deduplicated", func(t *testing.T) {
		var n int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM models WHERE model_name = 'Camry'`).Scan(&n))
		assert.Equal(t, 2, n)
	})

	t.Run("second insert of the same make is rejected", func(t *testing.T) {
		err := s.InsertMake(ctx, MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"})
		assert.Error(t, err)
	})

	t.Run("schema creation is repeatable", func(t *testing.T) {
		again, err := OpenSQLite(ctx, path)
		require.NoError(t, err)
		defer again.Close()

		var n int
		require.NoError(t, again.db.QueryRow(`SELECT COUNT(*) FROM makes`).Scan(&n))
		assert.Equal(t, 1, n)
	})
}

func TestRESTStore(t *testing.T) {
	type captured struct {
		method, path, apiKey, auth string
		body                       map[string]any
	}

	newServer := func(t *testing.T, status int, reply string) (*RESTStore, *[]captured) {
		t.Helper()
		var reqs []captured
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			c := captured{method: r.Method, path: r.URL.Path, apiKey: r.Header.Get("apikey"), auth: r.Header.Get("Authorization")}
			_ = json.Unmarshal(raw, &c.body)
			reqs = append(reqs, c)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		t.Cleanup(srv.Close)

		s, err := NewRESTStore(srv.URL, "service-key")
		require.NoError(t, err)
		return s, &reqs
	}

	t.Run("posts make rows with service key headers", func(t *testing.T) {
		s, reqs := newServer(t, http.StatusCreated, "")

		err := s.InsertMake(context.Background(), MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"})
		require.NoError(t, err)

		require.Len(t, *reqs, 1)
		got := (*reqs)[0]
		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "/rest/v1/makes", got.path)
		assert.Equal(t, "service-key", got.apiKey)
		assert.Equal(t, "Bearer service-key", got.auth)
		assert.Equal(t, "TOYOTA", got.body["make_name"])
		assert.EqualValues(t, 448, got.body["make_id"])
	})

	t.Run("posts model rows", func(t *testing.T) {
		s, reqs := newServer(t, http.StatusCreated, "")

		err := s.InsertModel(context.Background(), ModelRow{ID: uuid.New(), MakeID: 448, ModelName: "Camry"})
		require.NoError(t, err)

		require.Len(t, *reqs, 1)
		assert.Equal(t, "/rest/v1/models", (*reqs)[0].path)
		assert.Equal(t, "Camry", (*reqs)[0].body["model_name"])
		assert.NotContains(t, (*reqs)[0].body, "nhtsa_model_id")
	})

	t.Run("returns error on conflict", func(t *testing.T) {
		s, _ := newServer(t, http.StatusConflict, `{"code":"23505","message":"duplicate key value violates unique constraint"}`)

		err := s.InsertMake(context.Background(), MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "23505")
	})

	t.Run("cancelled context sends nothing", func(t *testing.T) {
		s, reqs := newServer(t, http.StatusCreated, "")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := s.InsertMake(ctx, MakeRow{ID: uuid.New(), MakeID: 448, MakeName: "TOYOTA"})
		assert.ErrorIs(t, err, context.Canceled)
		err = s.InsertModel(ctx, ModelRow{ID: uuid.New(), MakeID: 448, ModelName: "Camry"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, *reqs)
	})

	t.Run("requires a key", func(t *testing.T) {
		_, err := NewRESTStore("https://example.supabase.co", "")
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("bare path opens sqlite", func(t *testing.T) {
		s, err := Open(ctx, filepath.Join(t.TempDir(), "a.db"), "")
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &SQLStore{}, s)
	})

	t.Run("sqlite scheme opens sqlite", func(t *testing.T) {
		s, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "b.db"), "")
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, SQLite.Name, s.(*SQLStore).dialect.Name)
	})

	t.Run("https scheme opens the REST sink", func(t *testing.T) {
		s, err := Open(ctx, "https://example.supabase.co", "key")
		require.NoError(t, err)
		assert.IsType(t, &RESTStore{}, s)
	})

	t.Run("unknown scheme is rejected", func(t *testing.T) {
		_, err := Open(ctx, "mysql://localhost/vpic", "")
		assert.ErrorIs(t, err, ErrUnsupportedScheme)
	})
}
