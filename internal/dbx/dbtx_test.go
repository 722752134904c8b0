package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS shares (id TEXT PRIMARY KEY, receiver TEXT);`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM shares`)
	require.NoError(t, err)
	return db
}

func countShares(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM shares`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO shares(id, receiver) VALUES ('s1', 'bob')`)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countShares(t, db), "must commit on success")
}

func TestWithTx_RollbackOnFnError(t *testing.T) {
	db := setupDB(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO shares(id, receiver) VALUES ('s1', 'bob')`)
		require.NoError(t, e)
		return errors.New("boom")
	})
	require.Error(t, err)

	require.Equal(t, 0, countShares(t, db), "must rollback when fn returns error")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := setupDB(t)

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic to propagate")
		}
		require.Equal(t, 0, countShares(t, db), "must rollback on panic")
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, `INSERT INTO shares(id, receiver) VALUES ('s1', 'bob')`)
		require.NoError(t, e)
		panic("kaput")
	})
}

func TestWithTx_BeginError(t *testing.T) {
	db, err := sql.Open("sqlite", "file:dbx_closed?mode=memory")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		return nil
	})
	require.Error(t, err, "begin should fail when DB is closed")
}

func TestContainsPattern(t *testing.T) {
	tests := map[string]string{
		"":        "%%",
		"bob":     "%bob%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`dom\usr`: `%dom\\usr%`,
	}
	for in, want := range tests {
		require.Equal(t, want, ContainsPattern(in), "input %q", in)
	}
}

func TestIsMalformedKey(t *testing.T) {
	badUUID := &pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"}

	require.True(t, IsMalformedKey(badUUID))
	require.True(t, IsMalformedKey(fmt.Errorf("db error: %w", badUUID)))
	require.False(t, IsMalformedKey(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsMalformedKey(errors.New("invalid input syntax")))
	require.False(t, IsMalformedKey(nil))
}
