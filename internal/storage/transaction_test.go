package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countImports(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM catalog_imports`).Scan(&n))
	return n
}

func insertImport(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO catalog_imports (source, printing_count) VALUES ('tx', 0)`)
	return err
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		before := countImports(t, db)
		require.NoError(t, db.WithTransaction(ctx, func(tx *sql.Tx) error {
			return insertImport(ctx, tx)
		}))
		assert.Equal(t, before+1, countImports(t, db))
	})

	t.Run("rolls back on error", func(t *testing.T) {
		before := countImports(t, db)
		boom := errors.New("boom")
		err := db.WithTransaction(ctx, func(tx *sql.Tx) error {
			require.NoError(t, insertImport(ctx, tx))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, before, countImports(t, db))
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		before := countImports(t, db)
		assert.Panics(t, func() {
			_ = db.WithTransaction(ctx, func(tx *sql.Tx) error {
				require.NoError(t, insertImport(ctx, tx))
				panic("boom")
			})
		})
		assert.Equal(t, before, countImports(t, db))
	})
}
