package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCatalogFromSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tables:
  - name: users
    estimated_rows: 10
    columns:
      - column_name: id
        data_type: integer
        is_primary_key: true
    indexes: [users_pkey]
  - name: orders
    schema: sales
`), 0o600))

	catalog, err := OpenSnapshot(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, catalog.Ping(ctx))

	tables, err := catalog.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "sales.orders", tables[1].QualifiedName())

	d, err := catalog.TableDetails(ctx, "USERS", "")
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, []string{"users_pkey"}, d.Indexes)

	_, err = catalog.TableDetails(ctx, "orders", "")
	assert.ErrorIs(t, err, ErrTableNotFound, "orders lives in the sales schema")

	_, err = catalog.Explain(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrExplainUnavailable)
	assert.NoError(t, catalog.Close())
}

func TestOpenSnapshotMissingFile(t *testing.T) {
	_, err := OpenSnapshot(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
