package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func TestListTables(t *testing.T) {
	db, mock := newSQLMock(t)
	catalog := NewPostgresCatalog(db)

	mock.ExpectQuery(regexp.QuoteMeta(listTablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "table_type", "estimated_rows"}).
			AddRow("public", "users", "BASE TABLE", int64(1200)).
			AddRow("sales", "orders", "BASE TABLE", int64(0)).
			AddRow("public", "active_users", "VIEW", int64(0)))

	tables, err := catalog.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, "public.users", tables[0].QualifiedName())
	assert.EqualValues(t, 1200, tables[0].EstimatedRows)
	assert.Equal(t, "VIEW", tables[2].TableType)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(listTablesQuery)).WillReturnError(errors.New("permission denied"))

	_, err := NewPostgresCatalog(db).ListTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list tables")
}

func TestTableDetails(t *testing.T) {
	db, mock := newSQLMock(t)
	catalog := NewPostgresCatalog(db)

	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "column_default", "is_pk", "foreign_table", "foreign_column",
		}).
			AddRow("id", "integer", false, "nextval('orders_id_seq'::regclass)", true, nil, nil).
			AddRow("user_id", "integer", true, nil, false, "users", "id"))
	mock.ExpectQuery(regexp.QuoteMeta(indexesQuery)).
		WithArgs("public", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"relname"}).AddRow("orders_pkey").AddRow("orders_user_idx"))

	d, err := catalog.TableDetails(context.Background(), "orders", "")
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, "public", d.SchemaName)
	require.Len(t, d.Columns, 2)
	assert.True(t, d.Columns[0].IsPrimaryKey)
	assert.False(t, d.Columns[0].IsNullable)
	assert.Equal(t, "nextval('orders_id_seq'::regclass)", d.Columns[0].ColumnDefault)
	assert.False(t, d.Columns[0].IsForeignKey)
	assert.True(t, d.Columns[1].IsForeignKey)
	assert.Equal(t, "users", d.Columns[1].ForeignTable)
	assert.Equal(t, "id", d.Columns[1].ForeignColumn)
	assert.Equal(t, []string{"orders_pkey", "orders_user_idx"}, d.Indexes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableDetailsNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WithArgs("sales", "missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "column_default", "is_pk", "foreign_table", "foreign_column",
		}))

	_, err := NewPostgresCatalog(db).TableDetails(context.Background(), "missing", "sales")
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Contains(t, err.Error(), "sales.missing")
}

func TestExplainRunsInReadOnlyTransaction(t *testing.T) {
	db, mock := newSQLMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(ExplainPrefix + "SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"QUERY PLAN"}).
			AddRow("Seq Scan on public.users  (cost=0.00..1.01 rows=1 width=4) (actual time=0.010..0.011 rows=1 loops=1)").
			AddRow("Planning Time: 0.050 ms"))
	mock.ExpectRollback()

	plan, err := NewPostgresCatalog(db).Explain(context.Background(), "  SELECT * FROM users; ")
	require.NoError(t, err)
	assert.Equal(t, "Seq Scan on public.users  (cost=0.00..1.01 rows=1 width=4) (actual time=0.010..0.011 rows=1 loops=1)\nPlanning Time: 0.050 ms\n", plan)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExplainError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(ExplainPrefix + "SELECT nope")).
		WillReturnError(errors.New(`column "nope" does not exist`))
	mock.ExpectRollback()

	_, err := NewPostgresCatalog(db).Explain(context.Background(), "SELECT nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "nope" does not exist`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExplainRejectsMultipleStatements(t *testing.T) {
	db, mock := newSQLMock(t)

	_, err := NewPostgresCatalog(db).Explain(context.Background(), "SELECT 1; COMMIT; DROP TABLE users")
	assert.ErrorIs(t, err, ErrMultipleStatements)
	require.NoError(t, mock.ExpectationsWereMet(), "no transaction is opened")
}

func TestOpenValidatesConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "mysql", DSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
