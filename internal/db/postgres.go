package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pg-ai-query/internal/response"
	"pg-ai-query/pkg/models"
)

// PostgresCatalog information_schema와 pg_catalog 기반 카탈로그
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog 열린 연결로 카탈로그 생성
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (p *PostgresCatalog) Name() string {
	return "postgres"
}

// DB 내부 연결
func (p *PostgresCatalog) DB() *sql.DB {
	return p.db
}

func (p *PostgresCatalog) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresCatalog) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

const listTablesQuery = `
SELECT
	t.table_schema,
	t.table_name,
	t.table_type,
	COALESCE(GREATEST(c.reltuples, 0), 0)::bigint AS estimated_rows
FROM information_schema.tables t
LEFT JOIN pg_catalog.pg_namespace n ON n.nspname = t.table_schema
LEFT JOIN pg_catalog.pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
WHERE t.table_schema NOT IN ('pg_catalog', 'information_schema')
	AND t.table_schema NOT LIKE 'pg_toast%'
	AND t.table_schema NOT LIKE 'pg_temp%'
ORDER BY t.table_schema, t.table_name`

func (p *PostgresCatalog) ListTables(ctx context.Context) ([]models.TableInfo, error) {
	rows, err := p.db.QueryContext(ctx, listTablesQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableInfo{}
	for rows.Next() {
		var t models.TableInfo
		if err := rows.Scan(&t.SchemaName, &t.TableName, &t.TableType, &t.EstimatedRows); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

const columnsQuery = `
SELECT
	c.column_name,
	c.data_type,
	c.is_nullable = 'YES' AS is_nullable,
	c.column_default,
	COALESCE(pk.is_pk, false) AS is_pk,
	fk.foreign_table,
	fk.foreign_column
FROM information_schema.columns c
LEFT JOIN (
	SELECT kcu.column_name, true AS is_pk
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
) pk ON c.column_name = pk.column_name
LEFT JOIN (
	SELECT DISTINCT ON (kcu.column_name)
		kcu.column_name,
		ccu.table_name AS foreign_table,
		ccu.column_name AS foreign_column
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage ccu
		ON ccu.constraint_name = tc.constraint_name AND ccu.constraint_schema = tc.table_schema
	WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'FOREIGN KEY'
	ORDER BY kcu.column_name
) fk ON c.column_name = fk.column_name
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`

const indexesQuery = `
SELECT i.relname
FROM pg_catalog.pg_index ix
JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
WHERE n.nspname = $1 AND t.relname = $2
ORDER BY i.relname`

func (p *PostgresCatalog) TableDetails(ctx context.Context, tableName, schemaName string) (*models.TableDetails, error) {
	if schemaName == "" {
		schemaName = "public"
	}

	columns, err := p.columns(ctx, tableName, schemaName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, schemaName, tableName)
	}

	indexes, err := p.indexes(ctx, tableName, schemaName)
	if err != nil {
		return nil, err
	}

	return &models.TableDetails{
		TableName:  tableName,
		SchemaName: schemaName,
		Columns:    columns,
		Indexes:    indexes,
		Success:    true,
	}, nil
}

func (p *PostgresCatalog) columns(ctx context.Context, tableName, schemaName string) ([]models.ColumnInfo, error) {
	rows, err := p.db.QueryContext(ctx, columnsQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	var columns []models.ColumnInfo
	for rows.Next() {
		var col models.ColumnInfo
		var defaultVal, foreignTable, foreignColumn sql.NullString
		if err := rows.Scan(&col.ColumnName, &col.DataType, &col.IsNullable, &defaultVal,
			&col.IsPrimaryKey, &foreignTable, &foreignColumn); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		col.ColumnDefault = defaultVal.String
		if foreignTable.Valid {
			col.IsForeignKey = true
			col.ForeignTable = foreignTable.String
			col.ForeignColumn = foreignColumn.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query columns of %s.%s: %w", schemaName, tableName, err)
	}
	return columns, nil
}

func (p *PostgresCatalog) indexes(ctx context.Context, tableName, schemaName string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, indexesQuery, schemaName, tableName)
	if err != nil {
		return nil, fmt.Errorf("query indexes of %s.%s: %w", schemaName, tableName, err)
	}
	defer rows.Close()

	indexes := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indexes = append(indexes, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query indexes of %s.%s: %w", schemaName, tableName, err)
	}
	return indexes, nil
}

// ExplainPrefix 실행 계획 옵션
const ExplainPrefix = "EXPLAIN (ANALYZE, VERBOSE, COSTS, BUFFERS, FORMAT TEXT) "

// Explain 읽기 전용 트랜잭션 안에서 실행하고 롤백한다.
// 여러 문장은 단순 질의 프로토콜에서 트랜잭션을 끝낼 수 있으므로 거부한다.
func (p *PostgresCatalog) Explain(ctx context.Context, query string) (string, error) {
	if !response.IsSingleStatement(query) {
		return "", ErrMultipleStatements
	}
	query = strings.TrimRight(strings.TrimSpace(query), ";")

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return "", fmt.Errorf("begin explain transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, ExplainPrefix+query)
	if err != nil {
		return "", fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	var result strings.Builder
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return "", fmt.Errorf("scan plan line: %w", err)
		}
		result.WriteString(line)
		result.WriteString("\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("explain query: %w", err)
	}
	return result.String(), nil
}
