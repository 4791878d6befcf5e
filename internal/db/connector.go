package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"pg-ai-query/pkg/models"
)

// 지원 드라이버
const (
	DriverPostgres = "postgres" // lib/pq
	DriverPgx      = "pgx"      // jackc/pgx stdlib
)

var (
	// ErrTableNotFound 테이블 없음
	ErrTableNotFound = errors.New("table not found")
	// ErrExplainUnavailable 실제 연결 없이는 EXPLAIN ANALYZE 불가
	ErrExplainUnavailable = errors.New("EXPLAIN ANALYZE requires a live database connection")
	// ErrMultipleStatements EXPLAIN 대상은 한 문장
	ErrMultipleStatements = errors.New("EXPLAIN ANALYZE accepts a single statement")
)

// Catalog 스키마 메타데이터와 실행 계획 제공자
type Catalog interface {
	// ListTables 사용자 테이블 목록
	ListTables(ctx context.Context) ([]models.TableInfo, error)

	// TableDetails 컬럼과 인덱스. schemaName이 비면 public.
	TableDetails(ctx context.Context, tableName, schemaName string) (*models.TableDetails, error)

	// Explain EXPLAIN ANALYZE 결과 텍스트
	Explain(ctx context.Context, query string) (string, error)

	// Ping 연결 상태 확인
	Ping(ctx context.Context) error

	// Close 연결 종료
	Close() error

	// Name 카탈로그 종류
	Name() string
}

// Config 데이터베이스 연결 설정
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig 기본 풀 설정
func DefaultConfig(dsn string) Config {
	return Config{
		Driver:          DriverPostgres,
		DSN:             dsn,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	}
}

// Open 연결을 열고 Ping으로 확인
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}
	if driver != DriverPostgres && driver != DriverPgx {
		return nil, fmt.Errorf("unsupported driver %q (use %s or %s)", driver, DriverPostgres, DriverPgx)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// Connect Open 후 PostgresCatalog 생성
func Connect(ctx context.Context, cfg Config) (*PostgresCatalog, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPostgresCatalog(db), nil
}
