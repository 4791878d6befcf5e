package db

import (
	"context"
	"fmt"

	"pg-ai-query/internal/schema"
	"pg-ai-query/pkg/models"
)

// StaticCatalog 스키마 스냅샷 파일 기반 오프라인 카탈로그
type StaticCatalog struct {
	snapshot *schema.Snapshot
}

// NewStaticCatalog 스냅샷으로 생성
func NewStaticCatalog(s *schema.Snapshot) *StaticCatalog {
	if s == nil {
		s = &schema.Snapshot{}
	}
	return &StaticCatalog{snapshot: s}
}

// OpenSnapshot 파일에서 스냅샷을 읽어 카탈로그 생성
func OpenSnapshot(path string) (*StaticCatalog, error) {
	s, err := schema.NewParser().ParseFile(path)
	if err != nil {
		return nil, err
	}
	return NewStaticCatalog(s), nil
}

func (s *StaticCatalog) Name() string {
	return "snapshot"
}

func (s *StaticCatalog) ListTables(ctx context.Context) ([]models.TableInfo, error) {
	return s.snapshot.TableInfos(), nil
}

func (s *StaticCatalog) TableDetails(ctx context.Context, tableName, schemaName string) (*models.TableDetails, error) {
	t, ok := s.snapshot.Lookup(tableName, schemaName)
	if !ok {
		if schemaName == "" {
			schemaName = schema.DefaultSchema
		}
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, schemaName, tableName)
	}
	d := t.Details()
	return &d, nil
}

func (s *StaticCatalog) Explain(ctx context.Context, query string) (string, error) {
	return "", ErrExplainUnavailable
}

func (s *StaticCatalog) Ping(ctx context.Context) error {
	return nil
}

func (s *StaticCatalog) Close() error {
	return nil
}
