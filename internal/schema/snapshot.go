package schema

import (
	"fmt"
	"strings"

	"pg-ai-query/pkg/models"
)

// DefaultSchema 스키마 이름이 없을 때 사용
const DefaultSchema = "public"

// DefaultTableType 테이블 종류가 없을 때 사용
const DefaultTableType = "BASE TABLE"

// Snapshot 오프라인 카탈로그용 스키마 스냅샷
type Snapshot struct {
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table 스냅샷의 테이블 하나
type Table struct {
	Name          string              `json:"name" yaml:"name"`
	Schema        string              `json:"schema,omitempty" yaml:"schema,omitempty"`
	Type          string              `json:"type,omitempty" yaml:"type,omitempty"`
	EstimatedRows int64               `json:"estimated_rows,omitempty" yaml:"estimated_rows,omitempty"`
	Columns       []models.ColumnInfo `json:"columns" yaml:"columns"`
	Indexes       []string            `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// Info 테이블 요약
func (t Table) Info() models.TableInfo {
	return models.TableInfo{
		TableName:     t.Name,
		SchemaName:    t.Schema,
		TableType:     t.Type,
		EstimatedRows: t.EstimatedRows,
	}
}

// Details 테이블 상세
func (t Table) Details() models.TableDetails {
	cols := make([]models.ColumnInfo, len(t.Columns))
	copy(cols, t.Columns)
	idx := make([]string, len(t.Indexes))
	copy(idx, t.Indexes)
	return models.TableDetails{
		TableName:  t.Name,
		SchemaName: t.Schema,
		Columns:    cols,
		Indexes:    idx,
		Success:    true,
	}
}

// normalize 기본값 채우기와 검증
func (s *Snapshot) normalize() error {
	seen := make(map[string]bool, len(s.Tables))
	for i := range s.Tables {
		t := &s.Tables[i]
		t.Name = strings.TrimSpace(t.Name)
		if t.Name == "" {
			return fmt.Errorf("table #%d has no name", i+1)
		}
		if t.Schema == "" {
			t.Schema = DefaultSchema
		}
		if t.Type == "" {
			t.Type = DefaultTableType
		}
		key := strings.ToLower(t.Schema + "." + t.Name)
		if seen[key] {
			return fmt.Errorf("duplicate table %s.%s", t.Schema, t.Name)
		}
		seen[key] = true
		for j, c := range t.Columns {
			if strings.TrimSpace(c.ColumnName) == "" {
				return fmt.Errorf("table %s: column #%d has no name", t.Name, j+1)
			}
		}
	}
	return nil
}

// TableInfos 전체 테이블 요약
func (s *Snapshot) TableInfos() []models.TableInfo {
	out := make([]models.TableInfo, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, t.Info())
	}
	return out
}

// Lookup 대소문자 구분 없이 테이블 조회. schemaName이 비면 public.
func (s *Snapshot) Lookup(tableName, schemaName string) (Table, bool) {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	for _, t := range s.Tables {
		if strings.EqualFold(t.Name, tableName) && strings.EqualFold(t.Schema, schemaName) {
			return t, true
		}
	}
	return Table{}, false
}

// SplitQualified "schema.table"을 분리. 스키마가 없으면 빈 문자열.
func SplitQualified(name string) (schemaName, tableName string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '.'); i > 0 && i < len(name)-1 {
		return unquoteIdent(name[:i]), unquoteIdent(name[i+1:])
	}
	return "", unquoteIdent(name)
}

func unquoteIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
