package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"pg-ai-query/pkg/models"
)

// Parser 스키마 스냅샷 파서
type Parser struct{}

// NewParser 파서 생성
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile 확장자로 형식 판단 (.json, .yaml, .yml, .sql)
func (p *Parser) ParseFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return p.ParseJSON(data)
	case ".yaml", ".yml":
		return p.ParseYAML(data)
	case ".sql", ".ddl":
		return p.ParseDDL(string(data))
	default:
		return nil, fmt.Errorf("unsupported schema file type %q (use .json, .yaml or .sql)", filepath.Ext(path))
	}
}

// ParseJSON JSON 형식 스냅샷 파싱
func (p *Parser) ParseJSON(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse JSON schema: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &s, nil
}

// ParseYAML YAML 형식 스냅샷 파싱
func (p *Parser) ParseYAML(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse YAML schema: %w", err)
	}
	if err := s.normalize(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &s, nil
}

// ToJSON 스냅샷을 JSON으로 변환
func (p *Parser) ToJSON(s *Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

const identPattern = `(?:"[^"]+"|\w+)`
const qualifiedPattern = `(` + identPattern + `(?:\.` + identPattern + `)?)`

var (
	createTablePattern = regexp.MustCompile(`(?is)CREATE\s+(?:UNLOGGED\s+)?TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?` + qualifiedPattern + `\s*\(`)
	createIndexPattern = regexp.MustCompile(`(?is)CREATE\s+(?:UNIQUE\s+)?INDEX\s+(?:CONCURRENTLY\s+)?(?:IF\s+NOT\s+EXISTS\s+)?(` + identPattern + `)\s+ON\s+(?:ONLY\s+)?` + qualifiedPattern)
	primaryKeyPattern  = regexp.MustCompile(`(?is)PRIMARY\s+KEY\s*\(([^)]+)\)`)
	foreignKeyPattern  = regexp.MustCompile(`(?is)FOREIGN\s+KEY\s*\(([^)]+)\)\s*REFERENCES\s+` + qualifiedPattern + `\s*\(([^)]+)\)`)
	inlineRefPattern   = regexp.MustCompile(`(?is)REFERENCES\s+` + qualifiedPattern + `(?:\s*\(\s*(` + identPattern + `)\s*\))?`)
	defaultPattern     = regexp.MustCompile(`(?is)\bDEFAULT\s+(.+?)(?:\s+(?:NOT\s+NULL|NULL|PRIMARY\s+KEY|REFERENCES|UNIQUE|CHECK|CONSTRAINT|GENERATED|COLLATE)\b|$)`)
	constraintStart    = regexp.MustCompile(`(?is)\b(?:NOT\s+NULL|NULL|DEFAULT|PRIMARY\s+KEY|REFERENCES|UNIQUE|CHECK|CONSTRAINT|GENERATED|COLLATE)\b`)
	columnNamePattern  = regexp.MustCompile(`(?s)^(` + identPattern + `)\s+(.+)$`)
	spaces             = regexp.MustCompile(`\s+`)
)

// ParseDDL PostgreSQL CREATE TABLE / CREATE INDEX 문에서 스냅샷 생성
func (p *Parser) ParseDDL(ddl string) (*Snapshot, error) {
	s := &Snapshot{}

	for _, loc := range createTablePattern.FindAllStringSubmatchIndex(ddl, -1) {
		schemaName, tableName := SplitQualified(ddl[loc[2]:loc[3]])
		body, ok := enclosed(ddl, loc[1]-1)
		if !ok {
			return nil, fmt.Errorf("unterminated column list for table %s", tableName)
		}

		table := Table{Name: tableName, Schema: schemaName}
		p.parseTableBody(&table, body)
		s.Tables = append(s.Tables, table)
	}

	if err := s.normalize(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	p.parseIndexes(ddl, s)
	return s, nil
}

func (p *Parser) parseTableBody(table *Table, body string) {
	var primaryKeys []string

	for _, item := range splitTopLevel(body) {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		// 테이블 제약조건
		upper := strings.ToUpper(item)
		if strings.HasPrefix(upper, "PRIMARY KEY") ||
			strings.HasPrefix(upper, "FOREIGN KEY") ||
			strings.HasPrefix(upper, "CONSTRAINT") ||
			strings.HasPrefix(upper, "UNIQUE") ||
			strings.HasPrefix(upper, "CHECK") ||
			strings.HasPrefix(upper, "EXCLUDE") ||
			strings.HasPrefix(upper, "LIKE") {
			if m := primaryKeyPattern.FindStringSubmatch(item); m != nil {
				primaryKeys = append(primaryKeys, identList(m[1])...)
			}
			if m := foreignKeyPattern.FindStringSubmatch(item); m != nil {
				cols := identList(m[1])
				refCols := identList(m[3])
				_, refTable := SplitQualified(m[2])
				for i, c := range cols {
					ref := ""
					if i < len(refCols) {
						ref = refCols[i]
					}
					markForeignKey(table, c, refTable, ref)
				}
			}
			continue
		}

		m := columnNamePattern.FindStringSubmatch(item)
		if m == nil {
			continue
		}
		col := models.ColumnInfo{ColumnName: unquoteIdent(m[1])}
		rest := m[2]

		typ := rest
		constraints := ""
		if loc := constraintStart.FindStringIndex(rest); loc != nil {
			typ = rest[:loc[0]]
			constraints = rest[loc[0]:]
		}
		col.DataType = strings.ToLower(spaces.ReplaceAllString(strings.TrimSpace(typ), " "))

		upperC := strings.ToUpper(constraints)
		col.IsPrimaryKey = strings.Contains(upperC, "PRIMARY KEY")
		col.IsNullable = !strings.Contains(upperC, "NOT NULL") && !col.IsPrimaryKey

		if dm := defaultPattern.FindStringSubmatch(constraints); dm != nil {
			col.ColumnDefault = strings.TrimSpace(dm[1])
		} else if strings.Contains(col.DataType, "serial") {
			col.ColumnDefault = fmt.Sprintf("nextval('%s_%s_seq'::regclass)", table.Name, col.ColumnName)
		}

		if rm := inlineRefPattern.FindStringSubmatch(constraints); rm != nil {
			_, refTable := SplitQualified(rm[1])
			col.IsForeignKey = true
			col.ForeignTable = refTable
			col.ForeignColumn = unquoteIdent(rm[2])
		}

		table.Columns = append(table.Columns, col)
	}

	for _, pk := range primaryKeys {
		for i := range table.Columns {
			if strings.EqualFold(table.Columns[i].ColumnName, pk) {
				table.Columns[i].IsPrimaryKey = true
				table.Columns[i].IsNullable = false
			}
		}
	}

	// PostgreSQL 기본 PK 인덱스 이름
	for _, c := range table.Columns {
		if c.IsPrimaryKey {
			table.Indexes = append(table.Indexes, table.Name+"_pkey")
			break
		}
	}
}

func markForeignKey(table *Table, column, refTable, refColumn string) {
	for i := range table.Columns {
		if strings.EqualFold(table.Columns[i].ColumnName, column) {
			table.Columns[i].IsForeignKey = true
			table.Columns[i].ForeignTable = refTable
			table.Columns[i].ForeignColumn = refColumn
		}
	}
}

func (p *Parser) parseIndexes(ddl string, s *Snapshot) {
	for _, m := range createIndexPattern.FindAllStringSubmatch(ddl, -1) {
		indexName := unquoteIdent(m[1])
		schemaName, tableName := SplitQualified(m[2])
		for i := range s.Tables {
			t := &s.Tables[i]
			if !strings.EqualFold(t.Name, tableName) {
				continue
			}
			if schemaName != "" && !strings.EqualFold(t.Schema, schemaName) {
				continue
			}
			t.Indexes = append(t.Indexes, indexName)
			break
		}
	}
}

// enclosed open 위치의 '('와 짝이 맞는 ')' 사이 내용
func enclosed(s string, open int) (string, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[open+1 : i], true
			}
		}
	}
	return "", false
}

// splitTopLevel 괄호 밖의 쉼표로 분리
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func identList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		// ASC/DESC 등 제거
		out = append(out, unquoteIdent(fields[0]))
	}
	return out
}
