package models

import "strings"

// Provider AI 제공자 종류
type Provider int

const (
	ProviderUnknown Provider = iota
	ProviderOpenAI
	ProviderAnthropic
	ProviderGemini
)

// PreferenceAuto 제공자 자동 선택
const PreferenceAuto = "auto"

// providerTable 제공자 <-> 이름 매핑. 자동 선택 우선순위 순서이기도 하다.
var providerTable = []struct {
	provider    Provider
	name        string
	displayName string
}{
	{ProviderOpenAI, "openai", "OpenAI"},
	{ProviderAnthropic, "anthropic", "Anthropic"},
	{ProviderGemini, "gemini", "Gemini"},
}

// String 설정 파일에서 쓰는 소문자 이름
func (p Provider) String() string {
	for _, e := range providerTable {
		if e.provider == p {
			return e.name
		}
	}
	return "unknown"
}

// DisplayName 사용자 메시지용 이름
func (p Provider) DisplayName() string {
	for _, e := range providerTable {
		if e.provider == p {
			return e.displayName
		}
	}
	return "Unknown"
}

// MarshalText JSON/YAML에 이름으로 기록
func (p Provider) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 이름에서 복원. 알 수 없는 이름은 Unknown.
func (p *Provider) UnmarshalText(text []byte) error {
	*p = ParseProvider(string(text))
	return nil
}

// ParseProvider 대소문자 구분 없이 제공자 이름 해석
func ParseProvider(name string) Provider {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, e := range providerTable {
		if e.name == lower {
			return e.provider
		}
	}
	return ProviderUnknown
}

// ProviderPriority 자동 선택 시 탐색 순서
func ProviderPriority() []Provider {
	out := make([]Provider, 0, len(providerTable))
	for _, e := range providerTable {
		out = append(out, e.provider)
	}
	return out
}

// PrimaryProvider 명시적 키만 주어졌을 때 사용하는 제공자
func PrimaryProvider() Provider {
	return providerTable[0].provider
}

// Visualization 추천 시각화 종류
const (
	VisualizationTable = "table"
	VisualizationBar   = "bar"
	VisualizationLine  = "line"
	VisualizationPie   = "pie"
)

// ParseVisualization 알 수 없는 값은 빈 문자열
func ParseVisualization(v string) string {
	switch s := strings.ToLower(strings.TrimSpace(v)); s {
	case VisualizationTable, VisualizationBar, VisualizationLine, VisualizationPie:
		return s
	default:
		return ""
	}
}

// QueryRequest 쿼리 생성 요청
type QueryRequest struct {
	NaturalLanguage string `json:"natural_language"`
	APIKey          string `json:"api_key,omitempty"`
	Provider        string `json:"provider,omitempty"` // "auto" 또는 제공자 이름
}

// QueryResult 쿼리 생성 결과
type QueryResult struct {
	GeneratedQuery         string   `json:"generated_query"`
	Explanation            string   `json:"explanation,omitempty"`
	Warnings               []string `json:"warnings,omitempty"`
	RowLimitApplied        bool     `json:"row_limit_applied"`
	SuggestedVisualization string   `json:"suggested_visualization,omitempty"`
	Success                bool     `json:"success"`
	ErrorMessage           string   `json:"error_message,omitempty"`
}

// Failed 실패 결과 생성
func Failed(msg string) *QueryResult {
	return &QueryResult{Success: false, ErrorMessage: msg}
}

// ExplainRequest 실행 계획 설명 요청
type ExplainRequest struct {
	QueryText string `json:"query"`
	APIKey    string `json:"api_key,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// ExplainResult 실행 계획 설명 결과
type ExplainResult struct {
	Query         string `json:"query"`
	ExplainOutput string `json:"explain_output,omitempty"`
	AIExplanation string `json:"ai_explanation,omitempty"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// TableInfo 테이블 요약 정보
type TableInfo struct {
	TableName     string `json:"table_name" yaml:"table_name"`
	SchemaName    string `json:"schema_name" yaml:"schema_name"`
	TableType     string `json:"table_type" yaml:"table_type"`
	EstimatedRows int64  `json:"estimated_rows" yaml:"estimated_rows"`
}

// QualifiedName schema.table 형식
func (t TableInfo) QualifiedName() string {
	if t.SchemaName == "" {
		return t.TableName
	}
	return t.SchemaName + "." + t.TableName
}

// ColumnInfo 컬럼 정보
type ColumnInfo struct {
	ColumnName    string `json:"column_name" yaml:"column_name"`
	DataType      string `json:"data_type" yaml:"data_type"`
	IsNullable    bool   `json:"is_nullable" yaml:"is_nullable"`
	ColumnDefault string `json:"column_default,omitempty" yaml:"column_default,omitempty"`
	IsPrimaryKey  bool   `json:"is_primary_key" yaml:"is_primary_key"`
	IsForeignKey  bool   `json:"is_foreign_key" yaml:"is_foreign_key"`
	ForeignTable  string `json:"foreign_table,omitempty" yaml:"foreign_table,omitempty"`
	ForeignColumn string `json:"foreign_column,omitempty" yaml:"foreign_column,omitempty"`
}

// TableDetails 테이블 상세 정보
type TableDetails struct {
	TableName    string       `json:"table_name" yaml:"table_name"`
	SchemaName   string       `json:"schema_name" yaml:"schema_name"`
	Columns      []ColumnInfo `json:"columns" yaml:"columns"`
	Indexes      []string     `json:"indexes" yaml:"indexes"`
	Success      bool         `json:"success" yaml:"-"`
	ErrorMessage string       `json:"error_message,omitempty" yaml:"-"`
}

// DatabaseSchema 데이터베이스 전체 테이블 목록
type DatabaseSchema struct {
	Tables       []TableInfo `json:"tables" yaml:"tables"`
	Success      bool        `json:"success" yaml:"-"`
	ErrorMessage string      `json:"error_message,omitempty" yaml:"-"`
}
