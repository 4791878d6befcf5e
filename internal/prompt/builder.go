package prompt

import (
	"fmt"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/internal/schema"
	"pg-ai-query/pkg/models"
)

// MaxDetailedTables 상세 정보를 싣는 최대 테이블 수
const MaxDetailedTables = 5

// Prompt 시스템/사용자 프롬프트 쌍
type Prompt struct {
	System string
	User   string
}

// Builder 프롬프트 생성기
type Builder struct{}

// NewBuilder 생성기
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildQueryPrompt 쿼리 생성 프롬프트. details는 MatchTables 결과 순서대로 전달한다.
func (b *Builder) BuildQueryPrompt(req models.QueryRequest, tables []models.TableInfo, details []models.TableDetails, cfg *config.Configuration) Prompt {
	if cfg == nil {
		cfg = config.Default()
	}

	var sb strings.Builder
	sb.WriteString("Request: ")
	sb.WriteString(strings.TrimSpace(req.NaturalLanguage))
	sb.WriteString("\n\n")

	if cfg.EnforceLimit {
		fmt.Fprintf(&sb, "Row limit: unless the request asks for an aggregate or a specific number of rows, "+
			"add LIMIT %d to the query and set row_limit_applied to true.\n\n", cfg.DefaultLimit)
	}

	sb.WriteString("Database schema context:\n")
	sb.WriteString(schema.FormatTableList(tables))

	if len(details) > MaxDetailedTables {
		details = details[:MaxDetailedTables]
	}
	if len(details) > 0 {
		sb.WriteString("\nDetails for tables mentioned in the request:\n")
		for _, d := range details {
			sb.WriteString("\n")
			sb.WriteString(schema.FormatTableDetails(d))
		}
	}

	sb.WriteString("\nReturn the JSON object described in the system prompt.")

	return Prompt{System: SystemPrompt(cfg), User: sb.String()}
}

// BuildExplainPrompt 실행 계획 설명 프롬프트
func (b *Builder) BuildExplainPrompt(query, explainOutput string, cfg *config.Configuration) Prompt {
	var sb strings.Builder
	sb.WriteString("Query:\n")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\n\nEXPLAIN ANALYZE output:\n")
	sb.WriteString(strings.TrimRight(explainOutput, "\n"))
	sb.WriteString("\n\nExplain this execution plan and suggest improvements.")
	return Prompt{System: ExplainSystemPrompt(cfg), User: sb.String()}
}
