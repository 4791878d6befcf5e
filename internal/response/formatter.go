package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// 줄 바꿈 폭
const (
	WrapWidth              = 78
	VisualizationWrapWidth = 70
)

const (
	prefixBody         = "--   "
	prefixContinuation = "--      "
	rowLimitNote       = "-- Note: Row limit was automatically applied to this query for safety"
)

// wrapText 단어 경계에서 줄 바꿈. 단어는 자르지 않는다.
func wrapText(text, firstPrefix, contPrefix string, width int) string {
	words := strings.Fields(text)
	var lines []string
	line := firstPrefix
	prefix := firstPrefix

	for _, w := range words {
		sep := 1
		if len(line) == len(prefix) {
			sep = 0
		}
		if len(line)+sep+len(w) > width && len(line) > len(prefix) {
			lines = append(lines, line)
			line = contPrefix + w
			prefix = contPrefix
			continue
		}
		if sep == 1 {
			line += " "
		}
		line += w
	}
	if len(line) > len(prefix) {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Format use_formatted_response에 따라 JSON 또는 일반 텍스트
func Format(r *models.QueryResult, cfg *config.Configuration) string {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.UseFormattedResponse {
		return FormatJSON(r, cfg)
	}
	return FormatPlain(r, cfg)
}

type jsonResult struct {
	Query                  string   `json:"query"`
	Success                bool     `json:"success"`
	Explanation            string   `json:"explanation,omitempty"`
	Warnings               []string `json:"warnings,omitempty"`
	SuggestedVisualization string   `json:"suggested_visualization,omitempty"`
	RowLimitApplied        bool     `json:"row_limit_applied,omitempty"`
}

func marshalIndent(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// FormatJSON query와 success는 항상, 나머지는 설정 플래그가 켜지고 값이 있을 때만
func FormatJSON(r *models.QueryResult, cfg *config.Configuration) string {
	out := jsonResult{
		Query:           r.GeneratedQuery,
		Success:         r.Success,
		RowLimitApplied: r.RowLimitApplied,
	}
	if cfg.ShowExplanation {
		out.Explanation = r.Explanation
	}
	if cfg.ShowWarnings {
		out.Warnings = r.Warnings
	}
	if cfg.ShowSuggestedVisualization {
		out.SuggestedVisualization = r.SuggestedVisualization
	}
	s, err := marshalIndent(out)
	if err != nil {
		// 문자열과 불리언만 담으므로 실패하지 않는다
		return fmt.Sprintf(`{"query": %q, "success": %t}`, r.GeneratedQuery, r.Success)
	}
	return s
}

// FormatPlain SQL 뒤에 주석 형태의 설명, 경고, 시각화 추천
func FormatPlain(r *models.QueryResult, cfg *config.Configuration) string {
	var sb strings.Builder
	sb.WriteString("-- Query:\n")
	sb.WriteString(r.GeneratedQuery)

	if cfg.ShowExplanation && r.Explanation != "" {
		sb.WriteString("\n\n-- Explanation:\n")
		sb.WriteString(wrapText(r.Explanation, prefixBody, prefixBody, WrapWidth))
	}

	if cfg.ShowWarnings && len(r.Warnings) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(formatWarnings(r.Warnings))
	}

	if cfg.ShowSuggestedVisualization && r.SuggestedVisualization != "" {
		sb.WriteString("\n\n-- Suggested Visualization:\n")
		sb.WriteString(wrapText(r.SuggestedVisualization, prefixBody, prefixBody, VisualizationWrapWidth))
	}

	if r.RowLimitApplied {
		sb.WriteString("\n\n")
		sb.WriteString(rowLimitNote)
	}
	return sb.String()
}

func formatWarnings(warnings []string) string {
	var sb strings.Builder
	if len(warnings) == 1 {
		sb.WriteString("-- Warning:")
	} else {
		sb.WriteString("-- Warnings:")
	}
	for i, w := range warnings {
		sb.WriteString("\n")
		sb.WriteString(wrapText(w, fmt.Sprintf("--   %d. ", i+1), prefixContinuation, WrapWidth))
	}
	return sb.String()
}

// FormatExplain 실행 계획 설명 결과 출력
func FormatExplain(r *models.ExplainResult) string {
	var sb strings.Builder
	sb.WriteString("-- Query:\n")
	sb.WriteString(strings.TrimSpace(r.Query))
	if r.ExplainOutput != "" {
		sb.WriteString("\n\n-- Execution Plan:\n")
		sb.WriteString(strings.TrimRight(r.ExplainOutput, "\n"))
	}
	if r.AIExplanation != "" {
		sb.WriteString("\n\n-- AI Explanation:\n")
		sb.WriteString(strings.TrimSpace(r.AIExplanation))
	}
	return sb.String()
}

// JSONTables 테이블 목록 JSON 배열
func JSONTables(tables []models.TableInfo) (string, error) {
	if tables == nil {
		tables = []models.TableInfo{}
	}
	return marshalIndent(tables)
}

type jsonTableDetails struct {
	TableName  string              `json:"table_name"`
	SchemaName string              `json:"schema_name"`
	Columns    []models.ColumnInfo `json:"columns"`
	Indexes    []string            `json:"indexes"`
}

// JSONTableDetails 테이블 상세 JSON
func JSONTableDetails(d models.TableDetails) (string, error) {
	out := jsonTableDetails{
		TableName:  d.TableName,
		SchemaName: d.SchemaName,
		Columns:    d.Columns,
		Indexes:    d.Indexes,
	}
	if out.Columns == nil {
		out.Columns = []models.ColumnInfo{}
	}
	if out.Indexes == nil {
		out.Indexes = []string{}
	}
	return marshalIndent(out)
}
