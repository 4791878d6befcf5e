// Package response LLM 응답 파싱, SQL 안전성 검사, 결과 출력 형식
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"pg-ai-query/internal/config"
	"pg-ai-query/pkg/models"
)

// ParseError LLM 응답을 결과로 바꾸지 못함
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// 경고 문구
const (
	WarnSystemCatalog      = "Query accesses system catalog tables (information_schema or pg_catalog)."
	WarnNotReadOnly        = "Generated statement is not a read-only SELECT. Review it carefully before running."
	WarnMultipleStatements = "Generated SQL contains more than one statement. No row limit was applied."
	WarnSuspiciousAnswer   = "The AI response suggests it could not fully answer the request. Check the query against your schema."
	msgNoQuery             = "No query was generated for this request."
)

// Parsed 파싱 결과와 부가 신호
type Parsed struct {
	Result               *models.QueryResult
	TouchesSystemCatalog bool
	LooksLikeError       bool
}

type rawAnswer struct {
	GeneratedQuery         *string         `json:"generated_query"`
	Query                  *string         `json:"query"`
	Explanation            string          `json:"explanation"`
	Warnings               json.RawMessage `json:"warnings"`
	RowLimitApplied        bool            `json:"row_limit_applied"`
	SuggestedVisualization string          `json:"suggested_visualization"`
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*[ \t]*\r?\n?(.*?)```")

// extractJSON 코드 펜스 안의 내용을 우선하고, 없으면 첫 '{'부터
func extractJSON(raw string) (string, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		if i := strings.IndexByte(m[1], '{'); i >= 0 {
			return m[1][i:], true
		}
	}
	if i := strings.IndexByte(raw, '{'); i >= 0 {
		return raw[i:], true
	}
	return "", false
}

func parseWarnings(data json.RawMessage) []string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one = strings.TrimSpace(one); one != "" {
			return []string{one}
		}
		return nil
	}
	var many []any
	if err := json.Unmarshal(data, &many); err != nil {
		return nil
	}
	out := make([]string, 0, len(many))
	for _, w := range many {
		s, ok := w.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Parse LLM 응답 텍스트를 QueryResult로 변환하고 행 제한과 안전성 경고를 적용한다
func Parse(raw string, cfg *config.Configuration) (Parsed, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	body, ok := extractJSON(raw)
	if !ok {
		return Parsed{}, &ParseError{Msg: "Invalid response format: no JSON object found"}
	}

	var ans rawAnswer
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&ans); err != nil {
		return Parsed{}, &ParseError{Msg: "JSON parse error", Err: err}
	}

	query := ans.GeneratedQuery
	if query == nil {
		query = ans.Query
	}
	if query == nil {
		return Parsed{}, &ParseError{Msg: "Invalid response format: missing generated_query"}
	}

	result := &models.QueryResult{
		GeneratedQuery:         strings.TrimSpace(*query),
		Explanation:            strings.TrimSpace(ans.Explanation),
		Warnings:               parseWarnings(ans.Warnings),
		SuggestedVisualization: models.ParseVisualization(ans.SuggestedVisualization),
		Success:                true,
	}
	out := Parsed{
		Result:         result,
		LooksLikeError: LooksLikeError(result.Explanation, result.Warnings),
	}

	if result.GeneratedQuery == "" {
		result.Success = false
		result.ErrorMessage = result.Explanation
		if result.ErrorMessage == "" {
			result.ErrorMessage = msgNoQuery
		}
		return out, nil
	}

	if out.LooksLikeError {
		result.Warnings = append(result.Warnings, WarnSuspiciousAnswer)
	}

	single := IsSingleStatement(result.GeneratedQuery)
	readOnly := IsReadOnly(result.GeneratedQuery) && single
	result.RowLimitApplied = ans.RowLimitApplied && readOnly && HasLimit(result.GeneratedQuery)
	if cfg.EnforceLimit && readOnly {
		if limited, applied := ApplyRowLimit(result.GeneratedQuery, cfg.DefaultLimit); applied {
			result.GeneratedQuery = limited
			result.RowLimitApplied = true
		}
	}
	if !single {
		result.Warnings = append(result.Warnings, WarnMultipleStatements)
	}
	if !readOnly {
		result.Warnings = append(result.Warnings, WarnNotReadOnly)
	}
	if TouchesSystemCatalog(result.GeneratedQuery) {
		out.TouchesSystemCatalog = true
		result.Warnings = append(result.Warnings, WarnSystemCatalog)
	}
	return out, nil
}
