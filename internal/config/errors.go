package config

import (
	"fmt"
	"strings"
)

// ParseError 설정 문서 전체를 거부하는 파싱 오류
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config line %d: %s", e.Line, e.Msg)
}

// MissingError 설정 파일 없음
type MissingError struct {
	Path string
}

func (e *MissingError) Error() string {
	return "pg_ai_query configuration file not found at: " + e.Path
}

// Guidance 설정 파일 생성 방법
func (e *MissingError) Guidance() string {
	var sb strings.Builder
	sb.WriteString("To create it, run:\n")
	sb.WriteString("  cat > " + e.Path + " << 'EOF'\n")
	sb.WriteString("  [openai]\n")
	sb.WriteString("  api_key = \"your-api-key-here\"\n")
	sb.WriteString("  EOF\n")
	sb.WriteString("\nSections [general], [query], [response], [prompts], [openai], [anthropic] and [gemini] are supported.")
	return sb.String()
}
