package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"pg-ai-query/pkg/models"
)

// ParseOption 파서 옵션
type ParseOption func(*parser)

// WithParseLogger 경고 출력용 로거
func WithParseLogger(l *slog.Logger) ParseOption {
	return func(p *parser) {
		if l != nil {
			p.log = l
		}
	}
}

type parser struct {
	cfg     *Configuration
	log     *slog.Logger
	section string
	line    int
}

// Parse 설정 문서를 파싱한다. 형식 오류는 *ParseError로 문서 전체가 거부된다.
func Parse(content string, opts ...ParseOption) (*Configuration, error) {
	p := &parser{cfg: Default(), log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}
	return p.cfg, nil
}

func (p *parser) fail(format string, args ...any) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(raw string) error {
	if len(raw) >= MaxLineLength {
		return p.fail("line is too long (%d >= %d)", len(raw), MaxLineLength)
	}

	sl, err := scanLine(raw)
	if err != nil {
		return p.fail("does not match INI format: %v", err)
	}

	switch sl.kind {
	case lineSkip:
		return nil
	case lineSection:
		p.section = sl.section
		if !isKnownSection(sl.section) {
			p.log.Warn("config.section.unknown", "section", sl.section, "line", p.line)
		}
		return nil
	case lineUnterminated:
		p.log.Warn("config.value.unclosed_quote", "key", sl.key, "line", p.line)
		return nil
	}

	if p.section == "" {
		p.log.Warn("config.key.outside_section", "key", sl.key, "line", p.line)
		return nil
	}
	if !isKnownSection(p.section) {
		p.log.Warn("config.key.unknown_section", "key", sl.key, "section", p.section, "line", p.line)
		return nil
	}
	return p.apply(sl.key, sl.value)
}

func isKnownSection(name string) bool {
	switch name {
	case SectionGeneral, SectionQuery, SectionResponse, SectionPrompts:
		return true
	}
	return models.ParseProvider(name) != models.ProviderUnknown && name == strings.ToLower(name)
}

func (p *parser) apply(key, value string) error {
	c := p.cfg
	var err error

	switch p.section {
	case SectionGeneral:
		switch key {
		case "log_level":
			c.LogLevel = value
		case "enable_logging":
			c.EnableLogging = p.parseBool(key, value)
		case "request_timeout_ms":
			c.RequestTimeoutMs, err = p.parseInt(key, value)
		case "max_retries":
			c.MaxRetries, err = p.parseInt(key, value)
		default:
			p.unknownKey(key)
		}
	case SectionQuery:
		switch key {
		case "enforce_limit":
			c.EnforceLimit = p.parseBool(key, value)
		case "default_limit":
			c.DefaultLimit, err = p.parseInt(key, value)
		case "max_query_length":
			var n int
			if n, err = p.parseInt(key, value); err == nil && n > 0 {
				c.MaxQueryLength = n
			}
		default:
			p.unknownKey(key)
		}
	case SectionResponse:
		switch key {
		case "show_explanation":
			c.ShowExplanation = p.parseBool(key, value)
		case "show_warnings":
			c.ShowWarnings = p.parseBool(key, value)
		case "show_suggested_visualization":
			c.ShowSuggestedVisualization = p.parseBool(key, value)
		case "use_formatted_response":
			c.UseFormattedResponse = p.parseBool(key, value)
		default:
			p.unknownKey(key)
		}
	case SectionPrompts:
		switch key {
		case "system_prompt":
			c.SystemPrompt = p.resolvePrompt(key, value)
		case "explain_system_prompt":
			c.ExplainSystemPrompt = p.resolvePrompt(key, value)
		default:
			p.unknownKey(key)
		}
	default:
		err = p.applyProvider(models.ParseProvider(p.section), key, value)
	}
	return err
}

func (p *parser) applyProvider(kind models.Provider, key, value string) error {
	pc := p.cfg.providerOrCreate(kind)
	switch key {
	case "api_key":
		pc.APIKey = value
	case "default_model":
		pc.DefaultModel = value
	case "api_endpoint":
		pc.APIEndpoint = value
	case "max_tokens":
		n, err := p.parseInt(key, value)
		if err != nil {
			return err
		}
		pc.DefaultMaxTokens = n
	case "temperature":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return p.fail("invalid number for %s: %q", key, value)
		}
		if f < 0 || f > 2 {
			p.log.Warn("config.temperature.out_of_range", "provider", kind.String(), "value", f, "line", p.line)
			return nil
		}
		pc.DefaultTemperature = f
	default:
		p.unknownKey(key)
	}
	return nil
}

func (p *parser) parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, p.fail("invalid integer for %s: %q", key, value)
	}
	return n, nil
}

func (p *parser) parseBool(key, value string) bool {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	}
	p.log.Warn("config.bool.invalid", "key", key, "value", value, "line", p.line, "fallback", false)
	return false
}

func (p *parser) unknownKey(key string) {
	p.log.Warn("config.key.unknown", "key", key, "section", p.section, "line", p.line)
}

// resolvePrompt 값이 읽을 수 있는 파일 경로면 파일 내용, 아니면 값 자체
func (p *parser) resolvePrompt(key, value string) string {
	if value == "" {
		return ""
	}
	info, err := os.Stat(value)
	if err != nil || !info.Mode().IsRegular() {
		return value
	}
	data, err := os.ReadFile(value)
	if err != nil {
		p.log.Warn("config.prompt.read_failed", "key", key, "path", value, "error", err)
		return ""
	}
	p.log.Debug("config.prompt.loaded", "key", key, "path", value, "bytes", len(data))
	return strings.TrimSpace(string(data))
}
