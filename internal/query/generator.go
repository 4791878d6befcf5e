package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"pg-ai-query/internal/ai"
	"pg-ai-query/internal/config"
	"pg-ai-query/internal/db"
	"pg-ai-query/internal/metrics"
	"pg-ai-query/internal/prompt"
	"pg-ai-query/internal/response"
	"pg-ai-query/internal/schema"
	"pg-ai-query/pkg/models"
)

// 입력 검증 오류
var (
	ErrEmptyRequest   = errors.New("request text is empty")
	ErrRequestTooLong = errors.New("request text exceeds max_query_length")
)

const (
	operationGenerate = "generate"
	operationExplain  = "explain"
)

const (
	msgExplainReadOnly        = "Only SELECT statements can be explained. EXPLAIN ANALYZE executes the statement it analyzes."
	msgExplainSingleStatement = "Only a single SELECT statement can be explained. Remove everything after the first ';'."
)

// Generator 쿼리 생성기
type Generator struct {
	manager   *config.Manager
	overrides *config.Overrides // nil이면 세션 오버라이드 사용
	catalog   db.Catalog
	factory   ai.Factory
	builder   *prompt.Builder
	logger    *slog.Logger
}

// Option 생성기 옵션
type Option func(*Generator)

// WithFactory AI 클라이언트 생성 함수 교체
func WithFactory(f ai.Factory) Option {
	return func(g *Generator) {
		if f != nil {
			g.factory = f
		}
	}
}

// WithLogger 로거 지정
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator 쿼리 생성기 생성
func NewGenerator(manager *config.Manager, catalog db.Catalog, opts ...Option) *Generator {
	g := &Generator{
		manager: manager,
		catalog: catalog,
		factory: ai.NewClient,
		builder: prompt.NewBuilder(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithOverrides 요청 단위 자격 증명을 적용한 사본. 공유 Manager는 변경하지 않는다.
func (g *Generator) WithOverrides(o config.Overrides) *Generator {
	cp := *g
	cp.overrides = &o
	return &cp
}

// Catalog 사용 중인 카탈로그
func (g *Generator) Catalog() db.Catalog {
	return g.catalog
}

func (g *Generator) config() (*config.Configuration, error) {
	if g.overrides != nil {
		return g.manager.Effective(*g.overrides)
	}
	return g.manager.Config()
}

// validateText 외부 호출 전에 빈 입력과 길이 초과를 거른다
func validateText(text string, cfg *config.Configuration) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "Request text cannot be empty.", ErrEmptyRequest
	}
	limit := cfg.MaxQueryLength
	if limit <= 0 {
		limit = config.DefaultMaxQueryLength
	}
	if n := utf8.RuneCountInString(text); n > limit {
		return fmt.Sprintf("Request is too long (%d characters, maximum %d). Shorten it or raise max_query_length in ~/.pg_ai.config.", n, limit),
			ErrRequestTooLong
	}
	return "", nil
}

// providerSettings 선택된 제공자의 설정. 파일에 없으면 기본값.
func providerSettings(sel ai.ProviderSelection) config.ProviderConfig {
	if sel.Config != nil {
		return *sel.Config
	}
	return config.NewProviderConfig(sel.Provider)
}

func (g *Generator) client(cfg *config.Configuration, sel ai.ProviderSelection) (ai.Client, error) {
	opts := ai.OptionsFromConfig(cfg, sel)
	opts.Logger = g.logger
	return g.factory(sel.Provider, opts)
}

func observe(operation string, p models.Provider, outcome string, start time.Time) {
	name := ""
	if p != models.ProviderUnknown {
		name = p.String()
	}
	metrics.ObserveRequest(operation, name, outcome, time.Since(start))
}

// GenerateQuery 자연어 요청으로 SQL 생성.
// 설정 파일 오류만 error로 돌려주고 나머지 실패는 Success=false 결과로 표현한다.
func (g *Generator) GenerateQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	start := time.Now()
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}

	if msg, err := validateText(req.NaturalLanguage, cfg); err != nil {
		g.logger.Info("query.generate.invalid", "error", err)
		observe(operationGenerate, models.ProviderUnknown, metrics.OutcomeValidation, start)
		return models.Failed(msg), nil
	}

	sel := ai.SelectProvider(cfg, req.Provider, req.APIKey)
	if !sel.Success {
		g.logger.Warn("query.generate.no_provider", "preference", req.Provider, "error", sel.Err)
		observe(operationGenerate, models.ProviderUnknown, metrics.OutcomeSelection, start)
		return models.Failed(sel.ErrorMessage), nil
	}

	tables, details, err := g.schemaContext(ctx, req.NaturalLanguage)
	if err != nil {
		g.logger.Error("query.generate.catalog_failed", "error", err)
		observe(operationGenerate, sel.Provider, metrics.OutcomeCatalog, start)
		return models.Failed(fmt.Sprintf("Failed to read database schema: %v", err)), nil
	}

	p := g.builder.BuildQueryPrompt(req, tables, details, cfg)
	text, err := g.complete(ctx, cfg, sel, p)
	if err != nil {
		g.logger.Warn("query.generate.provider_failed", "provider", sel.Provider.String(), "error", err)
		observe(operationGenerate, sel.Provider, metrics.OutcomeProvider, start)
		return models.Failed(ai.TranslateTransportError(sel.Provider, err)), nil
	}

	parsed, err := response.Parse(text, cfg)
	if err != nil {
		g.logger.Debug("query.generate.unparsable", "provider", sel.Provider.String(), "raw", text)
		g.logger.Warn("query.generate.parse_failed", "provider", sel.Provider.String(), "error", err)
		observe(operationGenerate, sel.Provider, metrics.OutcomeResponseParse, start)
		return models.Failed(fmt.Sprintf("Failed to parse AI response: %v", err)), nil
	}

	result := parsed.Result
	if parsed.LooksLikeError {
		g.logger.Warn("query.generate.suspicious_answer", "provider", sel.Provider.String(), "explanation", result.Explanation)
	}
	if result.RowLimitApplied {
		metrics.IncRowLimitApplied()
	}

	outcome := metrics.OutcomeSuccess
	if !result.Success {
		outcome = metrics.OutcomeResponseParse
	}
	observe(operationGenerate, sel.Provider, outcome, start)
	g.logger.Info("query.generate.done",
		"provider", sel.Provider.String(),
		"tables", len(tables),
		"detailed", len(details),
		"row_limit_applied", result.RowLimitApplied,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// schemaContext 전체 테이블 목록과 요청에 언급된 테이블의 상세 정보
func (g *Generator) schemaContext(ctx context.Context, request string) ([]models.TableInfo, []models.TableDetails, error) {
	tables, err := g.catalog.ListTables(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list tables: %w", err)
	}

	var details []models.TableDetails
	for _, t := range schema.MatchTables(request, tables, prompt.MaxDetailedTables) {
		d, err := g.catalog.TableDetails(ctx, t.TableName, t.SchemaName)
		if errors.Is(err, db.ErrTableNotFound) {
			g.logger.Debug("query.schema.table_vanished", "table", t.QualifiedName())
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("describe %s: %w", t.QualifiedName(), err)
		}
		details = append(details, *d)
	}
	return tables, details, nil
}

func (g *Generator) complete(ctx context.Context, cfg *config.Configuration, sel ai.ProviderSelection, p prompt.Prompt) (string, error) {
	client, err := g.client(cfg, sel)
	if err != nil {
		return "", err
	}
	pc := providerSettings(sel)
	return client.Complete(ctx, ai.CompletionRequest{
		Model:        pc.DefaultModel,
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		MaxTokens:    pc.DefaultMaxTokens,
		Temperature:  ai.Float(pc.DefaultTemperature),
	})
}

// ExplainQuery EXPLAIN ANALYZE 결과를 AI로 해설
func (g *Generator) ExplainQuery(ctx context.Context, req models.ExplainRequest) (*models.ExplainResult, error) {
	start := time.Now()
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.QueryText)
	failed := func(msg string) *models.ExplainResult {
		return &models.ExplainResult{Query: query, Success: false, ErrorMessage: msg}
	}

	if msg, err := validateText(query, cfg); err != nil {
		observe(operationExplain, models.ProviderUnknown, metrics.OutcomeValidation, start)
		return failed(msg), nil
	}
	if !response.IsReadOnly(query) {
		observe(operationExplain, models.ProviderUnknown, metrics.OutcomeValidation, start)
		return failed(msgExplainReadOnly), nil
	}
	if !response.IsSingleStatement(query) {
		observe(operationExplain, models.ProviderUnknown, metrics.OutcomeValidation, start)
		return failed(msgExplainSingleStatement), nil
	}

	sel := ai.SelectProvider(cfg, req.Provider, req.APIKey)
	if !sel.Success {
		observe(operationExplain, models.ProviderUnknown, metrics.OutcomeSelection, start)
		return failed(sel.ErrorMessage), nil
	}

	plan, err := g.catalog.Explain(ctx, query)
	if err != nil {
		g.logger.Warn("query.explain.failed", "error", err)
		observe(operationExplain, sel.Provider, metrics.OutcomeCatalog, start)
		return failed(fmt.Sprintf("Failed to run EXPLAIN ANALYZE: %v", err)), nil
	}

	p := g.builder.BuildExplainPrompt(query, plan, cfg)
	text, err := g.complete(ctx, cfg, sel, p)
	if err != nil {
		observe(operationExplain, sel.Provider, metrics.OutcomeProvider, start)
		return &models.ExplainResult{
			Query:         query,
			ExplainOutput: plan,
			ErrorMessage:  ai.TranslateTransportError(sel.Provider, err),
		}, nil
	}

	observe(operationExplain, sel.Provider, metrics.OutcomeSuccess, start)
	return &models.ExplainResult{
		Query:         query,
		ExplainOutput: plan,
		AIExplanation: strings.TrimSpace(text),
		Success:       true,
	}, nil
}

// ListTables 데이터베이스 테이블 목록
func (g *Generator) ListTables(ctx context.Context) *models.DatabaseSchema {
	tables, err := g.catalog.ListTables(ctx)
	if err != nil {
		g.logger.Error("query.tables.failed", "error", err)
		return &models.DatabaseSchema{Tables: []models.TableInfo{}, ErrorMessage: fmt.Sprintf("Failed to list tables: %v", err)}
	}
	return &models.DatabaseSchema{Tables: tables, Success: true}
}

// TableDetails 테이블 상세 정보. schemaName이 비고 이름이 schema.table이면 분리한다.
func (g *Generator) TableDetails(ctx context.Context, tableName, schemaName string) *models.TableDetails {
	if schemaName == "" {
		schemaName, tableName = schema.SplitQualified(tableName)
	}
	if schemaName == "" {
		schemaName = schema.DefaultSchema
	}

	d, err := g.catalog.TableDetails(ctx, tableName, schemaName)
	if err != nil {
		msg := fmt.Sprintf("Failed to describe table: %v", err)
		if errors.Is(err, db.ErrTableNotFound) {
			msg = fmt.Sprintf("Table '%s.%s' does not exist or has no columns.", schemaName, tableName)
		}
		return &models.TableDetails{
			TableName:    tableName,
			SchemaName:   schemaName,
			Columns:      []models.ColumnInfo{},
			Indexes:      []string{},
			ErrorMessage: msg,
		}
	}
	return d
}
