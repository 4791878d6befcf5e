package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pg-ai-query/internal/config"
	"pg-ai-query/internal/query"
	"pg-ai-query/internal/response"
	"pg-ai-query/pkg/models"
)

// 요청 단위 API 키 헤더
const (
	HeaderOpenAIKey    = "X-OpenAI-Key"
	HeaderAnthropicKey = "X-Anthropic-Key"
	HeaderGeminiKey    = "X-Gemini-Key"
	HeaderRequestID    = "X-Request-ID"
)

const maxBodyBytes = 1 << 20

// RequestTimeout 생성/설명 요청 처리 제한
const RequestTimeout = 120 * time.Second

type Server struct {
	manager   *config.Manager
	generator *query.Generator
	overrides config.Overrides // 서버 시작 시 환경 변수에서 읽은 키
	logger    *slog.Logger
	started   time.Time
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// generateData 생성 결과와 설정에 맞춘 출력 텍스트
type generateData struct {
	*models.QueryResult
	Formatted string `json:"formatted,omitempty"`
}

type validateRequest struct {
	Query string `json:"query"`
}

type validateData struct {
	Query                string `json:"query"`
	ReadOnly             bool   `json:"read_only"`
	SingleStatement      bool   `json:"single_statement"`
	HasLimit             bool   `json:"has_limit"`
	TouchesSystemCatalog bool   `json:"touches_system_catalog"`
	LimitedQuery         string `json:"limited_query,omitempty"`
}

type ctxKey struct{}

// RequestID 컨텍스트의 요청 ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func NewServer(manager *config.Manager, generator *query.Generator, overrides config.Overrides, logger *slog.Logger) *Server {
	return &Server{
		manager:   manager,
		generator: generator,
		overrides: overrides,
		logger:    logger,
		started:   time.Now(),
	}
}

// Handler 라우터와 미들웨어
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/explain", s.handleExplain)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/tables", s.handleTables)
	mux.HandleFunc("GET /api/tables/{name}", s.handleTableDetail)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.requestIDMiddleware(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type", HeaderRequestID, HeaderOpenAIKey, HeaderAnthropicKey, HeaderGeminiKey,
		}, ", "))

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware 요청 ID 부여와 접근 로그
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		s.logger.Info("http.request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func (s *Server) jsonError(w http.ResponseWriter, err string, status int) {
	s.writeJSON(w, status, APIResponse{Success: false, Error: err})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("http.encode_failed", "error", err)
	}
}

// requestOverrides 헤더의 API 키를 환경 변수 키 위에 얹는다
func (s *Server) requestOverrides(r *http.Request) config.Overrides {
	return s.overrides.Merge(config.Overrides{
		OpenAI:    strings.TrimSpace(r.Header.Get(HeaderOpenAIKey)),
		Anthropic: strings.TrimSpace(r.Header.Get(HeaderAnthropicKey)),
		Gemini:    strings.TrimSpace(r.Header.Get(HeaderGeminiKey)),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// configFailure 설정 로드 실패. 서버 설정 문제이므로 500.
func (s *Server) configFailure(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("http.config_failed", "request_id", RequestID(r.Context()), "error", err)
	msg := "Server configuration could not be loaded"
	var missing *config.MissingError
	if errors.As(err, &missing) {
		msg = "Server configuration file is missing: " + missing.Path
	}
	s.jsonError(w, msg, http.StatusInternalServerError)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.jsonError(w, "잘못된 요청: "+err.Error(), http.StatusBadRequest)
		return
	}

	o := s.requestOverrides(r)
	cfg, err := s.manager.Effective(o)
	if err != nil {
		s.configFailure(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	result, err := s.generator.WithOverrides(o).GenerateQuery(ctx, req)
	if err != nil {
		s.configFailure(w, r, err)
		return
	}
	if !result.Success {
		s.writeJSON(w, http.StatusUnprocessableEntity, APIResponse{Success: false, Data: result, Error: result.ErrorMessage})
		return
	}
	s.jsonResponse(w, generateData{QueryResult: result, Formatted: response.Format(result, cfg)})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	var req models.ExplainRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.jsonError(w, "잘못된 요청: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	result, err := s.generator.WithOverrides(s.requestOverrides(r)).ExplainQuery(ctx, req)
	if err != nil {
		s.configFailure(w, r, err)
		return
	}
	if !result.Success {
		s.writeJSON(w, http.StatusUnprocessableEntity, APIResponse{Success: false, Data: result, Error: result.ErrorMessage})
		return
	}
	s.jsonResponse(w, result)
}

// handleValidate 생성 없이 SQL 안전성 검사와 행 제한 적용 결과만 돌려준다
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.jsonError(w, "잘못된 요청: "+err.Error(), http.StatusBadRequest)
		return
	}
	q := strings.TrimSpace(req.Query)
	if q == "" {
		s.jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	cfg, err := s.manager.Effective(config.Overrides{})
	if err != nil {
		s.configFailure(w, r, err)
		return
	}

	single := response.IsSingleStatement(q)
	data := validateData{
		Query:                q,
		ReadOnly:             response.IsReadOnly(q) && single,
		SingleStatement:      single,
		HasLimit:             response.HasLimit(q),
		TouchesSystemCatalog: response.TouchesSystemCatalog(q),
	}
	if data.ReadOnly && cfg.EnforceLimit {
		if limited, applied := response.ApplyRowLimit(q, cfg.DefaultLimit); applied {
			data.LimitedQuery = limited
		}
	}
	s.jsonResponse(w, data)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	result := s.generator.ListTables(r.Context())
	if !result.Success {
		s.jsonError(w, result.ErrorMessage, http.StatusBadGateway)
		return
	}
	s.jsonResponse(w, result.Tables)
}

func (s *Server) handleTableDetail(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	d := s.generator.TableDetails(r.Context(), name, r.URL.Query().Get("schema"))
	if !d.Success {
		s.jsonError(w, d.ErrorMessage, http.StatusNotFound)
		return
	}
	s.jsonResponse(w, d)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	catalog := s.generator.Catalog()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	pingErr := catalog.Ping(ctx)

	status := map[string]interface{}{
		"catalog":        catalog.Name(),
		"db_connected":   pingErr == nil,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	}
	if pingErr != nil {
		status["db_error"] = pingErr.Error()
	}

	if cfg, err := s.manager.Effective(s.overrides); err == nil {
		var providers []string
		for _, pc := range cfg.Providers {
			if pc.APIKey != "" {
				providers = append(providers, pc.Provider.String())
			}
		}
		status["providers"] = providers
		status["enforce_limit"] = cfg.EnforceLimit
		status["default_limit"] = cfg.DefaultLimit
	}

	s.jsonResponse(w, status)
}
