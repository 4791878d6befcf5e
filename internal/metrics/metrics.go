package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 결과 구분
const (
	OutcomeSuccess       = "success"
	OutcomeValidation    = "validation_error"
	OutcomeProvider      = "provider_error"
	OutcomeSelection     = "selection_error"
	OutcomeCatalog       = "catalog_error"
	OutcomeResponseParse = "parse_error"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pg_ai_query_requests_total",
			Help: "Total number of generate/explain requests by operation, provider and outcome.",
		},
		[]string{"operation", "provider", "outcome"},
	)
	requestDurationMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pg_ai_query_request_duration_ms",
			Help:    "End-to-end request duration in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"operation"},
	)
	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pg_ai_query_provider_calls_total",
			Help: "Total number of HTTP calls to AI providers by status code.",
		},
		[]string{"provider", "status"},
	)
	providerLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pg_ai_query_provider_latency_ms",
			Help:    "AI provider call latency in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		},
		[]string{"provider"},
	)
	rowLimitAppliedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pg_ai_query_row_limit_applied_total",
			Help: "Total number of generated queries that received an automatic row limit.",
		},
	)
	catalogCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pg_ai_query_catalog_cache_total",
			Help: "Catalog cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDurationMs,
		providerCallsTotal,
		providerLatencyMs,
		rowLimitAppliedTotal,
		catalogCacheTotal,
	)
}

// ObserveRequest generate/explain 요청 기록
func ObserveRequest(operation, provider, outcome string, elapsed time.Duration) {
	if provider == "" {
		provider = "none"
	}
	requestsTotal.WithLabelValues(operation, provider, outcome).Inc()
	requestDurationMs.WithLabelValues(operation).Observe(float64(elapsed.Milliseconds()))
}

// ObserveProviderCall 제공자 HTTP 호출 기록. status 0은 전송 오류.
func ObserveProviderCall(provider string, status int, elapsed time.Duration) {
	providerCallsTotal.WithLabelValues(provider, strconv.Itoa(status)).Inc()
	providerLatencyMs.WithLabelValues(provider).Observe(float64(elapsed.Milliseconds()))
}

// IncRowLimitApplied 행 제한 자동 적용 횟수
func IncRowLimitApplied() {
	rowLimitAppliedTotal.Inc()
}

// ObserveCatalogCache hit 또는 miss
func ObserveCatalogCache(hit bool) {
	if hit {
		catalogCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	catalogCacheTotal.WithLabelValues("miss").Inc()
}
