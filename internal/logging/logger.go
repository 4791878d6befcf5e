package logging

import (
	"io"
	"log/slog"
	"strings"

	"pg-ai-query/internal/config"
)

// ParseLevel 설정 파일 log_level 값을 slog 레벨로 변환. 알 수 없는 값은 INFO.
func ParseLevel(value string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options 로거 생성 옵션
type Options struct {
	JSON    bool
	Verbose bool // enable_logging과 무관하게 DEBUG
}

// New 설정에 맞는 로거 생성.
// enable_logging=false이면 경고 이상만 기록한다.
func New(cfg *config.Configuration, w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = io.Discard
	}

	level := slog.LevelWarn
	if cfg != nil && cfg.EnableLogging {
		level = ParseLevel(cfg.LogLevel)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler).With(slog.String("service", "pg-ai-query"))
}

// Bootstrap 설정 로드 전에 쓰는 로거
func Bootstrap(w io.Writer, verbose bool) *slog.Logger {
	return New(nil, w, Options{Verbose: verbose})
}
