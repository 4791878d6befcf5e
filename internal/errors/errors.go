// Package errors CLI/서버 표면에서 쓰는 사용자용 오류와 종료 코드
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"pg-ai-query/internal/config"
)

// 종료 코드
const (
	ExitSuccess  = 0
	ExitConfig   = 1
	ExitDatabase = 2
	ExitNetwork  = 3
	ExitInput    = 4
	ExitInternal = 10
)

// UserError 원인과 해결 방법을 함께 전달하는 오류
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError 설정 오류
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewDatabaseError 데이터베이스 오류
func NewDatabaseError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitDatabase, Err: err}
}

// NewNetworkError AI 제공자 호출 오류
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNetwork, Err: err}
}

// NewInputError 잘못된 입력
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewInternalError 내부 오류
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// FromConfig 설정 로드 오류를 사용자 오류로 변환
func FromConfig(err error) *UserError {
	var missing *config.MissingError
	if stderrors.As(err, &missing) {
		return NewConfigError(
			"Configuration file not found",
			missing.Error(),
			missing.Guidance(),
			err,
		)
	}
	var perr *config.ParseError
	if stderrors.As(err, &perr) {
		return NewConfigError(
			"Configuration file is malformed",
			perr.Error(),
			"Fix the line above. Values use key = value, quoted values may contain spaces.",
			err,
		)
	}
	return NewConfigError("Cannot load configuration", err.Error(), "", err)
}

// Wrap UserError가 아니면 내부 오류로 감싼다
func Wrap(err error) *UserError {
	if err == nil {
		return nil
	}
	var ue *UserError
	if stderrors.As(err, &ue) {
		return ue
	}
	return NewInternalError("Unexpected error", err.Error(), "", err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format 터미널 출력용. NO_COLOR 환경 변수를 따른다.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(strings.ReplaceAll(e.Fix, "\n", "\n       "))
		out.WriteString("\n")
	}
	return out.String()
}

// ErrorJSON JSON 출력 형식
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON JSON 직렬화용 구조체
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// Print 오류를 출력하고 종료 코드를 돌려준다
func Print(w io.Writer, err error, jsonOutput, noColor bool) int {
	ue := Wrap(err)
	if ue == nil {
		return ExitSuccess
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else {
		fmt.Fprint(w, ue.Format(noColor))
	}
	return ue.ExitCode
}
