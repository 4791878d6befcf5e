package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"pg-ai-query/internal/response"
	"pg-ai-query/internal/schema"
	"pg-ai-query/pkg/models"
)

// session 대화형 모드 상태
type session struct {
	provider string
}

func (a *app) runInteractive(ctx context.Context) error {
	if err := a.setup(ctx); err != nil {
		return err
	}

	fmt.Fprint(a.out, banner)
	fmt.Fprintln(a.out, "🎯 대화형 모드 시작 (종료: exit 또는 quit)")
	printHelp(a)

	s := &session{provider: models.PreferenceAuto}
	reader := bufio.NewReader(a.in)

	for {
		fmt.Fprintf(a.out, "%s > ", cyan("["+s.provider+"]"))
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			if err != nil {
				fmt.Fprintln(a.out)
				return nil
			}
			continue
		}

		if input == "exit" || input == "quit" {
			fmt.Fprintln(a.out, "👋 종료합니다!")
			return nil
		}

		if strings.HasPrefix(input, "/") {
			a.handleCommand(ctx, s, input)
		} else {
			a.generateInteractive(ctx, s, input)
		}
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printHelp(a *app) {
	fmt.Fprintln(a.out, "💡 명령어:")
	fmt.Fprintln(a.out, "   /explain <쿼리>    - EXPLAIN ANALYZE 실행 계획 설명")
	fmt.Fprintln(a.out, "   /tables            - 테이블 목록")
	fmt.Fprintln(a.out, "   /describe <테이블> - 테이블 상세 정보")
	fmt.Fprintln(a.out, "   /provider <이름>   - 제공자 선택 (openai, anthropic, gemini, auto)")
	fmt.Fprintln(a.out)
}

func (a *app) generateInteractive(ctx context.Context, s *session, input string) {
	fmt.Fprintln(a.out, gray("🔄 쿼리 생성 중..."))
	start := time.Now()

	result, err := a.gen.GenerateQuery(ctx, models.QueryRequest{NaturalLanguage: input, Provider: s.provider})
	if err != nil {
		fmt.Fprintf(a.out, "❌ 오류: %v\n\n", err)
		return
	}
	if !result.Success {
		fmt.Fprintf(a.out, "❌ %s\n\n", yellow(result.ErrorMessage))
		return
	}

	cfg, err := a.manager.Config()
	if err != nil {
		fmt.Fprintf(a.out, "❌ 오류: %v\n\n", err)
		return
	}

	fmt.Fprintln(a.out, "\n"+strings.Repeat("─", 60))
	fmt.Fprintln(a.out, response.Format(result, cfg))
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "⏱️  생성 시간: %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintln(a.out, strings.Repeat("─", 60))
	fmt.Fprintln(a.out)
}

func (a *app) handleCommand(ctx context.Context, s *session, cmd string) {
	parts := strings.SplitN(cmd, " ", 2)
	command := strings.ToLower(parts[0])
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch command {
	case "/explain":
		if arg == "" {
			fmt.Fprintln(a.out, "❌ 사용법: /explain <쿼리>")
			return
		}
		result, err := a.gen.ExplainQuery(ctx, models.ExplainRequest{QueryText: arg, Provider: s.provider})
		if err != nil {
			fmt.Fprintf(a.out, "❌ 오류: %v\n", err)
			return
		}
		if !result.Success {
			fmt.Fprintf(a.out, "❌ %s\n", yellow(result.ErrorMessage))
			return
		}
		fmt.Fprintln(a.out, response.FormatExplain(result))
	case "/tables":
		result := a.gen.ListTables(ctx)
		if !result.Success {
			fmt.Fprintf(a.out, "❌ %s\n", yellow(result.ErrorMessage))
			return
		}
		fmt.Fprint(a.out, schema.FormatTableList(result.Tables))
	case "/describe":
		if arg == "" {
			fmt.Fprintln(a.out, "❌ 사용법: /describe <테이블>")
			return
		}
		d := a.gen.TableDetails(ctx, arg, "")
		if !d.Success {
			fmt.Fprintf(a.out, "❌ %s\n", yellow(d.ErrorMessage))
			return
		}
		fmt.Fprint(a.out, schema.FormatTableDetails(*d))
	case "/provider":
		name := strings.ToLower(arg)
		if name != models.PreferenceAuto && models.ParseProvider(name) == models.ProviderUnknown {
			fmt.Fprintln(a.out, "❌ 사용법: /provider <openai|anthropic|gemini|auto>")
			return
		}
		s.provider = name
		fmt.Fprintln(a.out, green("✅ "+bold(name)+" 제공자로 전환"))
	case "/help":
		printHelp(a)
		return
	default:
		fmt.Fprintln(a.out, "❌ 알 수 없는 명령어:", command)
	}
	fmt.Fprintln(a.out)
}
