package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	apperrors "pg-ai-query/internal/errors"
)

const banner = `
╔═══════════════════════════════════════════════════════════╗
║                    🐘 pg-ai-query                         ║
║        자연어로 PostgreSQL 쿼리 생성 및 실행 계획 분석      ║
╚═══════════════════════════════════════════════════════════╝
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 명령을 실행하고 종료 코드를 돌려준다
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		return apperrors.Print(errOut, err, a.jsonErrors, a.noColor())
	}
	return apperrors.ExitSuccess
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pg-ai-query",
		Short: "Natural language to PostgreSQL queries",
		Long: `pg-ai-query turns natural language requests into PostgreSQL queries using
OpenAI, Anthropic or Gemini, with the database schema as context.

Examples:
  pg-ai-query                                   # interactive mode
  pg-ai-query generate "top 10 customers by revenue"
  pg-ai-query explain "SELECT * FROM orders WHERE total > 100"
  pg-ai-query tables --output yaml
  pg-ai-query describe sales.orders`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.String(keyDSN, "", "PostgreSQL DSN (env PG_AI_DSN)")
	flags.String(keyDriver, "postgres", "database/sql driver: postgres or pgx (env PG_AI_DRIVER)")
	flags.String(keySchemaFile, "", "offline schema snapshot (.json, .yaml or .sql) instead of a live database")
	flags.String(keyConfig, "", "config file path (default ~/.pg_ai.config)")
	flags.Bool(keyNoColor, false, "disable colored output")
	flags.BoolP(keyVerbose, "v", false, "debug logging")
	flags.String(keyOpenAIKey, "", "OpenAI API key for this session")
	flags.String(keyAnthropicKey, "", "Anthropic API key for this session")
	flags.String(keyGeminiKey, "", "Gemini API key for this session")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(newGenerateCommand(a))
	root.AddCommand(newExplainCommand(a))
	root.AddCommand(newTablesCommand(a))
	root.AddCommand(newDescribeCommand(a))
	root.AddCommand(newConfigCommand(a))
	root.AddCommand(&cobra.Command{
		Use:   "interactive",
		Short: "Start the interactive prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd.Context())
		},
	})
	return root
}
