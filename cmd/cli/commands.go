package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pg-ai-query/internal/config"
	apperrors "pg-ai-query/internal/errors"
	"pg-ai-query/internal/response"
	"pg-ai-query/internal/schema"
	"pg-ai-query/pkg/models"
)

// requestFlags generate/explain 공통 플래그
type requestFlags struct {
	provider string
	apiKey   string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.provider, "provider", "p", models.PreferenceAuto, "openai, anthropic, gemini or auto")
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "API key for this request")
}

func generationFailed(msg string) error {
	return apperrors.NewNetworkError("Query generation failed", msg, "", nil)
}

func newGenerateCommand(a *app) *cobra.Command {
	var rf requestFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate <request...>",
		Short: "Generate a SQL query from natural language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.jsonErrors = jsonOutput
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			cfg, err := a.manager.Config()
			if err != nil {
				return apperrors.FromConfig(err)
			}

			result, err := a.gen.GenerateQuery(cmd.Context(), models.QueryRequest{
				NaturalLanguage: strings.Join(args, " "),
				APIKey:          rf.apiKey,
				Provider:        rf.provider,
			})
			if err != nil {
				return apperrors.FromConfig(err)
			}
			if !result.Success {
				return generationFailed(result.ErrorMessage)
			}

			if jsonOutput {
				cfg.UseFormattedResponse = true
			}
			fmt.Fprintln(a.out, response.Format(result, cfg))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output regardless of use_formatted_response")
	return cmd
}

func newExplainCommand(a *app) *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "explain <sql>",
		Short: "Run EXPLAIN ANALYZE and explain the plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			result, err := a.gen.ExplainQuery(cmd.Context(), models.ExplainRequest{
				QueryText: strings.Join(args, " "),
				APIKey:    rf.apiKey,
				Provider:  rf.provider,
			})
			if err != nil {
				return apperrors.FromConfig(err)
			}
			if !result.Success {
				return apperrors.NewNetworkError("Query explanation failed", result.ErrorMessage, "", nil)
			}
			fmt.Fprintln(a.out, response.FormatExplain(result))
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newTablesCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List user tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			result := a.gen.ListTables(cmd.Context())
			if !result.Success {
				return apperrors.NewDatabaseError("Failed to get database tables", result.ErrorMessage, "", nil)
			}
			if output == "text" {
				fmt.Fprint(a.out, schema.FormatTableList(result.Tables))
				return nil
			}
			return a.printStructured(output, result, func() (string, error) {
				return response.JSONTables(result.Tables)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "text, json or yaml")
	return cmd
}

func newDescribeCommand(a *app) *cobra.Command {
	var output, schemaName string

	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Show columns and indexes of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd.Context()); err != nil {
				return err
			}
			d := a.gen.TableDetails(cmd.Context(), args[0], schemaName)
			if !d.Success {
				return apperrors.NewDatabaseError("Failed to get table details", d.ErrorMessage, "Run 'pg-ai-query tables' to see available tables.", nil)
			}
			if output == "text" {
				fmt.Fprint(a.out, schema.FormatTableDetails(*d))
				return nil
			}
			return a.printStructured(output, d, func() (string, error) {
				return response.JSONTableDetails(*d)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "text, json or yaml")
	cmd.Flags().StringVarP(&schemaName, "schema", "s", "", "schema name (default public, or taken from schema.table)")
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with API keys redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(); err != nil {
				return err
			}
			cfg, err := a.manager.Config()
			if err != nil {
				return apperrors.FromConfig(err)
			}
			text, err := redactedConfig(cfg)
			if err != nil {
				return apperrors.NewInternalError("Cannot encode configuration", err.Error(), "", err)
			}
			fmt.Fprintln(a.out, text)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.v.GetString(keyConfig)
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return apperrors.FromConfig(err)
				}
			}
			fmt.Fprintln(a.out, path)
			return nil
		},
	})
	return cmd
}
