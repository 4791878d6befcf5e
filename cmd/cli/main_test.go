package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pg-ai-query/internal/ai"
	apperrors "pg-ai-query/internal/errors"
	"pg-ai-query/pkg/models"
)

const cliDDL = `
CREATE TABLE users (
    id serial PRIMARY KEY,
    email text NOT NULL
);
CREATE INDEX users_email_idx ON users (email);
`

type stubClient struct {
	reply string
}

func (s stubClient) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	return s.reply, nil
}
func (stubClient) Provider() models.Provider { return models.ProviderOpenAI }
func (stubClient) Name() string              { return "openai" }

type fixture struct {
	configPath string
	schemaPath string
}

func newFixture(t *testing.T, configText string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		configPath: filepath.Join(dir, ".pg_ai.config"),
		schemaPath: filepath.Join(dir, "schema.sql"),
	}
	require.NoError(t, os.WriteFile(f.configPath, []byte(configText), 0o600))
	require.NoError(t, os.WriteFile(f.schemaPath, []byte(cliDDL), 0o600))
	return f
}

func (f fixture) args(extra ...string) []string {
	return append([]string{"--config", f.configPath, "--schema-file", f.schemaPath, "--no-color"}, extra...)
}

// execute run과 같은 경로로 실행하되 AI 클라이언트와 환경을 교체한다
func execute(t *testing.T, stdin string, factory ai.Factory, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := newApp(strings.NewReader(stdin), &out, &errOut)
	a.lookup = func(string) (string, bool) { return "", false }
	if factory != nil {
		a.factory = factory
	}
	defer a.close()

	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)

	code := apperrors.ExitSuccess
	if err := root.ExecuteContext(context.Background()); err != nil {
		code = apperrors.Print(&errOut, err, a.jsonErrors, true)
	}
	return out.String(), errOut.String(), code
}

func stubFactory(reply string) ai.Factory {
	return func(p models.Provider, opts ai.ClientOptions) (ai.Client, error) {
		return stubClient{reply: reply}, nil
	}
}

func TestTablesCommand(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")

	out, _, code := execute(t, "", nil, f.args("tables")...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, "Available tables:")
	assert.Contains(t, out, "- public.users (BASE TABLE, ~0 rows)")

	out, _, code = execute(t, "", nil, f.args("tables", "--output", "json")...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, `"table_name": "users"`)

	_, errOut, code := execute(t, "", nil, f.args("tables", "--output", "xml")...)
	assert.Equal(t, apperrors.ExitInput, code)
	assert.Contains(t, errOut, "Unknown output format 'xml'")
}

func TestDescribeCommand(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")

	out, _, code := execute(t, "", nil, f.args("describe", "public.users", "--output", "yaml")...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, "table_name: users")
	assert.Contains(t, out, "- users_email_idx")
	assert.NotContains(t, out, "success")

	_, errOut, code := execute(t, "", nil, f.args("describe", "ghosts")...)
	assert.Equal(t, apperrors.ExitDatabase, code)
	assert.Contains(t, errOut, "does not exist")
}

func TestGenerateCommand(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")
	factory := stubFactory(`{"generated_query": "SELECT id FROM users", "explanation": "All user ids."}`)

	out, _, code := execute(t, "", factory, f.args("generate", "--json", "list", "user", "ids")...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, `"query": "SELECT id FROM users LIMIT 1000"`)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, `"row_limit_applied": true`)

	out, _, code = execute(t, "", factory, f.args("generate", "list", "user", "ids")...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.True(t, strings.HasPrefix(out, "-- Query:\nSELECT id FROM users LIMIT 1000"), out)
}

func TestGenerateCommandWithoutKey(t *testing.T) {
	f := newFixture(t, "[general]\nlog_level = INFO\n")

	_, errOut, code := execute(t, "", stubFactory("{}"), f.args("generate", "list users")...)
	assert.Equal(t, apperrors.ExitNetwork, code)
	assert.Contains(t, errOut, "No API key configured")
}

func TestSessionKeyFlag(t *testing.T) {
	f := newFixture(t, "[general]\nlog_level = INFO\n")
	factory := stubFactory(`{"generated_query": "SELECT 1"}`)

	_, _, code := execute(t, "", factory, f.args("--gemini-key", "gm-secret-key", "generate", "one")...)
	assert.Equal(t, apperrors.ExitSuccess, code)
}

func TestConfigShowRedactsKeys(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-abcdefghijkl\n")

	out, _, code := execute(t, "", nil, "--config", f.configPath, "config", "show")
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, `"api_key": "sk-a****"`)
	assert.Contains(t, out, `"provider": "openai"`)
	assert.NotContains(t, out, "sk-abcdefghijkl")

	out, _, code = execute(t, "", nil, "--config", f.configPath, "config", "path")
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Equal(t, f.configPath+"\n", out)
}

func TestMissingConfigExitCode(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".pg_ai.config")

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--config", missing, "--no-color", "tables"}, strings.NewReader(""), &out, &errOut)
	assert.Equal(t, apperrors.ExitConfig, code)
	assert.Contains(t, errOut.String(), "Configuration file not found")
	assert.Contains(t, errOut.String(), "cat > "+missing)
}

func TestNoDatabaseConfigured(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")
	t.Setenv("PG_AI_DSN", "")

	_, errOut, code := execute(t, "", nil, "--config", f.configPath, "--no-color", "tables")
	assert.Equal(t, apperrors.ExitInput, code)
	assert.Contains(t, errOut, "No database configured")
}

func TestSchemaFileFromEnvironment(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")
	t.Setenv("PG_AI_SCHEMA_FILE", f.schemaPath)

	out, _, code := execute(t, "", nil, "--config", f.configPath, "--no-color", "tables")
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, "public.users")
}

func TestInteractiveSession(t *testing.T) {
	f := newFixture(t, "[openai]\napi_key = sk-test\n")
	factory := stubFactory(`{"generated_query": "SELECT email FROM users"}`)
	stdin := "/tables\n/provider nope\n/provider openai\nemails of users\n/describe users\nexit\n"

	out, _, code := execute(t, stdin, factory, f.args()...)
	require.Equal(t, apperrors.ExitSuccess, code)
	assert.Contains(t, out, "Available tables:")
	assert.Contains(t, out, "사용법: /provider")
	assert.Contains(t, out, "openai 제공자로 전환")
	assert.Contains(t, out, "SELECT email FROM users LIMIT 1000")
	assert.Contains(t, out, "Table: public.users")
	assert.Contains(t, out, "종료합니다")
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "", redact(""))
	assert.Equal(t, "****", redact("short"))
	assert.Equal(t, "sk-p****", redact("sk-proj-123456"))
}
