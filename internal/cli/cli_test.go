package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/polycode-insight/internal/config"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

func init() {
	color.NoColor = true
}

type stubEngine struct {
	body string
	err  error
	got  []domain.Language
}

func (e *stubEngine) Dispatch(ctx context.Context, req domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	e.got = req.TargetLanguages()
	if e.err != nil {
		return domain.RawEngineResponse{}, e.err
	}
	return domain.RawEngineResponse{Body: []byte(e.body)}, nil
}

func factory(e *stubEngine) EngineFactory {
	return func(ctx context.Context, cfg config.EngineConfig) (domain.Engine, error) {
		return e, nil
	}
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, k := range []string{"LLM_PROVIDER", "DATABASE_DRIVER"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

const goRust = `{"translations":[
  {"language":"Go","code":"func sum() {}"},
  {"language":"Rust","code":"fn sum() {}"}
]}`

func TestAnalyzeFromStdinJSON(t *testing.T) {
	eng := &stubEngine{body: goRust}
	out, _, err := run(t, NewAnalyzeCmd(factory(eng)), "def sum(): pass",
		"-s", "python", "-t", "go", "-t", "rust", "-o", "json")
	require.NoError(t, err)

	var rec domain.Submission
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, domain.StateSucceeded, rec.Status)
	assert.Equal(t, []domain.Language{domain.LangGo, domain.LangRust}, eng.got)
}

func TestAnalyzeFromFileHumanPartial(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sum.py")
	require.NoError(t, os.WriteFile(src, []byte("def sum(): pass"), 0o600))

	eng := &stubEngine{body: `{"translations":[{"language":"Go","code":"func sum() {}"}]}`}
	out, errOut, err := run(t, NewAnalyzeCmd(factory(eng)), "",
		"-s", "Python", "-t", "Go,Rust", "-f", src, "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 2 languages failed")
	assert.Contains(t, out, "func sum() {}")
	assert.Contains(t, errOut, "1 of 2 languages failed")
}

func TestAnalyzeFailedExitsWithError(t *testing.T) {
	eng := &stubEngine{body: goRust}
	_, errOut, err := run(t, NewAnalyzeCmd(factory(eng)), "x", "-s", "Go", "-t", "Go", "-q")
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Contains(t, errOut, "Fix your input")
	assert.Nil(t, eng.got)

	eng = &stubEngine{err: domain.StatusError(401, nil)}
	out, _, err := run(t, NewAnalyzeCmd(factory(eng)), "x", "-s", "Go", "-t", "Rust", "-o", "yaml")
	require.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Contains(t, out, "status: failed")
	assert.Contains(t, out, "errorkind: unauthorized")
}

func TestAnalyzeRequiresFlags(t *testing.T) {
	_, _, err := run(t, NewAnalyzeCmd(factory(&stubEngine{})), "x", "-s", "Go")
	assert.ErrorContains(t, err, `required flag(s) "target" not set`)
}

func TestLanguagesCmd(t *testing.T) {
	out, _, err := run(t, NewLanguagesCmd(), "", "-o", "json")
	require.NoError(t, err)
	var langs []string
	require.NoError(t, json.Unmarshal([]byte(out), &langs))
	assert.Equal(t, "Python", langs[0])
	assert.Contains(t, langs, "C#")

	out, _, err = run(t, NewLanguagesCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "  • Kotlin")
}

func TestProgressMessage(t *testing.T) {
	assert.Equal(t, "Waiting for the analysis engine...", progressMessage(domain.Event{State: domain.StateDispatching, Attempt: 1}))
	assert.Equal(t, "Waiting for the analysis engine (attempt 3)...", progressMessage(domain.Event{State: domain.StateDispatching, Attempt: 3}))
}
