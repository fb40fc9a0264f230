package formatter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

func init() {
	color.NoColor = true
}

func sample() *domain.Submission {
	return &domain.Submission{
		ID:              "sub-1",
		SourceLanguage:  domain.LangPython,
		TargetLanguages: []domain.Language{domain.LangGo, domain.LangRust},
		Status:          domain.StatePartiallySucceeded,
		Outcome: &domain.AnalysisOutcome{
			OriginalComplexity: &domain.ComplexityReport{Time: "O(n)", Space: "O(1)"},
			Suggestions:        []string{"Use sum()"},
			Translations: []domain.TranslationUnit{
				{Language: domain.LangGo, Code: "func sum() {}", TimeComplexity: "O(n)", SpaceComplexity: "O(1)"},
			},
			Failures: map[domain.Language]*domain.NormalizationError{
				domain.LangRust: domain.MissingTranslation(),
			},
		},
	}
}

func TestDisplayHuman(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, sample(), "human"))
	out := buf.String()

	assert.Contains(t, out, "1 of 2 languages failed")
	assert.Contains(t, out, "time O(n), space O(1)")
	assert.Contains(t, out, "   func sum() {}")
	assert.Contains(t, out, "Rust: translation missing from engine response")
	assert.Contains(t, out, "1. Use sum()")
}

func TestDisplayHumanFailed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DisplayResults(&buf, &domain.Submission{
		Status: domain.StateFailed, ErrorKind: domain.KindUnauthorized, ErrorMessage: "engine unauthorized (status 401)",
	}, ""))
	assert.Contains(t, buf.String(), "ANALYSIS FAILED (unauthorized)")
}

func TestDisplayMachineFormats(t *testing.T) {
	var js bytes.Buffer
	require.NoError(t, DisplayResults(&js, sample(), "json"))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, "partially_succeeded", decoded["status"])

	var ym bytes.Buffer
	require.NoError(t, DisplayResults(&ym, sample(), "yaml"))
	var node map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &node))
	assert.Equal(t, "sub-1", node["id"])

	var md bytes.Buffer
	require.NoError(t, DisplayResults(&md, sample(), "markdown"))
	assert.True(t, strings.HasPrefix(md.String(), "# Analysis sub-1"))

	assert.ErrorContains(t, DisplayResults(&bytes.Buffer{}, sample(), "xml"), "unknown output format")
}

func TestDisplayError(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &domain.ValidationError{Kind: domain.KindEmptyCode})
	assert.Contains(t, buf.String(), "Fix your input: source code is empty.")
	assert.Contains(t, buf.String(), "kind=empty_code category=fix_input")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "  aaa bbb\n  ccc", wrapText("aaa bbb ccc", 10, "  "))
}
