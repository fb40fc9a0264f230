package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

func TestGetUserPromptCarriesRequestVerbatim(t *testing.T) {
	code := "for i in range(3):\n    print(i)  # keep {braces}\n"
	v, err := domain.Validate(domain.AnalysisRequest{
		SourceCode:      code,
		SourceLanguage:  "python",
		TargetLanguages: []string{"go", "c#"},
	})
	require.NoError(t, err)

	p := GetUserPrompt(v)
	assert.True(t, strings.HasSuffix(p, code))
	assert.Contains(t, p, "Source language: Python")
	assert.Contains(t, p, "Target languages: Go, C#")
}

func TestGetSystemPromptSchemaIsJSON(t *testing.T) {
	p := GetSystemPrompt()
	schema := p[strings.Index(p, "{"):]
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(schema), &doc))
	for _, key := range []string{"originalComplexity", "translations", "suggestions", "applications", "testCases"} {
		assert.Contains(t, doc, key)
	}
}
