package prompt

import (
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior polyglot software engineer. You translate code between programming languages and analyse it. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences around the object.

Requirements:
- Output must be a single JSON object.
- "translations" has exactly one entry per requested target language, using the language name exactly as given.
- "code" is the complete idiomatic translation; never leave it empty.
- Complexity values use big-O notation, e.g. "O(n log n)".
- "suggestions" are concrete optimizations of the original code; "applications" are real-world uses of the algorithm.
- "testCases.basic" covers typical inputs and "testCases.edge" covers boundaries; every case has input, expected and description.

Schema (example with empty values):
{
  "originalComplexity": {"time": "<string>", "space": "<string>"},
  "translations": [
    {
      "language": "<target language>",
      "code": "<string>",
      "timeComplexity": "<string>",
      "spaceComplexity": "<string>",
      "explanation": "<string>"
    }
  ],
  "suggestions": ["<string>"],
  "applications": ["<string>"],
  "testCases": {
    "basic": [{"input": "<string>", "expected": "<string>", "description": "<string>"}],
    "edge": [{"input": "<string>", "expected": "<string>", "description": "<string>"}]
  }
}`
}

// GetUserPrompt wraps the submitted code, its language and every target verbatim.
func GetUserPrompt(req domain.ValidatedRequest) string {
	targets := req.TargetLanguages()
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = string(t)
	}
	return fmt.Sprintf("Source language: %s\nTarget languages: %s\n\nSource code:\n%s",
		req.SourceLanguage(), strings.Join(names, ", "), req.SourceCode())
}
