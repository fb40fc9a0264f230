package analysis

import "fmt"

// AnalysisRequest is what a caller submits. It is built fresh per submission.
type AnalysisRequest struct {
	SourceCode      string   `json:"sourceCode"`
	SourceLanguage  string   `json:"sourceLanguage"`
	TargetLanguages []string `json:"targetLanguages"`
}

// ValidatedRequest can only be obtained from Validate, so holding one proves the
// request satisfied every validation rule. Accessors return copies.
type ValidatedRequest struct {
	sourceCode      string
	sourceLanguage  Language
	targetLanguages []Language
}

func (v ValidatedRequest) SourceCode() string       { return v.sourceCode }
func (v ValidatedRequest) SourceLanguage() Language { return v.sourceLanguage }

// TargetLanguages returns the targets in the caller's original order.
func (v ValidatedRequest) TargetLanguages() []Language {
	out := make([]Language, len(v.targetLanguages))
	copy(out, v.targetLanguages)
	return out
}

// ComplexityReport holds free-form complexity notation, e.g. "O(n log n)".
type ComplexityReport struct {
	Time  string `json:"time"`
	Space string `json:"space"`
}

// TranslationUnit is one complete translation for one target language.
type TranslationUnit struct {
	Language        Language `json:"language"`
	Code            string   `json:"code"`
	TimeComplexity  string   `json:"timeComplexity"`
	SpaceComplexity string   `json:"spaceComplexity"`
	Explanation     string   `json:"explanation"`
}

// TestCase is illustrative only; nothing executes it.
type TestCase struct {
	Input       string `json:"input"`
	Expected    string `json:"expected"`
	Description string `json:"description"`
}

type TestCaseSet struct {
	Basic []TestCase `json:"basic"`
	Edge  []TestCase `json:"edge"`
}

// EnrichmentFields are the optional top-level parts of an engine response.
type EnrichmentFields struct {
	OriginalComplexity *ComplexityReport `json:"originalComplexity,omitempty"`
	Suggestions        []string          `json:"suggestions"`
	Applications       []string          `json:"applications"`
	TestCases          *TestCaseSet      `json:"testCases,omitempty"`
}

// AnalysisOutcome is the aggregate result of one orchestration run. Every requested
// language is in exactly one of Translations or Failures.
type AnalysisOutcome struct {
	OriginalComplexity *ComplexityReport                `json:"originalComplexity"`
	Suggestions        []string                         `json:"suggestions"`
	Applications       []string                         `json:"applications"`
	TestCases          *TestCaseSet                     `json:"testCases"`
	Translations       []TranslationUnit                `json:"translations"`
	Failures           map[Language]*NormalizationError `json:"failures"`
}

// Requested is the number of target languages the outcome accounts for.
func (o *AnalysisOutcome) Requested() int {
	return len(o.Translations) + len(o.Failures)
}

// Partial reports whether at least one requested language failed.
func (o *AnalysisOutcome) Partial() bool {
	return len(o.Failures) > 0
}

// Summary is the short line shown next to a result, e.g. "1 of 3 languages failed".
func (o *AnalysisOutcome) Summary() string {
	if len(o.Failures) == 0 {
		return fmt.Sprintf("Successfully translated to %d language(s)", len(o.Translations))
	}
	return fmt.Sprintf("%d of %d languages failed", len(o.Failures), o.Requested())
}

// RawEngineResponse is the engine's reply before any interpretation.
type RawEngineResponse struct {
	Body  []byte
	Model string
}
