package analysis

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	placeholderComplexity  = "unknown"
	placeholderExplanation = "not provided"
)

// LanguageResult is the tagged result for one target language: exactly one of Unit
// and Err is set.
type LanguageResult struct {
	Unit *TranslationUnit
	Err  *NormalizationError
}

// PerLanguageResult maps every requested language to its own result.
type PerLanguageResult map[Language]LanguageResult

// NormalizedResponse is what Normalize extracts from one engine reply.
type NormalizedResponse struct {
	PerLanguage PerLanguageResult
	Enrichment  EnrichmentFields
}

// Normalize converts an engine reply into the strict result model. It never fails as a
// whole: malformed per-language data turns into per-language errors and malformed
// enrichments degrade to empty values.
func Normalize(raw RawEngineResponse, requested []Language) NormalizedResponse {
	doc := decodeDocument(raw.Body)

	entries := translationEntries(doc["translations"])
	per := make(PerLanguageResult, len(requested))
	for _, lang := range requested {
		entry, ok := entries[lang]
		if !ok {
			per[lang] = LanguageResult{Err: MissingTranslation()}
			continue
		}
		unit, err := translationUnit(lang, entry)
		if err != nil {
			per[lang] = LanguageResult{Err: err}
			continue
		}
		per[lang] = LanguageResult{Unit: unit}
	}

	return NormalizedResponse{
		PerLanguage: per,
		Enrichment: EnrichmentFields{
			OriginalComplexity: complexityReport(doc["originalComplexity"]),
			Suggestions:        stringList(doc["suggestions"]),
			Applications:       stringList(doc["applications"]),
			TestCases:          testCaseSet(doc["testCases"]),
		},
	}
}

// decodeDocument returns the first JSON object in the body, skipping markdown fences
// and chatter the model wrapped around it, or an empty map when there is none.
func decodeDocument(body []byte) map[string]any {
	content := string(body)
	for i := strings.IndexByte(content, '{'); i >= 0; {
		var doc map[string]any
		if err := json.NewDecoder(strings.NewReader(content[i:])).Decode(&doc); err == nil && doc != nil {
			return doc
		}
		next := strings.IndexByte(content[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return map[string]any{}
}

// translationEntries indexes the engine's translations by canonical language. Both an
// array of objects carrying a "language" key and an object keyed by language are
// accepted. The first entry for a language wins.
func translationEntries(v any) map[Language]map[string]any {
	out := map[Language]map[string]any{}
	add := func(name string, entry map[string]any) {
		lang, ok := ParseLanguage(name)
		if !ok {
			return
		}
		if _, dup := out[lang]; dup {
			return
		}
		out[lang] = entry
	}

	switch t := v.(type) {
	case []any:
		for _, item := range t {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := entry["language"].(string)
			add(name, entry)
		}
	case map[string]any:
		names := make([]string, 0, len(t))
		for name := range t {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			entry, ok := t[name].(map[string]any)
			if !ok {
				continue
			}
			add(name, entry)
		}
	}
	return out
}

func translationUnit(lang Language, entry map[string]any) (*TranslationUnit, *NormalizationError) {
	code, ok := entry["code"].(string)
	if !ok {
		return nil, MalformedField("code")
	}
	code = unfence(code)
	if strings.TrimSpace(code) == "" {
		return nil, MalformedField("code")
	}
	return &TranslationUnit{
		Language:        lang,
		Code:            code,
		TimeComplexity:  textOr(entry["timeComplexity"], placeholderComplexity),
		SpaceComplexity: textOr(entry["spaceComplexity"], placeholderComplexity),
		Explanation:     textOr(entry["explanation"], placeholderExplanation),
	}, nil
}

// unfence removes a markdown fence wrapped around a code sample, keeping indentation.
func unfence(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return code
	}
	inner := strings.TrimSuffix(trimmed[3:], "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		inner = inner[nl+1:]
	} else {
		inner = ""
	}
	return strings.Trim(inner, "\r\n")
}

func textOr(v any, fallback string) string {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

func complexityReport(v any) *ComplexityReport {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	timeVal, hasTime := m["time"].(string)
	spaceVal, hasSpace := m["space"].(string)
	hasTime = hasTime && strings.TrimSpace(timeVal) != ""
	hasSpace = hasSpace && strings.TrimSpace(spaceVal) != ""
	if !hasTime && !hasSpace {
		return nil
	}
	return &ComplexityReport{
		Time:  textOr(m["time"], placeholderComplexity),
		Space: textOr(m["space"], placeholderComplexity),
	}
}

// stringList keeps the non-blank strings of an array; anything else degrades to empty.
func stringList(v any) []string {
	out := []string{}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range arr {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func testCaseSet(v any) *TestCaseSet {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &TestCaseSet{
		Basic: testCases(m["basic"]),
		Edge:  testCases(m["edge"]),
	}
}

// testCases drops entries individually when description, input or expected is missing.
func testCases(v any) []TestCase {
	out := []TestCase{}
	arr, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		desc, ok := m["description"].(string)
		if !ok || strings.TrimSpace(desc) == "" {
			continue
		}
		input, ok := scalarText(m["input"])
		if !ok {
			continue
		}
		expected, ok := scalarText(m["expected"])
		if !ok {
			continue
		}
		out = append(out, TestCase{
			Input:       input,
			Expected:    expected,
			Description: strings.TrimSpace(desc),
		})
	}
	return out
}

// scalarText renders a present JSON value as text. Engines often emit inputs as
// numbers or arrays instead of strings; those are kept in compact JSON form.
func scalarText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}
