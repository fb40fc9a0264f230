package analysis

import "strings"

// Validate checks a raw request and returns its canonical, immutable form.
// It has no side effects, so calling it twice yields the same result.
func Validate(req AnalysisRequest) (ValidatedRequest, error) {
	if strings.TrimSpace(req.SourceCode) == "" {
		return ValidatedRequest{}, &ValidationError{Kind: KindEmptyCode}
	}

	source, ok := ParseLanguage(req.SourceLanguage)
	if !ok {
		return ValidatedRequest{}, &ValidationError{Kind: KindInvalidLanguage, Language: req.SourceLanguage}
	}

	if len(req.TargetLanguages) == 0 {
		return ValidatedRequest{}, &ValidationError{Kind: KindNoTargetLanguages}
	}

	targets := make([]Language, 0, len(req.TargetLanguages))
	seen := make(map[Language]bool, len(req.TargetLanguages))
	for _, name := range req.TargetLanguages {
		l, ok := ParseLanguage(name)
		if !ok {
			return ValidatedRequest{}, &ValidationError{Kind: KindInvalidLanguage, Language: name}
		}
		if seen[l] {
			continue
		}
		seen[l] = true
		targets = append(targets, l)
	}

	if seen[source] {
		return ValidatedRequest{}, &ValidationError{Kind: KindSourceEqualsTarget, Language: string(source)}
	}

	return ValidatedRequest{
		sourceCode:      req.SourceCode,
		sourceLanguage:  source,
		targetLanguages: targets,
	}, nil
}
