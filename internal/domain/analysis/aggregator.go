package analysis

// Aggregate partitions per-language results into one outcome. Translations follow the
// order of requested, never the engine's order. A requested language without a result
// counts as a missing translation. Aggregate only fails when no language succeeded.
func Aggregate(requested []Language, perLanguage PerLanguageResult, enrichment EnrichmentFields) (*AnalysisOutcome, error) {
	out := &AnalysisOutcome{
		OriginalComplexity: enrichment.OriginalComplexity,
		Suggestions:        nonNil(enrichment.Suggestions),
		Applications:       nonNil(enrichment.Applications),
		TestCases:          enrichment.TestCases,
		Translations:       make([]TranslationUnit, 0, len(requested)),
		Failures:           map[Language]*NormalizationError{},
	}

	seen := make(map[Language]bool, len(requested))
	for _, lang := range requested {
		if seen[lang] {
			continue
		}
		seen[lang] = true
		res, ok := perLanguage[lang]
		switch {
		case !ok:
			out.Failures[lang] = MissingTranslation()
		case res.Err != nil:
			out.Failures[lang] = res.Err
		case res.Unit == nil:
			out.Failures[lang] = MissingTranslation()
		default:
			out.Translations = append(out.Translations, *res.Unit)
		}
	}

	if len(out.Translations) == 0 {
		return nil, &AggregateError{Kind: KindAllTranslationsFailed, Failures: out.Failures}
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
