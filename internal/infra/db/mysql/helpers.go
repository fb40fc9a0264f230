package mysql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

// encodeSubmission serializes the JSON columns; a nil outcome is stored as NULL.
func encodeSubmission(s *domain.Submission) (string, sql.NullString, error) {
	targets := s.TargetLanguages
	if targets == nil {
		targets = []domain.Language{}
	}
	tb, err := json.Marshal(targets)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode target languages: %w", err)
	}
	if s.Outcome == nil {
		return string(tb), sql.NullString{}, nil
	}
	ob, err := json.Marshal(s.Outcome)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode outcome: %w", err)
	}
	return string(tb), sql.NullString{String: string(ob), Valid: true}, nil
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var (
		s         domain.Submission
		targets   string
		outcome   sql.NullString
		errorKind string
	)
	if err := row.Scan(
		&s.ID, &s.TenantID, &s.SubmittedAt, &s.SourceLanguage, &targets, &s.SourceCode,
		&s.Status, &outcome, &s.Summary, &errorKind, &s.ErrorMessage, &s.Attempts, &s.RawURL, &s.Model, &s.DurationMS,
	); err != nil {
		return nil, err
	}
	s.ErrorKind = domain.ErrorKind(errorKind)
	if err := json.Unmarshal([]byte(targets), &s.TargetLanguages); err != nil {
		return nil, fmt.Errorf("decode target languages: %w", err)
	}
	if outcome.Valid && outcome.String != "" {
		s.Outcome = &domain.AnalysisOutcome{}
		if err := json.Unmarshal([]byte(outcome.String), s.Outcome); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
	}
	return &s, nil
}
