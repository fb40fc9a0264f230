package analysis

import "time"

// SubmissionID identifies one persisted submission.
type SubmissionID string

// Submission is the stored record of one orchestration run.
type Submission struct {
	ID              SubmissionID     `json:"id"`
	TenantID        string           `json:"tenant_id"`
	SourceLanguage  Language         `json:"source_language"`
	TargetLanguages []Language       `json:"target_languages"`
	SourceCode      string           `json:"source_code,omitempty"`
	Status          State            `json:"status"`
	Outcome         *AnalysisOutcome `json:"outcome,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	ErrorKind       ErrorKind        `json:"error_kind,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Attempts        int              `json:"attempts"`
	RawURL          string           `json:"raw_url,omitempty"`
	Model           string           `json:"model,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	DurationMS      int64            `json:"duration_ms"`
}

// PaginatedResult represents a page of submissions with its metadata.
type PaginatedResult struct {
	Data       []*Submission `json:"data"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Total      int64         `json:"totalItems"`
	TotalPages int           `json:"totalPages"`
}

// StatusCounts aggregates submissions by terminal state.
type StatusCounts struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Partial   int `json:"partially_succeeded"`
	Failed    int `json:"failed"`
}
