package postgres

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

func TestSaveAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewSubmissionRepository(db)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("sub-9", "-", at, "Go", `["Rust"]`, "package main",
			"failed", nil, "", "cancelled", "analysis cancelled", 1, "", "", int64(15)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(t.Context(), &domain.Submission{
		ID:              "sub-9",
		SourceLanguage:  domain.LangGo,
		TargetLanguages: []domain.Language{domain.LangRust},
		SourceCode:      "package main",
		Status:          domain.StateFailed,
		ErrorKind:       domain.KindCancelled,
		ErrorMessage:    "analysis cancelled",
		Attempts:        1,
		SubmittedAt:     at,
		DurationMS:      15,
	}))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tenant_id=$1 AND id=$2")).
		WithArgs("acme", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	_, err = repo.Get(t.Context(), "acme", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummaryUsesFilterClauses(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	since := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("COUNT(*) FILTER (WHERE status = 'failed')")).
		WithArgs("acme", since).
		WillReturnRows(sqlmock.NewRows([]string{"total", "succeeded", "partial", "failed"}).AddRow(2, 1, 0, 1))

	counts, err := NewSubmissionRepository(db).Summary(t.Context(), "acme", since)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCounts{Total: 2, Succeeded: 1, Failed: 1}, counts)
}
