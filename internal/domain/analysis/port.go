package analysis

import (
	"context"
	"time"
)

// Engine is the external code-analysis collaborator. One Dispatch is exactly one
// outbound call; failures are reported as *TransportError.
type Engine interface {
	Dispatch(ctx context.Context, req ValidatedRequest) (RawEngineResponse, error)
}

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, s *Submission) error
	Get(ctx context.Context, tenant string, id SubmissionID) (*Submission, error)
	Paginate(ctx context.Context, tenant string, page, pageSize int) (PaginatedResult, error)
	Summary(ctx context.Context, tenant string, since time.Time) (StatusCounts, error)
	Durations(ctx context.Context, tenant string, since time.Time) ([]int64, error)
}

// RawArchive keeps engine replies verbatim for later inspection.
type RawArchive interface {
	PutRaw(ctx context.Context, key string, body []byte) (string, error)
}

// EventPublisher fans state transitions out to other consumers.
type EventPublisher interface {
	Publish(ctx context.Context, tenant string, id SubmissionID, ev Event) error
}
