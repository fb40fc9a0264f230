package analysis

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

const goRustReply = `{
  "originalComplexity": {"time": "O(n)", "space": "O(1)"},
  "translations": [
    {"language": "Rust", "code": "fn sum(v: &[i32]) -> i32 { v.iter().sum() }"},
    {"language": "Go", "code": "func sum(v []int) int { t := 0; for _, x := range v { t += x }; return t }"}
  ],
  "suggestions": ["use a builtin"],
  "applications": ["reporting"]
}`

type reply struct {
	body string
	err  error
}

// scriptedEngine returns replies in order and repeats the last one.
type scriptedEngine struct {
	mu      sync.Mutex
	replies []reply
	calls   int
}

func (e *scriptedEngine) Dispatch(ctx context.Context, req domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.replies[min(e.calls, len(e.replies)-1)]
	e.calls++
	if r.err != nil {
		return domain.RawEngineResponse{}, r.err
	}
	return domain.RawEngineResponse{Body: []byte(r.body), Model: "fake"}, nil
}

func (e *scriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// blockingEngine holds every call until release is closed, ignoring ctx, then succeeds.
type blockingEngine struct {
	started  chan struct{}
	release  chan struct{}
	returned chan struct{}
	once     sync.Once
	retOnce  sync.Once
}

func newBlockingEngine() *blockingEngine {
	return &blockingEngine{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		returned: make(chan struct{}),
	}
}

func (e *blockingEngine) Dispatch(ctx context.Context, req domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	e.once.Do(func() { close(e.started) })
	<-e.release
	defer e.retOnce.Do(func() { close(e.returned) })
	return domain.RawEngineResponse{Body: []byte(goRustReply)}, nil
}

type memoryRepo struct {
	mu        sync.Mutex
	saved     map[domain.SubmissionID]*domain.Submission
	counts    domain.StatusCounts
	durations []int64
	since     time.Time
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{saved: map[domain.SubmissionID]*domain.Submission{}}
}

func (r *memoryRepo) Save(ctx context.Context, s *domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.saved[s.ID] = &cp
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, tenant string, id domain.SubmissionID) (*domain.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.saved[id]
	if !ok || s.TenantID != tenant {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (r *memoryRepo) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var data []*domain.Submission
	for _, s := range r.saved {
		if s.TenantID == tenant {
			data = append(data, s)
		}
	}
	sort.Slice(data, func(i, j int) bool { return data[i].SubmittedAt.After(data[j].SubmittedAt) })
	return domain.PaginatedResult{Data: data, Page: page, PageSize: pageSize, Total: int64(len(data)), TotalPages: 1}, nil
}

func (r *memoryRepo) Summary(ctx context.Context, tenant string, since time.Time) (domain.StatusCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.since = since
	return r.counts, nil
}

func (r *memoryRepo) Durations(ctx context.Context, tenant string, since time.Time) ([]int64, error) {
	return r.durations, nil
}

type memoryArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *memoryArchive) PutRaw(ctx context.Context, key string, body []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return "s3://raw/" + key, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, tenant string, id domain.SubmissionID, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) States() []domain.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.State, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.State
	}
	return out
}
