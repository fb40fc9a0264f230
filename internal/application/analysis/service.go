package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/bryanwahyu/polycode-insight/internal/application"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// ErrHistoryDisabled is returned by read use-cases when no repository is configured.
var ErrHistoryDisabled = errors.New("submission history is not configured")

// Service implements use-cases untuk analysis submissions.
// Each submission gets its own Controller, so Service is safe for concurrent use.
type Service struct {
	Engine  domain.Engine
	Repo    domain.Repository     // optional
	Archive domain.RawArchive     // optional
	Events  domain.EventPublisher // optional
	Clock   application.Clock
	Retry   RetryPolicy

	mu     sync.Mutex
	active map[string]*Subscription
}

// Observer receives every state transition of a submission, in order.
type Observer func(id domain.SubmissionID, ev domain.Event)

func activeKey(tenant string, id domain.SubmissionID) string {
	return tenant + "/" + string(id)
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

// Analyze runs one submission to completion. The returned record is never nil; the
// error is the submission's terminal error (validation, transport, aggregate or
// cancellation). Storing, archiving and publishing use a context detached from ctx so
// a caller that goes away still leaves a record behind.
func (s *Service) Analyze(ctx context.Context, tenant string, req domain.AnalysisRequest, observe Observer) (*domain.Submission, error) {
	id := domain.SubmissionID(uuid.New().String())
	start := s.clock().Now()

	ctrl := NewController(s.Engine, s.Retry, s.Clock)
	sub, err := ctrl.Submit(ctx, req)
	if err != nil {
		return &domain.Submission{ID: id, TenantID: tenant, Status: domain.StateFailed, SubmittedAt: start}, err
	}

	key := activeKey(tenant, id)
	s.register(key, sub)
	defer s.unregister(key)

	bg := context.WithoutCancel(ctx)
	for ev := range sub.Events() {
		if observe != nil {
			observe(id, ev)
		}
		if s.Events != nil {
			if perr := s.Events.Publish(bg, tenant, id, ev); perr != nil {
				log.Printf("[Service] publish event failed id=%s state=%s: %v", id, ev.State, perr)
			}
		}
	}
	res := sub.Wait()

	rec := s.record(id, tenant, req, res, start)
	if res.Raw != nil && s.Archive != nil {
		objKey := fmt.Sprintf("%s/analyses/%s.json", tenant, id)
		url, aerr := s.Archive.PutRaw(bg, objKey, res.Raw.Body)
		if aerr != nil {
			log.Printf("[Service] archive raw response failed id=%s: %v", id, aerr)
		} else {
			rec.RawURL = url
		}
	}
	if s.Repo != nil {
		if serr := s.Repo.Save(bg, rec); serr != nil {
			log.Printf("[Service] save submission failed id=%s: %v", id, serr)
		}
	}

	log.Printf("[Service] submission finished tenant=%s id=%s status=%s attempts=%d duration_ms=%d",
		tenant, id, rec.Status, rec.Attempts, rec.DurationMS)
	return rec, res.Err
}

func (s *Service) record(id domain.SubmissionID, tenant string, req domain.AnalysisRequest, res Result, start time.Time) *domain.Submission {
	rec := &domain.Submission{
		ID:           id,
		TenantID:     tenant,
		SourceCode:   req.SourceCode,
		Status:       res.State,
		Outcome:      res.Outcome,
		Attempts:     res.Attempts,
		SubmittedAt:  start,
		DurationMS:   s.clock().Now().Sub(start).Milliseconds(),
		ErrorKind:    domain.KindOf(res.Err),
		ErrorMessage: errorMessage(res.Err),
	}
	if res.Request != nil {
		rec.SourceLanguage = res.Request.SourceLanguage()
		rec.TargetLanguages = res.Request.TargetLanguages()
	} else {
		rec.SourceLanguage = domain.Language(req.SourceLanguage)
		for _, t := range req.TargetLanguages {
			rec.TargetLanguages = append(rec.TargetLanguages, domain.Language(t))
		}
	}
	if res.Raw != nil {
		rec.Model = res.Raw.Model
	}
	if res.Outcome != nil {
		rec.Summary = res.Outcome.Summary()
	}
	return rec
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *Service) register(key string, sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		s.active = make(map[string]*Subscription)
	}
	s.active[key] = sub
}

func (s *Service) unregister(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}

// InFlight reports how many submissions are running.
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Cancel cancels an in-flight submission. It reports false when no such submission is
// running.
func (s *Service) Cancel(tenant string, id domain.SubmissionID) bool {
	s.mu.Lock()
	sub, ok := s.active[activeKey(tenant, id)]
	s.mu.Unlock()
	if !ok {
		return false
	}
	sub.Cancel()
	return true
}

// Get ambil 1 submission by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.SubmissionID) (*domain.Submission, error) {
	if s.Repo == nil {
		return nil, ErrHistoryDisabled
	}
	return s.Repo.Get(ctx, tenant, id)
}

// List returns one page of past submissions, newest first.
func (s *Service) List(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if s.Repo == nil {
		return domain.PaginatedResult{}, ErrHistoryDisabled
	}
	return s.Repo.Paginate(ctx, tenant, page, pageSize)
}

// Summary rekap hasil submission N hari terakhir
type Summary struct {
	domain.StatusCounts
	Days          int     `json:"days"`
	P50DurationMS float64 `json:"p50_duration_ms"`
	P95DurationMS float64 `json:"p95_duration_ms"`
}

func (s *Service) Summary(ctx context.Context, tenant string, days int) (Summary, error) {
	if s.Repo == nil {
		return Summary{}, ErrHistoryDisabled
	}
	if days <= 0 {
		days = 7
	}
	since := s.clock().Now().AddDate(0, 0, -days)

	counts, err := s.Repo.Summary(ctx, tenant, since)
	if err != nil {
		return Summary{}, fmt.Errorf("summary counts: %w", err)
	}
	durations, err := s.Repo.Durations(ctx, tenant, since)
	if err != nil {
		return Summary{}, fmt.Errorf("summary durations: %w", err)
	}

	out := Summary{StatusCounts: counts, Days: days}
	if len(durations) > 0 {
		data := make(stats.Float64Data, len(durations))
		for i, d := range durations {
			data[i] = float64(d)
		}
		if p, err := stats.Percentile(data, 50); err == nil {
			out.P50DurationMS = p
		}
		if p, err := stats.Percentile(data, 95); err == nil {
			out.P95DurationMS = p
		}
	}
	return out, nil
}
