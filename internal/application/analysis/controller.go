package analysis

import (
	"context"
	"log"
	"sync"

	"github.com/bryanwahyu/polycode-insight/internal/application"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

// Result is the terminal value of one submission.
type Result struct {
	State    domain.State
	Outcome  *domain.AnalysisOutcome
	Err      error
	Attempts int

	// Request is set once validation passed.
	Request *domain.ValidatedRequest
	// Raw is the engine reply that was normalized, nil if dispatch never succeeded.
	Raw *domain.RawEngineResponse
}

// Controller coordinates validation, dispatch with retries, normalization and
// aggregation for one submission at a time.
type Controller struct {
	engine domain.Engine
	retry  RetryPolicy
	clock  application.Clock

	mu      sync.Mutex
	state   domain.State
	current *Subscription
}

func NewController(engine domain.Engine, retry RetryPolicy, clock application.Clock) *Controller {
	if clock == nil {
		clock = application.SystemClock{}
	}
	if retry.MaxRetries < 0 {
		retry.MaxRetries = 0
	}
	return &Controller{engine: engine, retry: retry, clock: clock, state: domain.StateIdle}
}

// State returns the state of the most recent submission.
func (c *Controller) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscription observes one submission: its transitions on Events and its Result
// through Wait. Events is closed right after the terminal event.
type Subscription struct {
	ctrl   *Controller
	events chan domain.Event
	done   chan struct{}
	cancel context.CancelFunc

	// guarded by ctrl.mu
	finished bool
	attempts int
	result   Result
}

func (s *Subscription) Events() <-chan domain.Event { return s.events }
func (s *Subscription) Done() <-chan struct{}       { return s.done }

// Wait blocks until the submission is terminal.
func (s *Subscription) Wait() Result {
	<-s.done
	s.ctrl.mu.Lock()
	defer s.ctrl.mu.Unlock()
	return s.result
}

// Cancel ends a pending submission as Failed(Cancelled). Whatever the in-flight engine
// call returns afterwards is discarded. Cancelling a terminal submission is a no-op.
func (s *Subscription) Cancel() {
	if s.ctrl.finish(s, Result{State: domain.StateFailed, Err: domain.ErrCancelled}) {
		log.Printf("[Controller] submission cancelled")
	}
	s.cancel()
}

// Submit starts a submission. It fails with ErrAlreadyInProgress while a previous
// submission of this controller is not terminal. Ending ctx cancels the submission.
func (c *Controller) Submit(ctx context.Context, req domain.AnalysisRequest) (*Subscription, error) {
	c.mu.Lock()
	if c.current != nil && !c.current.finished {
		c.mu.Unlock()
		return nil, domain.ErrAlreadyInProgress
	}
	runCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ctrl: c,
		// validating + every dispatch attempt + normalizing + terminal
		events: make(chan domain.Event, c.retry.MaxRetries+4),
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.current = sub
	c.state = domain.StateIdle
	c.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Cancel)
	go func() {
		defer cancel()
		defer stop()
		c.run(runCtx, sub, req)
	}()
	return sub, nil
}

func (c *Controller) run(ctx context.Context, sub *Subscription, req domain.AnalysisRequest) {
	if !c.advance(sub, domain.StateValidating, 0) {
		return
	}
	vreq, err := domain.Validate(req)
	if err != nil {
		c.finish(sub, Result{State: domain.StateFailed, Err: err})
		return
	}

	raw, err := c.dispatch(ctx, sub, vreq)
	if err != nil {
		c.finish(sub, Result{State: domain.StateFailed, Err: err, Request: &vreq})
		return
	}

	if !c.advance(sub, domain.StateNormalizing, 0) {
		return
	}
	targets := vreq.TargetLanguages()
	norm := domain.Normalize(raw, targets)
	outcome, err := domain.Aggregate(targets, norm.PerLanguage, norm.Enrichment)

	res := Result{Outcome: outcome, Err: err, Request: &vreq, Raw: &raw}
	switch {
	case err != nil:
		res.State = domain.StateFailed
	case outcome.Partial():
		res.State = domain.StatePartiallySucceeded
	default:
		res.State = domain.StateSucceeded
	}
	c.finish(sub, res)
}

// dispatch calls the engine, retrying transient transport failures with backoff.
func (c *Controller) dispatch(ctx context.Context, sub *Subscription, vreq domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	for attempt := 1; ; attempt++ {
		if !c.advance(sub, domain.StateDispatching, attempt) {
			return domain.RawEngineResponse{}, domain.ErrCancelled
		}

		raw, err := c.engine.Dispatch(ctx, vreq)
		if ctx.Err() != nil {
			return domain.RawEngineResponse{}, domain.ErrCancelled
		}
		if err == nil {
			return raw, nil
		}

		te := domain.AsTransportError(err)
		if !te.Transient() || attempt > c.retry.MaxRetries {
			log.Printf("[Controller] dispatch failed attempt=%d kind=%s status=%d err=%v", attempt, te.Kind, te.Status, te.Err)
			return domain.RawEngineResponse{}, te
		}

		wait := c.retry.Backoff(attempt)
		log.Printf("[Controller] dispatch attempt=%d kind=%s status=%d, retrying in %s", attempt, te.Kind, te.Status, wait)
		if err := sleep(ctx, wait); err != nil {
			return domain.RawEngineResponse{}, domain.ErrCancelled
		}
	}
}

// advance records a non-terminal transition. It returns false once the submission has
// finished, which is how cancellation is observed at every transition point.
func (c *Controller) advance(sub *Subscription, st domain.State, attempt int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.finished {
		return false
	}
	if attempt > 0 {
		sub.attempts = attempt
	}
	if c.current == sub {
		c.state = st
	}
	sub.events <- domain.Event{State: st, Attempt: attempt, At: c.clock.Now()}
	return true
}

// finish delivers the terminal result exactly once.
func (c *Controller) finish(sub *Subscription, res Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.finished {
		return false
	}
	sub.finished = true
	res.Attempts = sub.attempts
	sub.result = res
	if c.current == sub {
		c.state = res.State
	}
	sub.events <- domain.Event{State: res.State, Kind: domain.KindOf(res.Err), At: c.clock.Now()}
	close(sub.events)
	close(sub.done)
	return true
}
