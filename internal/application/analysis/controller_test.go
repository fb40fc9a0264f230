package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

var fastRetry = RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func goRustRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		SourceCode:      "def total(v): return sum(v)",
		SourceLanguage:  "Python",
		TargetLanguages: []string{"Go", "Rust"},
	}
}

func collect(sub *Subscription) []domain.Event {
	var out []domain.Event
	for ev := range sub.Events() {
		out = append(out, ev)
	}
	return out
}

func states(evs []domain.Event) []domain.State {
	out := make([]domain.State, len(evs))
	for i, ev := range evs {
		out[i] = ev.State
	}
	return out
}

func TestControllerSucceeds(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{{body: goRustReply}}}
	ctrl := NewController(eng, fastRetry, nil)

	sub, err := ctrl.Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	evs := collect(sub)
	res := sub.Wait()

	require.NoError(t, res.Err)
	assert.Equal(t, domain.StateSucceeded, res.State)
	assert.Equal(t, []domain.State{
		domain.StateValidating, domain.StateDispatching, domain.StateNormalizing, domain.StateSucceeded,
	}, states(evs))
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, 1, eng.Calls())
	assert.Empty(t, res.Outcome.Failures)
	require.Len(t, res.Outcome.Translations, 2)
	assert.Equal(t, domain.LangGo, res.Outcome.Translations[0].Language)
	assert.Equal(t, domain.LangRust, res.Outcome.Translations[1].Language)
	assert.Equal(t, domain.StateSucceeded, ctrl.State())
}

func TestControllerPartialFailure(t *testing.T) {
	body := `{"translations":[{"language":"Go","code":"package main"},{"language":"Rust","code":""}]}`
	eng := &scriptedEngine{replies: []reply{{body: body}}}

	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	res := sub.Wait()

	require.NoError(t, res.Err)
	assert.Equal(t, domain.StatePartiallySucceeded, res.State)
	require.Len(t, res.Outcome.Translations, 1)
	assert.Equal(t, domain.LangGo, res.Outcome.Translations[0].Language)
	assert.Equal(t, map[domain.Language]*domain.NormalizationError{
		domain.LangRust: domain.MalformedField("code"),
	}, res.Outcome.Failures)
	assert.Equal(t, "1 of 2 languages failed", res.Outcome.Summary())
}

func TestControllerAllTranslationsFailed(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{{body: `{"translations":[]}`}}}

	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	res := sub.Wait()

	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, domain.KindAllTranslationsFailed, domain.KindOf(res.Err))
	assert.Nil(t, res.Outcome)
	assert.Equal(t, 1, eng.Calls())
}

func TestControllerValidationFailureNeverDispatches(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{{body: goRustReply}}}
	req := goRustRequest()
	req.TargetLanguages = []string{"Go", "Python"}

	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), req)
	require.NoError(t, err)
	evs := collect(sub)
	res := sub.Wait()

	assert.Equal(t, domain.KindSourceEqualsTarget, domain.KindOf(res.Err))
	assert.Equal(t, []domain.State{domain.StateValidating, domain.StateFailed}, states(evs))
	assert.Equal(t, domain.KindSourceEqualsTarget, evs[1].Kind)
	assert.Zero(t, eng.Calls())
	assert.Zero(t, res.Attempts)
}

func TestControllerRetriesTransientFailures(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{
		{err: domain.StatusError(503, nil)},
		{err: domain.StatusError(503, nil)},
		{body: goRustReply},
	}}

	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	evs := collect(sub)
	res := sub.Wait()

	require.NoError(t, res.Err)
	assert.Equal(t, domain.StateSucceeded, res.State)
	assert.Equal(t, 3, eng.Calls())
	assert.Equal(t, 3, res.Attempts)

	var attempts []int
	for _, ev := range evs {
		if ev.State == domain.StateDispatching {
			attempts = append(attempts, ev.Attempt)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestControllerGivesUpAfterMaxRetries(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{{err: &domain.TransportError{Kind: domain.KindTimeout}}}}

	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	res := sub.Wait()

	assert.Equal(t, domain.StateFailed, res.State)
	assert.Equal(t, domain.KindTimeout, domain.KindOf(res.Err))
	assert.Equal(t, fastRetry.MaxRetries+1, eng.Calls())
}

func TestControllerDoesNotRetryFatalFailures(t *testing.T) {
	for _, status := range []int{401, 403, 429} {
		eng := &scriptedEngine{replies: []reply{{err: domain.StatusError(status, nil)}, {body: goRustReply}}}

		sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
		require.NoError(t, err)
		res := sub.Wait()

		assert.Equal(t, domain.StateFailed, res.State, "status %d", status)
		assert.Equal(t, 1, eng.Calls(), "status %d", status)
	}
}

func TestControllerCancelDuringDispatchDiscardsLateResult(t *testing.T) {
	eng := newBlockingEngine()
	ctrl := NewController(eng, fastRetry, nil)

	sub, err := ctrl.Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	<-eng.started
	require.Equal(t, domain.StateDispatching, ctrl.State())

	sub.Cancel()
	evs := collect(sub)
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, domain.StateFailed, last.State)
	assert.Equal(t, domain.KindCancelled, last.Kind)

	close(eng.release)
	<-eng.returned

	res := sub.Wait()
	assert.ErrorIs(t, res.Err, domain.ErrCancelled)
	assert.Equal(t, domain.StateFailed, res.State)
	assert.Nil(t, res.Outcome)

	// the late reply must never surface as a success
	assert.Never(t, func() bool { return ctrl.State() != domain.StateFailed }, 50*time.Millisecond, 5*time.Millisecond)
	for _, ev := range evs {
		assert.NotEqual(t, domain.StateSucceeded, ev.State)
		assert.NotEqual(t, domain.StateNormalizing, ev.State)
	}
}

func TestControllerCancelledByContext(t *testing.T) {
	eng := newBlockingEngine()
	defer close(eng.release)
	ctx, cancel := context.WithCancel(t.Context())

	sub, err := NewController(eng, fastRetry, nil).Submit(ctx, goRustRequest())
	require.NoError(t, err)
	<-eng.started
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("submission did not end after context cancellation")
	}
	assert.ErrorIs(t, sub.Wait().Err, domain.ErrCancelled)
}

func TestControllerRejectsConcurrentSubmission(t *testing.T) {
	eng := newBlockingEngine()
	ctrl := NewController(eng, fastRetry, nil)

	first, err := ctrl.Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	<-eng.started

	second, err := ctrl.Submit(t.Context(), goRustRequest())
	assert.Nil(t, second)
	assert.ErrorIs(t, err, domain.ErrAlreadyInProgress)
	assert.Equal(t, domain.StateDispatching, ctrl.State())

	close(eng.release)
	res := first.Wait()
	require.NoError(t, res.Err)
	assert.Equal(t, domain.StateSucceeded, res.State)

	// a terminal controller accepts the next submission
	third, err := ctrl.Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StateSucceeded, third.Wait().State)
}

func TestControllerCancelAfterCompletionIsNoop(t *testing.T) {
	eng := &scriptedEngine{replies: []reply{{body: goRustReply}}}
	sub, err := NewController(eng, fastRetry, nil).Submit(t.Context(), goRustRequest())
	require.NoError(t, err)
	res := sub.Wait()

	sub.Cancel()
	assert.Equal(t, res, sub.Wait())
	assert.Equal(t, domain.StateSucceeded, sub.Wait().State)
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	assert.Equal(t, time.Duration(0), p.Backoff(0))
	assert.Equal(t, 100*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(3))
	assert.Equal(t, time.Second, p.Backoff(5))
	assert.Equal(t, time.Second, p.Backoff(50))
}
