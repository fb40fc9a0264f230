package handler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/lambda"
)

const (
	// WarmupSource identifies warmup events from a scheduled rule
	WarmupSource = "warmup"

	// WarmupDelay keeps this instance busy long enough for the copies to land elsewhere
	WarmupDelay = 75 * time.Millisecond
)

// WarmupEvent represents the scheduled warmup payload
type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// WarmupResponse is the response returned by warmup operations
type WarmupResponse struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// IsWarmupEvent checks if the event is a warmup event
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var ev WarmupEvent
	if err := json.Unmarshal(event, &ev); err != nil || ev.Source != WarmupSource {
		return nil, false
	}
	if ev.Concurrency < 0 {
		ev.Concurrency = 0
	}
	return &ev, true
}

// Warmer answers warmup events without touching the engine.
type Warmer struct {
	Invoker      lambda.Invoker // nil disables self-invocation
	FunctionName string
	Delay        time.Duration
}

// HandleWarmup counts this instance and asynchronously invokes Concurrency copies of
// the function. Copies are sent with concurrency 0 so they never fan out again.
func (w *Warmer) HandleWarmup(ctx context.Context, ev *WarmupEvent) (*WarmupResponse, error) {
	warmed := 1

	if ev.Concurrency > 0 && w.Invoker != nil && w.FunctionName != "" {
		if err := w.selfInvoke(ctx, ev.Concurrency); err == nil {
			warmed += ev.Concurrency
		}
	}

	time.Sleep(w.Delay)
	return &WarmupResponse{Status: "warm", InstancesWarmed: warmed}, nil
}

func (w *Warmer) selfInvoke(ctx context.Context, count int) error {
	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return err
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		invokeErr error
	)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Invoker.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(w.FunctionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				mu.Lock()
				if invokeErr == nil {
					invokeErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return invokeErr
}
