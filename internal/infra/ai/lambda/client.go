// Package lambda dispatches analysis requests to an AWS Lambda function.
package lambda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/edge"
)

const defaultTimeout = 60 * time.Second

// Invoker is the subset of *lambda.Client used here.
type Invoker interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// Client invokes FunctionName synchronously with the analyze-code payload.
type Client struct {
	Invoker      Invoker
	FunctionName string
	Timeout      time.Duration
}

// New loads the default AWS config chain (env, shared config, instance role).
func New(ctx context.Context, functionName string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Client{Invoker: lambda.NewFromConfig(cfg), FunctionName: functionName}, nil
}

func (c *Client) Dispatch(ctx context.Context, vreq domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	payload, err := json.Marshal(edge.NewRequest(vreq))
	if err != nil {
		return domain.RawEngineResponse{}, domain.StatusError(0, fmt.Errorf("encode request: %w", err))
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := c.Invoker.Invoke(callCtx, &lambda.InvokeInput{
		FunctionName: aws.String(c.FunctionName),
		Payload:      payload,
	})
	if err != nil {
		return domain.RawEngineResponse{}, classify(callCtx, err)
	}
	if out.FunctionError != nil {
		return domain.RawEngineResponse{}, domain.StatusError(http.StatusBadGateway,
			fmt.Errorf("lambda error: %s: %s", *out.FunctionError, out.Payload))
	}
	if err := edge.CheckBody(out.Payload); err != nil {
		return domain.RawEngineResponse{}, err
	}
	return domain.RawEngineResponse{Body: out.Payload, Model: c.FunctionName}, nil
}

type statusCoder interface {
	HTTPStatusCode() int
}

func classify(ctx context.Context, err error) *domain.TransportError {
	var sc statusCoder
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.TransportError{Kind: domain.KindTimeout, Err: err}
	case errors.As(err, &sc) && sc.HTTPStatusCode() != 0:
		return domain.StatusError(sc.HTTPStatusCode(), err)
	default:
		return &domain.TransportError{Kind: domain.KindNetwork, Err: err}
	}
}
