package openai

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/prompt"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 4096
	defaultTimeout   = 60 * time.Second
)

// Client dispatches analysis requests to an OpenAI-compatible chat completion API.
type Client struct {
	*openai.Client
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewClient builds a client; baseURL may be empty to use api.openai.com.
func NewClient(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Dispatch(ctx context.Context, vreq domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	model := c.Model
	if model == "" {
		model = defaultModel
	}
	tokens := c.MaxTokens
	if tokens <= 0 {
		tokens = defaultMaxTokens
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: prompt.GetUserPrompt(vreq)},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if reasoningModel(model) {
		req.MaxCompletionTokens = tokens
	} else {
		req.MaxTokens = tokens
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.CreateChatCompletion(callCtx, req)
	if err != nil {
		return domain.RawEngineResponse{}, classify(callCtx, err)
	}
	if len(resp.Choices) == 0 {
		return domain.RawEngineResponse{}, domain.StatusError(502, errors.New("completion has no choices"))
	}
	return domain.RawEngineResponse{Body: []byte(resp.Choices[0].Message.Content), Model: resp.Model}, nil
}

func reasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify maps go-openai failures onto the transport taxonomy.
func classify(ctx context.Context, err error) *domain.TransportError {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		netErr net.Error
	)
	switch {
	case errors.As(err, &apiErr):
		return domain.StatusError(apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	case errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0:
		return domain.StatusError(reqErr.HTTPStatusCode, reqErr.Err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.TransportError{Kind: domain.KindTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &domain.TransportError{Kind: domain.KindTimeout, Err: err}
	default:
		return &domain.TransportError{Kind: domain.KindNetwork, Err: err}
	}
}
