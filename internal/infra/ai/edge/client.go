// Package edge talks to a hosted analyze-code function over plain HTTPS.
package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

const (
	defaultTimeout = 60 * time.Second
	maxBodyBytes   = 8 << 20
)

// Request is the wire body accepted by the analyze-code function.
type Request struct {
	Code            string   `json:"code"`
	SourceLanguage  string   `json:"sourceLanguage"`
	TargetLanguages []string `json:"targetLanguages"`
}

func NewRequest(vreq domain.ValidatedRequest) Request {
	targets := vreq.TargetLanguages()
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	return Request{Code: vreq.SourceCode(), SourceLanguage: vreq.SourceLanguage().String(), TargetLanguages: names}
}

// CheckBody rejects a successful reply whose body only reports an error.
func CheckBody(body []byte) error {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil || len(env.Error) == 0 || string(env.Error) == "null" {
		return nil
	}
	var msg string
	if json.Unmarshal(env.Error, &msg) != nil {
		msg = string(env.Error)
	}
	return domain.StatusError(http.StatusBadGateway, errors.New(msg))
}

// Client posts analysis requests to URL.
type Client struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	HTTP    *http.Client
}

func NewClient(url, apiKey string) *Client {
	return &Client{URL: url, APIKey: apiKey, HTTP: &http.Client{}}
}

func (c *Client) Dispatch(ctx context.Context, vreq domain.ValidatedRequest) (domain.RawEngineResponse, error) {
	payload, err := json.Marshal(NewRequest(vreq))
	if err != nil {
		return domain.RawEngineResponse{}, domain.StatusError(0, fmt.Errorf("encode request: %w", err))
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return domain.RawEngineResponse{}, domain.StatusError(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
		req.Header.Set("apikey", c.APIKey)
	}

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return domain.RawEngineResponse{}, transportError(callCtx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.RawEngineResponse{}, transportError(callCtx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.RawEngineResponse{}, domain.StatusError(resp.StatusCode, fmt.Errorf("%s", bytes.TrimSpace(body)))
	}
	if err := CheckBody(body); err != nil {
		return domain.RawEngineResponse{}, err
	}
	return domain.RawEngineResponse{Body: body, Model: "edge"}, nil
}

func transportError(ctx context.Context, err error) *domain.TransportError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.TransportError{Kind: domain.KindTimeout, Err: err}
	}
	return &domain.TransportError{Kind: domain.KindNetwork, Err: err}
}
