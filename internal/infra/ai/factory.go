package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/polycode-insight/internal/config"
	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/edge"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/lambda"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/openai"
)

// Provider represents the analysis engine backend
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderEdge   Provider = "edge"
	ProviderLambda Provider = "lambda"
)

// AvailableProviders returns every provider NewEngine understands
func AvailableProviders() []Provider {
	return []Provider{ProviderOpenAI, ProviderEdge, ProviderLambda}
}

// NewEngine creates an Engine for the configured provider
func NewEngine(ctx context.Context, cfg config.EngineConfig) (domain.Engine, error) {
	switch Provider(strings.ToLower(cfg.Provider)) {
	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		c := openai.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL)
		c.MaxTokens = cfg.MaxTokens
		c.Timeout = cfg.Timeout
		return c, nil

	case ProviderEdge:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("edge function URL is required")
		}
		c := edge.NewClient(cfg.BaseURL, cfg.APIKey)
		c.Timeout = cfg.Timeout
		return c, nil

	case ProviderLambda:
		if cfg.FunctionName == "" {
			return nil, fmt.Errorf("lambda function name is required")
		}
		c, err := lambda.New(ctx, cfg.FunctionName)
		if err != nil {
			return nil, err
		}
		c.Timeout = cfg.Timeout
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported engine provider: %s (supported: openai, edge, lambda)", cfg.Provider)
	}
}
