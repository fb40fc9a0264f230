// Package main runs the analysis orchestrator as a Lambda function.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/bryanwahyu/polycode-insight/internal/application"
	appanalysis "github.com/bryanwahyu/polycode-insight/internal/application/analysis"
	"github.com/bryanwahyu/polycode-insight/internal/config"
	"github.com/bryanwahyu/polycode-insight/internal/handler"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai"
)

var (
	initOnce sync.Once
	svc      *appanalysis.Service
	initErr  error
)

func main() {
	lambda.Start(handleRequest)
}

func handleRequest(ctx context.Context, event json.RawMessage) (any, error) {
	// warmup first, before the engine is built
	if warmup, ok := handler.IsWarmupEvent(event); ok {
		return newWarmer(ctx).HandleWarmup(ctx, warmup)
	}

	var req handler.Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}

	initOnce.Do(func() { svc, initErr = newService(ctx) })
	if initErr != nil {
		return nil, initErr
	}
	return handler.Handle(ctx, svc, req)
}

func newService(ctx context.Context) (*appanalysis.Service, error) {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	if cfg.Engine.Provider == string(ai.ProviderLambda) && cfg.Engine.FunctionName == os.Getenv("AWS_LAMBDA_FUNCTION_NAME") {
		return nil, fmt.Errorf("engine.functionName %q points at this function", cfg.Engine.FunctionName)
	}

	engine, err := ai.NewEngine(ctx, cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("engine init error: %w", err)
	}
	log.Printf("[Lambda] engine=%s maxRetries=%d", cfg.Engine.Provider, cfg.Retry.MaxRetries)

	return &appanalysis.Service{
		Engine: engine,
		Clock:  application.SystemClock{},
		Retry: appanalysis.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
		},
	}, nil
}

func newWarmer(ctx context.Context) *handler.Warmer {
	w := &handler.Warmer{
		FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		Delay:        handler.WarmupDelay,
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("[Lambda] warmup without self-invoke: %v", err)
		return w
	}
	w.Invoker = lambdasdk.NewFromConfig(cfg)
	return w
}
