package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/polycode-insight/internal/config"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/edge"
	"github.com/bryanwahyu/polycode-insight/internal/infra/ai/openai"
)

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(t.Context(), config.EngineConfig{Provider: "OpenAI", APIKey: "sk", Model: "gpt-4o", Timeout: time.Second})
	require.NoError(t, err)
	oc, ok := eng.(*openai.Client)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", oc.Model)
	assert.Equal(t, time.Second, oc.Timeout)

	eng, err = NewEngine(t.Context(), config.EngineConfig{Provider: "edge", BaseURL: "http://localhost/fn"})
	require.NoError(t, err)
	assert.IsType(t, &edge.Client{}, eng)
}

func TestNewEngineErrors(t *testing.T) {
	cases := map[string]config.EngineConfig{
		"openai without key": {Provider: "openai"},
		"edge without url":   {Provider: "edge"},
		"lambda without fn":  {Provider: "lambda"},
		"unknown":            {Provider: "claude"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(t.Context(), cfg)
			assert.Error(t, err)
		})
	}
}
