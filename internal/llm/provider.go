// Package llm compiles natural-language listening requests into DJ schedules
// using a hosted or local language model.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"aidj/internal/core"
)

const (
	defaultTemperature = 0.3
	maxTokensSchedule  = 2000
)

// Provider implements core.IntentCompiler on top of one model backend.
type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client LLMClient
	now    func() time.Time
}

// LLMClient sends one system/user prompt pair and returns the raw text reply.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client LLMClient
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		client = &NoOpClient{}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
		now:    time.Now,
	}, nil
}

// Enabled reports whether a real model backend is configured.
func (p *Provider) Enabled() bool {
	_, noop := p.client.(*NoOpClient)
	return !noop
}

// GenerateSchedule asks the model for a schedule that merges request into
// current. An unparseable reply is logged and yields an empty schedule.
func (p *Provider) GenerateSchedule(ctx context.Context, request string, current []core.ScheduleItem,
	preference string) ([]core.ScheduleItem, error) {
	if preference == "" {
		preference = p.config.Preference
	}
	prompt := BuildUserPrompt(p.now(), request, current, preference)

	p.logger.Debug("Requesting schedule",
		zap.String("provider", p.config.Provider),
		zap.String("request", request),
		zap.Int("current_items", len(current)))

	content, err := p.client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	items := ParseSchedule(content, p.logger)
	p.logger.Info("Schedule generated",
		zap.String("request", request),
		zap.Int("items", len(items)))
	return items, nil
}

type NoOpClient struct{}

func (n *NoOpClient) Complete(context.Context, string, string) (string, error) {
	return "", core.ErrNoCompiler
}
