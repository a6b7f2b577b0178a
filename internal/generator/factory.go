package generator

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/edem-agent/internal/config"
)

// Backend is the generator selected from configuration together with the
// resources it owns.
type Backend struct {
	Generator
	Provider string
	closer   io.Closer
}

// Close releases the backend's connection, if any.
func (b *Backend) Close() error {
	if b == nil || b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// NewFromConfig builds the configured backend. Networked backends are
// wrapped with retries; the rule-based generator is returned as is.
func NewFromConfig(ctx context.Context, cfg config.GeneratorConfig, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sampling := Sampling{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	provider := cfg.ResolveProvider()

	var (
		gen    Generator
		closer io.Closer
	)
	switch provider {
	case config.ProviderRules:
		logger.Info("Using rule-based generator")
		return &Backend{Generator: NewRules(), Provider: provider}, nil
	case config.ProviderOpenAI:
		g, err := NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, sampling)
		if err != nil {
			return nil, err
		}
		gen = g
	case config.ProviderOllama:
		g, err := NewOllama(cfg.OllamaURL, sampling)
		if err != nil {
			return nil, err
		}
		gen = g
	case config.ProviderGemini:
		g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiBaseURL, sampling)
		if err != nil {
			return nil, err
		}
		gen = g
	case config.ProviderGRPC:
		g, err := NewGRPC(DefaultGRPCConfig(cfg.GRPCAddr), sampling, logger)
		if err != nil {
			return nil, err
		}
		gen, closer = g, g
	default:
		return nil, fmt.Errorf("unknown generator provider %q", provider)
	}

	logger.Info("Using remote generator",
		"provider", provider,
		"model", cfg.Model,
		"max_retries", cfg.MaxRetries)

	return &Backend{
		Generator: WithRetry(gen, cfg.MaxRetries, cfg.RetryBaseDelay, logger),
		Provider:  provider,
		closer:    closer,
	}, nil
}
