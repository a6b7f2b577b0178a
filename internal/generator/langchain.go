package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// contentModel is the part of llms.Model the generator uses.
type contentModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// LangChain generates text through a langchaingo chat model.
type LangChain struct {
	model    contentModel
	name     string
	sampling Sampling
	mapper   *llms.ErrorMapper
}

// NewOpenAI creates a generator for any OpenAI-compatible chat completions API.
func NewOpenAI(apiKey, baseURL string, sampling Sampling) (*LangChain, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	if sampling.Model == "" {
		sampling.Model = "gpt-4o-mini"
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(sampling.Model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return &LangChain{model: model, name: "openai", sampling: sampling, mapper: llms.OpenAIErrorMapper()}, nil
}

// NewOllama creates a generator backed by a local Ollama server.
func NewOllama(serverURL string, sampling Sampling) (*LangChain, error) {
	if sampling.Model == "" {
		sampling.Model = "llama3.1"
	}
	opts := []ollama.Option{ollama.WithModel(sampling.Model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	model, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return &LangChain{model: model, name: "ollama", sampling: sampling, mapper: llms.NewErrorMapper("ollama")}, nil
}

// Generate sends the joined system blocks and the user message.
func (g *LangChain) Generate(ctx context.Context, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System()),
		llms.TextParts(llms.ChatMessageTypeHuman, req.User),
	}

	response, err := g.model.GenerateContent(ctx, messages,
		llms.WithTemperature(g.sampling.Temperature),
		llms.WithMaxTokens(g.sampling.MaxTokens),
	)
	if err != nil {
		return "", g.classify(fmt.Errorf("%s generate: %w", g.name, err))
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", g.name, ErrEmptyResponse)
	}

	text := strings.TrimSpace(response.Choices[0].Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", g.name, ErrEmptyResponse)
	}
	return text, nil
}

// classify maps err to a standard llms error and marks the kinds a retry
// cannot fix as Permanent. Rate limits, outages and timeouts stay retryable.
func (g *LangChain) classify(err error) error {
	mapper := g.mapper
	if mapper == nil {
		mapper = llms.NewErrorMapper(g.name)
	}
	err = mapper.WrapError(err)

	var llmErr *llms.Error
	if !errors.As(err, &llmErr) {
		return err
	}
	switch llmErr.Code {
	case llms.ErrCodeAuthentication,
		llms.ErrCodeInvalidRequest,
		llms.ErrCodeResourceNotFound,
		llms.ErrCodeContentFilter,
		llms.ErrCodeTokenLimit,
		llms.ErrCodeNotImplemented:
		return Permanent(err)
	default:
		return err
	}
}
