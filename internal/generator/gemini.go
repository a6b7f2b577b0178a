package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates text with Google's Gemini API.
type Gemini struct {
	client   *genai.Client
	sampling Sampling
}

// NewGemini creates a Gemini generator. An empty baseURL uses the public
// endpoint.
func NewGemini(ctx context.Context, apiKey, baseURL string, sampling Sampling) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key required")
	}
	if sampling.Model == "" {
		sampling.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, sampling: sampling}, nil
}

// Generate sends the system blocks as the system instruction.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.sampling.Temperature)),
		MaxOutputTokens: int32(g.sampling.MaxTokens),
	}
	if system := req.System(); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.sampling.Model,
		[]*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)},
		config,
	)
	if err != nil {
		err = fmt.Errorf("gemini generate: %w", err)
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && permanentStatus(apiErr.Code) {
			return "", Permanent(err)
		}
		return "", err
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}
