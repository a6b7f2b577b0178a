// Package generator provides the text generation backends used by the agent:
// a deterministic local rule set and remote language models reached over
// HTTP, the Gemini SDK or a gRPC sidecar.
package generator

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("generator returned empty response")

// Request is a single generation call.
type Request struct {
	SystemBlocks []string `json:"system_blocks"`
	User         string   `json:"user"`
}

// System joins the non-empty system blocks with blank lines.
func (r Request) System() string {
	blocks := make([]string, 0, len(r.SystemBlocks))
	for _, b := range r.SystemBlocks {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Generator produces one response text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Func adapts a function to the Generator interface.
type Func func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Sampling carries the sampling parameters shared by remote backends.
type Sampling struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultSampling matches the conversational register the agent expects.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.8, MaxTokens: 220}
}
