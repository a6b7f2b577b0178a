package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// permanentStatus reports whether an HTTP status means the request itself is
// wrong, so sending it again cannot help. 408 and 429 are retryable.
func permanentStatus(code int) bool {
	return code >= 400 && code < 500 &&
		code != http.StatusRequestTimeout &&
		code != http.StatusTooManyRequests
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retrying retries a networked generator with exponential backoff.
type Retrying struct {
	next        Generator
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// WithRetry wraps next. maxAttempts below 1 means a single attempt.
func WithRetry(next Generator, maxAttempts int, baseDelay time.Duration, logger *slog.Logger) *Retrying {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, maxAttempts: maxAttempts, baseDelay: baseDelay, logger: logger}
}

// Generate calls the wrapped generator until it succeeds, the error is
// permanent, the context ends or the attempts run out.
func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for i := 0; i < r.maxAttempts; i++ {
		text, err := r.next.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if IsPermanent(err) || ctx.Err() != nil {
			return "", err
		}
		if i == r.maxAttempts-1 {
			break
		}

		delay := r.baseDelay * time.Duration(1<<i)
		r.logger.Debug("Generation failed, retrying",
			"attempt", i+1,
			"delay", delay,
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("generation canceled during backoff: %w", ctx.Err())
		case <-timer.C:
		}
	}
	return "", fmt.Errorf("generation failed after %d attempts: %w", r.maxAttempts, lastErr)
}
