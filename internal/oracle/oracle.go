// Package oracle talks to external text-completion services. Callers treat every
// implementation as opaque and fallible: any error means no usable answer.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable is returned when no provider is configured.
	ErrUnavailable = errors.New("oracle: no provider configured")
	// ErrEmptyResponse is returned when the provider answered with no text.
	ErrEmptyResponse = errors.New("oracle: empty response")
)

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int32
	// JSON asks the provider for a JSON-only answer when it supports that.
	JSON bool
}

// Oracle is a text-in/text-out completion service.
type Oracle interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, p Prompt) (string, error)

// Complete implements Oracle.
func (f Func) Complete(ctx context.Context, p Prompt) (string, error) {
	return f(ctx, p)
}

// Disabled always reports ErrUnavailable.
type Disabled struct{}

// Complete implements Oracle.
func (Disabled) Complete(context.Context, Prompt) (string, error) {
	return "", ErrUnavailable
}

type timeoutOracle struct {
	next    Oracle
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. The caller's context still applies,
// so a cancelled request abandons the call immediately.
func WithTimeout(next Oracle, d time.Duration) Oracle {
	if d <= 0 {
		return next
	}
	return &timeoutOracle{next: next, timeout: d}
}

func (o *timeoutOracle) Complete(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type answer struct {
		text string
		err  error
	}
	// Buffered so the goroutine can finish after we stop waiting.
	done := make(chan answer, 1)
	go func() {
		text, err := o.next.Complete(ctx, p)
		done <- answer{text, err}
	}()

	select {
	case a := <-done:
		return a.text, a.err
	case <-ctx.Done():
		return "", fmt.Errorf("oracle: %w", ctx.Err())
	}
}
