// Package backend provides text generation clients for the analysis
// pipeline. Each client wraps one model API behind the same Generate method.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// Client generates free-form text from a prompt. Implementations perform a
// single attempt; retry policy belongs to the caller.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error describes a failed backend call
type Error struct {
	Op        string
	Status    int
	Transient bool
	Err       error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// TransientError reports whether the failure is worth retrying.
func (e *Error) TransientError() bool {
	return e.Transient
}

// IsTransient reports whether an error from a backend call is likely to
// succeed on retry: rate limits, upstream 5xx responses and timeouts.
func IsTransient(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// transientStatus reports whether an HTTP status code indicates a transient
// upstream condition.
func transientStatus(status int) bool {
	return status == 429 || status >= 500
}

// NewClientFromEnv builds the client selected by the AI_BACKEND environment
// variable: "gemini" (the default) or "ollama".
func NewClientFromEnv(ctx context.Context) (Client, error) {
	kind := strings.ToLower(strings.TrimSpace(os.Getenv("AI_BACKEND")))
	switch kind {
	case "", "gemini":
		return NewGeminiClientFromEnv(ctx)
	case "ollama":
		return NewOllamaClientFromEnv()
	default:
		return nil, fmt.Errorf("unknown AI_BACKEND %q", kind)
	}
}
