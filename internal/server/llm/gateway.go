// Package llm talks to the chat-completion provider.
package llm

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/recipebox/internal/server/models"
)

// Gateway sends a full conversation to the provider and returns the reply.
// Implementations keep no state between calls.
type Gateway interface {
	Complete(ctx context.Context, turns []models.Turn) (string, error)
}

// GatewayError reports a failed exchange with the provider: transport
// failure, timeout, non-2xx status or a response without choices.
// StatusCode is 0 when no HTTP response was received.
type GatewayError struct {
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("completion provider timed out: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("completion provider returned status %d: %v", e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("completion provider error: %v", e.Err)
	}
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
