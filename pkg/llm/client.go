// Package llm is the inference collaborator used by model and agent nodes.
//
// Client is the single seam: BedrockClient talks to Anthropic models on AWS
// Bedrock, MockClient serves tests and examples, and WithRetry wraps either
// with backoff for transient failures.
package llm

import (
	"context"
	"math"
)

// Client performs a completion against a language model.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// ClampTemperature maps t into the provider-valid range [0, 1].
// NaN maps to 0.
func ClampTemperature(t float64) float64 {
	switch {
	case math.IsNaN(t), t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}
