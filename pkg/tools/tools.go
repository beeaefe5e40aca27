// Package tools provides the tool-discovery collaborator used by the tool
// discovery and agent nodes.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/designflow/pkg/llm"
)

// ErrUnknownTool is returned by CallTool for a name the toolbox does not serve.
var ErrUnknownTool = errors.New("unknown tool")

// Descriptor describes a callable tool.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// LLMTool converts d to the inference request form.
func (d Descriptor) LLMTool() llm.Tool {
	return llm.Tool{Name: d.Name, Description: d.Description, Parameters: d.InputSchema}
}

// LLMTools converts descriptors to the inference request form.
func LLMTools(ds []Descriptor) []llm.Tool {
	out := make([]llm.Tool, len(ds))
	for i, d := range ds {
		out[i] = d.LLMTool()
	}
	return out
}

// Toolbox lists and invokes tools.
type Toolbox interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (string, error)
}

// Noop is a Toolbox with no tools.
type Noop struct{}

// ListTools always returns an empty list.
func (Noop) ListTools(context.Context) ([]Descriptor, error) {
	return []Descriptor{}, nil
}

// CallTool always fails with ErrUnknownTool.
func (Noop) CallTool(_ context.Context, name string, _ json.RawMessage) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
}
