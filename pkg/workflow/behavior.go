package workflow

import (
	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/tools"
)

// Behavior is the work a node performs.
//
// Run receives a snapshot of the state and the config bound at compile
// time. Faults are reported through Update.Error; a returned error is
// reserved for failures that make continuing pointless, such as a missing
// inference backend, and stops the invocation.
type Behavior interface {
	Run(ctx flowgraph.Context, state State, cfg Config) (Update, error)
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx flowgraph.Context, state State, cfg Config) (Update, error)

// Run implements Behavior.
func (f BehaviorFunc) Run(ctx flowgraph.Context, state State, cfg Config) (Update, error) {
	return f(ctx, state, cfg)
}

// Config is the read-only configuration bound to each node.
type Config struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	MaxToolSteps int

	LLM   llm.Client
	Tools tools.Toolbox

	// Params holds the node's own data block from the design document.
	Params design.Params
}

// DefaultMaxToolSteps bounds agent tool loops when Config leaves it zero.
const DefaultMaxToolSteps = 5

// WithParams returns a copy of c bound to a node's parameters.
func (c Config) WithParams(p design.Params) Config {
	c.Params = p
	return c
}

// Toolbox returns c.Tools, or tools.Noop when unset.
func (c Config) Toolbox() tools.Toolbox {
	if c.Tools == nil {
		return tools.Noop{}
	}
	return c.Tools
}

// ToolSteps returns MaxToolSteps, or DefaultMaxToolSteps when unset.
func (c Config) ToolSteps() int {
	if c.MaxToolSteps <= 0 {
		return DefaultMaxToolSteps
	}
	return c.MaxToolSteps
}
