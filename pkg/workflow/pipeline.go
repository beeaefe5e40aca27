package workflow

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/randalmurphal/designflow/pkg/flowgraph"
)

// Outcome is the terminal status of one invocation.
type Outcome string

// Invocation outcomes.
const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Pipeline is a compiled, immutable linear sequence of bound nodes.
// It is safe for concurrent Invoke calls with independent states.
type Pipeline struct {
	graph   *flowgraph.CompiledGraph[State]
	report  Report
	steps   []string
	logger  *slog.Logger
	runOpts []flowgraph.RunOption
}

// RunResult describes one invocation.
type RunResult struct {
	State    State
	Outcome  Outcome
	RunID    string
	Steps    []string
	Duration time.Duration
}

type invokeConfig struct {
	runID  string
	logger *slog.Logger
}

// InvokeOption configures a single invocation.
type InvokeOption func(*invokeConfig)

// WithRunID sets the run identifier. Default: a random UUID.
func WithRunID(id string) InvokeOption {
	return func(c *invokeConfig) { c.runID = id }
}

// WithInvokeLogger overrides the pipeline's logger for one invocation.
func WithInvokeLogger(logger *slog.Logger) InvokeOption {
	return func(c *invokeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Invoke runs state through every step from the entry and returns the
// final state. A node-reported error is left in State.Error and does not
// stop the run. A fatal node failure returns the state reached so far and
// the engine error (*flowgraph.NodeError, *flowgraph.PanicError,
// *flowgraph.CancellationError or *flowgraph.MaxIterationsError).
func (p *Pipeline) Invoke(ctx context.Context, state State, opts ...InvokeOption) (State, error) {
	res, err := p.InvokeDetailed(ctx, state, opts...)
	return res.State, err
}

// InvokeDetailed is Invoke with run metadata.
func (p *Pipeline) InvokeDetailed(ctx context.Context, state State, opts ...InvokeOption) (RunResult, error) {
	ic := invokeConfig{logger: p.logger}
	for _, opt := range opts {
		opt(&ic)
	}

	fctx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(ic.logger),
		flowgraph.WithContextRunID(ic.runID),
	)

	var steps []string
	runOpts := append(slices.Clone(p.runOpts),
		flowgraph.WithObservabilityLogger(ic.logger),
		flowgraph.WithNodeObserver(func(nodeID string, _ time.Duration, _ error) {
			steps = append(steps, nodeID)
		}),
	)

	start := time.Now()
	final, err := p.graph.Run(fctx, state.Clone(), runOpts...)
	res := RunResult{
		State:    final,
		Outcome:  OutcomeCompleted,
		RunID:    fctx.RunID(),
		Steps:    steps,
		Duration: time.Since(start),
	}
	if err != nil {
		res.Outcome = OutcomeFailed
	}
	return res, err
}

// Entry returns the canonical name of the first step.
func (p *Pipeline) Entry() string {
	return p.graph.EntryPoint()
}

// Terminals returns the steps routed to the end marker, sorted.
func (p *Pipeline) Terminals() []string {
	return p.graph.Terminals()
}

// Steps returns the canonical names an invocation visits, in order.
func (p *Pipeline) Steps() []string {
	return slices.Clone(p.steps)
}

// Successor returns the step after name, flowgraph.END after a terminal,
// or "" for unknown names.
func (p *Pipeline) Successor(name string) string {
	return p.graph.Successor(name)
}

// Report returns the compile report.
func (p *Pipeline) Report() Report {
	r := p.report
	r.Terminals = slices.Clone(r.Terminals)
	r.Diagnostics = slices.Clone(r.Diagnostics)
	return r
}

// IsDefault reports whether this is the single-node default pipeline.
func (p *Pipeline) IsDefault() bool {
	return p.report.Default
}
