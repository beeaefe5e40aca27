/*
Package flowgraph provides the execution engine behind compiled pipelines.

# Overview

A Graph is built from named nodes and directed edges, validated by Compile,
and frozen into an immutable CompiledGraph. Execution is strictly linear:
every node has at most one successor, fixed at compile time.

  - A node with several outgoing edges follows the first one added.
    The others are reported through BranchPoints and a warning log.
  - An edge to END marks its source as a terminal. A terminal always ends
    the run, even when it also has outgoing edges.
  - A node with no outgoing edges ends the run.

# Basic Usage

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx flowgraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	compiled, err := flowgraph.NewGraph[State]().
	    AddNode("process", process).
	    AddEdge("process", flowgraph.END).
	    SetEntry("process").
	    Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Cycles

Edges may form cycles. A run that keeps cycling is stopped by the iteration
cap (default 1000, see WithMaxIterations) with a *MaxIterationsError.

# Observability

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithMetrics(true),
	    flowgraph.WithTracing(true),
	    flowgraph.WithRunID("run-123"))

Logs include structured fields: run_id, node_id, duration_ms.
OpenTelemetry metrics: flowgraph.node.executions, flowgraph.node.latency_ms, etc.
OpenTelemetry tracing: flowgraph.run > flowgraph.node.{id} spans.

# Error Handling

	var nodeErr *flowgraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("Node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

Panics in nodes are recovered and converted to *PanicError with stack trace.
Cancellation of the underlying context is checked before every node.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use

# Subpackages

  - observability: Logging, metrics, and tracing helpers
  - template: Prompt template expansion
*/
package flowgraph
