package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
)

// compileConfig holds options for Compile.
type compileConfig struct {
	logger *slog.Logger
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithCompileLogger sets the logger used for compile-time warnings.
// Default: slog.Default()
func WithCompileLogger(logger *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge sources must reference existing nodes
//  4. All edge targets must reference existing nodes or END
//
// A node with no outgoing edge terminates the run, so no explicit path to
// END is required. Nodes with more than one outgoing edge are linearized
// to their first edge; each such node is reported as a BranchPoint and
// logged as a warning. Unreachable nodes are logged but do not fail.
func (g *Graph[S]) Compile(opts ...CompileOption) (*CompiledGraph[S], error) {
	cfg := compileConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	for _, from := range sortedKeys(g.edges) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range g.edges[from] {
			if to == END {
				continue
			}
			if _, exists := g.nodes[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	compiled := g.buildCompiledGraph()

	for _, bp := range compiled.branchPoints {
		cfg.logger.Warn("branching detected, keeping first edge",
			slog.String("node_id", bp.NodeID),
			slog.String("kept", bp.Kept),
			slog.Any("dropped", bp.Dropped),
		)
	}
	compiled.warnUnreachableNodes(cfg.logger)

	return compiled, nil
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph() *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	order := make([]string, len(g.order))
	copy(order, g.order)

	edges := make(map[string][]string, len(g.edges))
	terminals := make(map[string]bool)
	for from, targets := range g.edges {
		edges[from] = make([]string, 0, len(targets))
		for _, to := range targets {
			if to == END {
				terminals[from] = true
				continue
			}
			edges[from] = append(edges[from], to)
		}
	}

	// The followed edge is fixed here, once, so every run walks the same path.
	successor := make(map[string]string, len(nodes))
	var branchPoints []BranchPoint
	for _, id := range order {
		targets := edges[id]
		switch {
		case terminals[id], len(targets) == 0:
			successor[id] = END
		default:
			successor[id] = targets[0]
		}
		if len(targets) > 1 {
			dropped := make([]string, len(targets)-1)
			copy(dropped, targets[1:])
			branchPoints = append(branchPoints, BranchPoint{
				NodeID:  id,
				Kept:    targets[0],
				Dropped: dropped,
			})
		}
	}

	predecessors := make(map[string][]string)
	for _, from := range order {
		for _, to := range edges[from] {
			predecessors[to] = append(predecessors[to], from)
		}
	}

	return &CompiledGraph[S]{
		nodes:        nodes,
		order:        order,
		edges:        edges,
		entryPoint:   g.entryPoint,
		terminals:    terminals,
		successor:    successor,
		predecessors: predecessors,
		branchPoints: branchPoints,
	}
}

// warnUnreachableNodes logs nodes that the linear walk from entry never visits.
func (cg *CompiledGraph[S]) warnUnreachableNodes(logger *slog.Logger) {
	visited := make(map[string]bool, len(cg.order))
	for _, id := range cg.Path() {
		visited[id] = true
	}
	for _, id := range cg.order {
		if !visited[id] {
			logger.Warn("node is unreachable from entry", slog.String("node_id", id))
		}
	}
}
