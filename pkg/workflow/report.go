package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for compilation faults.
var (
	// ErrNameCollision is returned when two node ids normalize to the same name.
	ErrNameCollision = errors.New("node name collision")

	// ErrSelfLoop is returned when a wired edge points a node at itself.
	ErrSelfLoop = errors.New("self-loop edge")

	// ErrNoDefaultBehavior is returned when the default pipeline is needed
	// but the registry has no default behavior.
	ErrNoDefaultBehavior = errors.New("registry has no default behavior")
)

// CompileError reports a compilation that produced no pipeline.
type CompileError struct {
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("compile pipeline: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// DiagnosticKind classifies a compile-time degradation.
type DiagnosticKind string

// Diagnostic kinds.
const (
	DiagNodeSkipped       DiagnosticKind = "node_skipped"
	DiagEmptyName         DiagnosticKind = "empty_name"
	DiagEdgePruned        DiagnosticKind = "edge_pruned"
	DiagBranchLinearized  DiagnosticKind = "branch_linearized"
	DiagEntryFallback     DiagnosticKind = "entry_fallback"
	DiagTerminalFallback  DiagnosticKind = "terminal_fallback"
	DiagNoRegisteredNodes DiagnosticKind = "no_registered_nodes"
)

// Diagnostic is one degradation recorded while compiling. Diagnostics never
// fail compilation.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	NodeID  string         `json:"node_id,omitempty"`
	Message string         `json:"message"`
}

// Report summarizes a compilation.
type Report struct {
	NodesTotal      int          `json:"nodes_total"`
	NodesRegistered int          `json:"nodes_registered"`
	EdgesTotal      int          `json:"edges_total"`
	EdgesWired      int          `json:"edges_wired"`
	Entry           string       `json:"entry"`
	Terminals       []string     `json:"terminals"`
	Default         bool         `json:"default"`
	Diagnostics     []Diagnostic `json:"diagnostics,omitempty"`
}

// Has reports whether the report contains a diagnostic of kind.
func (r Report) Has(kind DiagnosticKind) bool {
	return len(r.Of(kind)) > 0
}

// Of returns the diagnostics of kind in recording order.
func (r Report) Of(kind DiagnosticKind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
