package flowgraph

import "sort"

// BranchPoint records a node whose outgoing edges were linearized.
type BranchPoint struct {
	// NodeID is the node with more than one outgoing edge.
	NodeID string
	// Kept is the successor that execution follows.
	Kept string
	// Dropped lists the successors that are never followed from NodeID.
	Dropped []string
}

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
type CompiledGraph[S any] struct {
	nodes      map[string]NodeFunc[S]
	order      []string
	edges      map[string][]string
	entryPoint string
	terminals  map[string]bool

	// Pre-computed for efficient lookup
	successor    map[string]string
	predecessors map[string][]string
	branchPoints []BranchPoint
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in registration order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, len(cg.order))
	copy(ids, cg.order)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns every wired target of the given node, END excluded,
// in the order the edges were added.
// Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Successor returns the node executed after id, or END.
// Returns "" for unknown nodes.
func (cg *CompiledGraph[S]) Successor(id string) string {
	return cg.successor[id]
}

// Predecessors returns the node IDs that have edges to the given node.
// Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsTerminal reports whether id has an edge to END.
func (cg *CompiledGraph[S]) IsTerminal(id string) bool {
	return cg.terminals[id]
}

// Terminals returns the designated terminal nodes, sorted.
func (cg *CompiledGraph[S]) Terminals() []string {
	ids := make([]string, 0, len(cg.terminals))
	for id := range cg.terminals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BranchPoints returns the nodes whose outgoing edges were linearized,
// in registration order.
func (cg *CompiledGraph[S]) BranchPoints() []BranchPoint {
	out := make([]BranchPoint, len(cg.branchPoints))
	copy(out, cg.branchPoints)
	return out
}

// Path returns the nodes visited by a run, in order, stopping before END
// or before the first revisited node.
func (cg *CompiledGraph[S]) Path() []string {
	var path []string
	seen := make(map[string]bool)
	for current := cg.entryPoint; current != END && current != ""; current = cg.successor[current] {
		if seen[current] {
			break
		}
		seen[current] = true
		path = append(path, current)
	}
	return path
}

// getNode returns the node function for the given ID.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
