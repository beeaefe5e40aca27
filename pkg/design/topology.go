package design

// Topology summarizes the connectivity of a design graph over raw ids.
// Malformed edges are excluded from every field.
type Topology struct {
	// Adjacency maps a source id to its targets in edge-supply order.
	Adjacency map[string][]string
	// OutDegree and InDegree count well-formed edges per id.
	OutDegree map[string]int
	InDegree  map[string]int
	// EntryCandidates are node ids that are never an edge target.
	EntryCandidates []string
	// TerminalCandidates are node ids that are never an edge source.
	TerminalCandidates []string
	// BranchPoints are ids with out-degree greater than one.
	BranchPoints []string
	// Dropped counts malformed edges.
	Dropped int

	edges []Edge
}

// Analyze computes the Topology of nodes and edges.
// Candidate lists follow node document order; BranchPoints follow the
// order in which sources first appear in edges.
func Analyze(nodes []Node, edges []Edge) Topology {
	t := Topology{
		Adjacency: make(map[string][]string),
		OutDegree: make(map[string]int),
		InDegree:  make(map[string]int),
	}

	var sources []string
	for _, e := range edges {
		if e.Malformed() {
			t.Dropped++
			continue
		}
		if _, seen := t.Adjacency[e.Source]; !seen {
			sources = append(sources, e.Source)
		}
		t.Adjacency[e.Source] = append(t.Adjacency[e.Source], e.Target)
		t.OutDegree[e.Source]++
		t.InDegree[e.Target]++
		t.edges = append(t.edges, e)
	}

	for _, n := range nodes {
		if t.InDegree[n.ID] == 0 {
			t.EntryCandidates = append(t.EntryCandidates, n.ID)
		}
		if t.OutDegree[n.ID] == 0 {
			t.TerminalCandidates = append(t.TerminalCandidates, n.ID)
		}
	}

	for _, src := range sources {
		if t.OutDegree[src] > 1 {
			t.BranchPoints = append(t.BranchPoints, src)
		}
	}

	return t
}

// Edges returns the well-formed edges in supply order.
func (t Topology) Edges() []Edge {
	out := make([]Edge, len(t.edges))
	copy(out, t.edges)
	return out
}

// SelfLoops returns the well-formed edges whose source equals their target.
func (t Topology) SelfLoops() []Edge {
	var loops []Edge
	for _, e := range t.edges {
		if e.Source == e.Target {
			loops = append(loops, e)
		}
	}
	return loops
}

// IsBranchPoint reports whether id has more than one outgoing edge.
func (t Topology) IsBranchPoint(id string) bool {
	return t.OutDegree[id] > 1
}
