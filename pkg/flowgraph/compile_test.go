package flowgraph

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() *Graph[Counter]
		want  []error
	}{
		{
			name: "missing entry",
			build: func() *Graph[Counter] {
				return NewGraph[Counter]().AddNode("a", increment)
			},
			want: []error{ErrNoEntryPoint},
		},
		{
			name: "unknown entry",
			build: func() *Graph[Counter] {
				return NewGraph[Counter]().AddNode("a", increment).SetEntry("b")
			},
			want: []error{ErrEntryNotFound},
		},
		{
			name: "unknown edge target",
			build: func() *Graph[Counter] {
				return NewGraph[Counter]().AddNode("a", increment).AddEdge("a", "ghost").SetEntry("a")
			},
			want: []error{ErrNodeNotFound},
		},
		{
			name: "unknown edge source and entry",
			build: func() *Graph[Counter] {
				return NewGraph[Counter]().AddNode("a", increment).AddEdge("ghost", "a")
			},
			want: []error{ErrNoEntryPoint, ErrNodeNotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := tt.build().Compile()
			require.Error(t, err)
			assert.Nil(t, compiled)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestCompile_NoPathToEndIsAllowed(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.Equal(t, "b", compiled.Successor("a"))
	assert.Equal(t, END, compiled.Successor("b"))
}

func TestCompile_LinearizesBranches(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("b", makeTrackingNode("b")).
		AddNode("c", makeTrackingNode("c")).
		AddEdge("a", "b").
		AddEdge("a", "c").
		AddEdge("b", END).
		AddEdge("c", END).
		SetEntry("a").
		Compile(WithCompileLogger(logger))

	require.NoError(t, err)
	assert.Equal(t, "b", compiled.Successor("a"))
	assert.Equal(t, []BranchPoint{{NodeID: "a", Kept: "b", Dropped: []string{"c"}}}, compiled.BranchPoints())
	assert.Equal(t, []string{"a", "b"}, compiled.Path())
	assert.Contains(t, buf.String(), "branching detected")
	assert.Contains(t, buf.String(), "node is unreachable from entry")
	assert.Contains(t, buf.String(), "node_id=c")
}

func TestCompile_TerminalWinsOverOutgoingEdge(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		AddEdge("b", END).
		SetEntry("a").
		Compile()

	require.NoError(t, err)
	assert.True(t, compiled.IsTerminal("b"))
	assert.False(t, compiled.IsTerminal("a"))
	assert.Equal(t, END, compiled.Successor("b"))
	assert.Equal(t, []string{"b"}, compiled.Terminals())
	assert.Equal(t, []string{"a"}, compiled.Successors("b"))
}

func TestCompiledGraph_Introspection(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	assert.Equal(t, "a", compiled.EntryPoint())
	assert.True(t, compiled.HasNode("a"))
	assert.False(t, compiled.HasNode(END))
	assert.Equal(t, []string{"a"}, compiled.Predecessors("b"))
	assert.Nil(t, compiled.Successors(END))
	assert.Equal(t, "", compiled.Successor("ghost"))
	assert.Equal(t, []string{"a", "b"}, compiled.Path())
}

func TestCompiledGraph_PathStopsOnCycle(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", "a").
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, compiled.Path())
}
