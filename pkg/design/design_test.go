package design

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "data": {
    "nodes": [
      {"id": "ChatInput-viP4f", "data": {"type": "ChatInput"}},
      {"id": "Prompt Template-t2VSF", "data": {"type": "Prompt", "node": {"template": {"template": {"value": "Answer: {text}"}}}}},
      {"id": "ChatOutput-x1", "data": {"type": "ChatOutput"}}
    ],
    "edges": [
      {"source": "ChatInput-viP4f", "target": "Prompt Template-t2VSF"},
      {"source": "Prompt Template-t2VSF", "target": "ChatOutput-x1"},
      {"source": "", "target": "ChatOutput-x1"}
    ]
  }
}`

const sampleYAML = `
data:
  nodes:
    - id: A
      data:
        type: ChatInput
    - id: B
  edges:
    - source: A
      target: B
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"ChatInput-viP4f", "chatinput_vip4f"},
		{"Prompt Template-t2VSF", "prompt_template_t2vsf"},
		{"--Agent--", "agent"},
		{"already_normal", "already_normal"},
		{"A.B.C", "a_b_c"},
		{"", ""},
		{"---", ""},
		{"Café-1", "caf__1"},
		{"ÄÖÜ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "idempotent")
		})
	}
}

func TestNormalize_OutputAlphabet(t *testing.T) {
	inputs := []string{"Hello World!", "x\ty\nz", "日本語-node-7", "__a__", "ChatOutput-XYZ"}
	for _, in := range inputs {
		out := Normalize(in)
		for _, r := range out {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
			assert.True(t, ok, "unexpected rune %q in %q", r, out)
		}
		assert.False(t, strings.HasPrefix(out, "_"))
		assert.False(t, strings.HasSuffix(out, "_"))
	}
}

func TestParse_JSON(t *testing.T) {
	doc, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	require.Len(t, doc.Nodes(), 3)
	require.Len(t, doc.Edges(), 3)
	assert.Equal(t, "ChatInput-viP4f", doc.Nodes()[0].ID)
	assert.Equal(t, "Prompt", doc.Nodes()[1].Type())
	assert.True(t, doc.Edges()[2].Malformed())
	assert.False(t, doc.Empty())
}

func TestParse_YAML(t *testing.T) {
	doc, err := Parse([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	require.Len(t, doc.Nodes(), 2)
	assert.Equal(t, "ChatInput", doc.Nodes()[0].Type())
	assert.Equal(t, UnknownType, doc.Nodes()[1].Type())
	assert.Equal(t, Edge{Source: "A", Target: "B"}, doc.Edges()[0])
}

func TestParse_MissingSections(t *testing.T) {
	for _, in := range []string{"", "   ", "{}", `{"data": {}}`, `{"data": {"nodes": []}}`} {
		doc, err := Parse([]byte(in), FormatJSON)
		require.NoError(t, err, in)
		assert.True(t, doc.Empty(), in)
		assert.Empty(t, doc.Edges(), in)
	}
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("{not json"), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte("data: [unclosed"), FormatYAML)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		doc, err := Load(writeFile(t, "design.json", sampleJSON))
		require.NoError(t, err)
		assert.Len(t, doc.Nodes(), 3)
	})

	t.Run("yaml by extension", func(t *testing.T) {
		doc, err := Load(writeFile(t, "design.yml", sampleYAML))
		require.NoError(t, err)
		assert.Len(t, doc.Nodes(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := Load(writeFile(t, "bad.json", "{"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestLoadFirst(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	present := writeFile(t, "design.json", sampleJSON)

	doc, path, err := LoadFirst("", missing, present)
	require.NoError(t, err)
	assert.Equal(t, present, path)
	assert.Len(t, doc.Nodes(), 3)

	_, _, err = LoadFirst(missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("x.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("X.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("x.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("design"))
}

func nodes(ids ...string) []Node {
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{ID: id}
	}
	return out
}

func TestAnalyze_Linear(t *testing.T) {
	topo := Analyze(nodes("A", "B", "C"), []Edge{{"A", "B"}, {"B", "C"}})

	assert.Equal(t, []string{"A"}, topo.EntryCandidates)
	assert.Equal(t, []string{"C"}, topo.TerminalCandidates)
	assert.Empty(t, topo.BranchPoints)
	assert.Equal(t, []string{"B"}, topo.Adjacency["A"])
	assert.Equal(t, 1, topo.InDegree["C"])
}

func TestAnalyze_Branching(t *testing.T) {
	topo := Analyze(nodes("A", "B", "C"), []Edge{{"A", "B"}, {"A", "C"}})

	assert.Equal(t, []string{"A"}, topo.BranchPoints)
	assert.True(t, topo.IsBranchPoint("A"))
	assert.Equal(t, []string{"B", "C"}, topo.Adjacency["A"])
	assert.Equal(t, []string{"B", "C"}, topo.TerminalCandidates)
}

func TestAnalyze_MalformedEdgesDropped(t *testing.T) {
	topo := Analyze(nodes("A", "B"), []Edge{{"A", ""}, {"", "B"}, {"A", "B"}})

	assert.Equal(t, 2, topo.Dropped)
	assert.Len(t, topo.Edges(), 1)
	assert.Equal(t, []string{"A"}, topo.EntryCandidates)
	assert.Equal(t, []string{"B"}, topo.TerminalCandidates)
}

func TestAnalyze_Cycle(t *testing.T) {
	topo := Analyze(nodes("A", "B"), []Edge{{"A", "B"}, {"B", "A"}})

	assert.Empty(t, topo.EntryCandidates)
	assert.Empty(t, topo.TerminalCandidates)
}

func TestAnalyze_SelfLoops(t *testing.T) {
	topo := Analyze(nodes("A", "B"), []Edge{{"A", "A"}, {"A", "B"}})

	assert.Equal(t, []Edge{{"A", "A"}}, topo.SelfLoops())
	assert.Equal(t, []string{"A"}, topo.BranchPoints)
}

func TestAnalyze_EdgesToUnknownNodes(t *testing.T) {
	topo := Analyze(nodes("A"), []Edge{{"A", "ghost"}})

	assert.Empty(t, topo.TerminalCandidates)
	assert.Equal(t, []string{"A"}, topo.EntryCandidates)
}

func TestParams(t *testing.T) {
	p := NewParams(map[string]any{
		"type": "Agent",
		"node": map[string]any{
			"template": map[string]any{
				"temperature":    map[string]any{"value": 0.3},
				"max_tokens":     map[string]any{"value": float64(512)},
				"quoted":         map[string]any{"value": "0.9"},
				"streaming":      map[string]any{"value": true},
				"timeout":        map[string]any{"value": "30s"},
				"timeout_number": map[string]any{"value": 5},
				"fraction":       map[string]any{"value": 1.5},
			},
		},
	})

	assert.Equal(t, "Agent", p.String("type", ""))
	assert.Equal(t, 0.3, p.Float(Field("temperature"), 0.7))
	assert.Equal(t, 0.9, p.Float(Field("quoted"), 0.7))
	assert.Equal(t, 512, p.Int(Field("max_tokens"), 0))
	assert.Equal(t, 7, p.Int(Field("fraction"), 7))
	assert.True(t, p.Bool(Field("streaming"), false))
	assert.Equal(t, 30*time.Second, p.Duration(Field("timeout"), 0))
	assert.Equal(t, 5*time.Second, p.Duration(Field("timeout_number"), 0))

	assert.Equal(t, "fallback", p.String(Field("missing"), "fallback"))
	assert.Equal(t, "fallback", p.String(Field("temperature"), "fallback"))
	assert.Equal(t, 0.7, p.Float("type.nested", 0.7))
}

func TestParams_Nil(t *testing.T) {
	p := NewParams(nil)
	_, ok := p.Lookup("anything")
	assert.False(t, ok)
	assert.Equal(t, 3, p.Int("x", 3))
}

func TestNode_Params(t *testing.T) {
	n := Node{ID: "Prompt-1", Data: map[string]any{
		"node": map[string]any{"template": map[string]any{"template": map[string]any{"value": "Hi {text}"}}},
	}}
	assert.Equal(t, "Hi {text}", n.Params().String(Field("template"), ""))
}

func TestVisualize(t *testing.T) {
	doc, err := Parse([]byte(sampleJSON), FormatJSON)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Graph Structure:",
		rule,
		"ChatInput (ChatInput-viP4f) -> Prompt (Prompt Template-t2VSF)",
		"Prompt (Prompt Template-t2VSF) -> ChatOutput (ChatOutput-x1)",
		"ChatOutput (ChatOutput-x1) (END)",
		rule,
	}, "\n")
	assert.Equal(t, want, Visualize(doc))
}

func TestVisualize_Branching(t *testing.T) {
	doc := &Document{Data: Graph{
		Nodes: []Node{{ID: "A"}, {ID: "B"}, {ID: "C"}},
		Edges: []Edge{{"A", "B"}, {"A", "C"}},
	}}

	out := Visualize(doc)
	assert.Contains(t, out, "Unknown (A) -> Unknown (B), Unknown (C)")
	assert.Contains(t, out, "Unknown (B) (END)")
	assert.Contains(t, out, "Unknown (C) (END)")
	assert.Len(t, rule, 60)
}
