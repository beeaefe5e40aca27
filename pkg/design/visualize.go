package design

import (
	"fmt"
	"strings"
)

const rule = "------------------------------------------------------------"

// Visualize renders the document topology as text, one line per source
// node listing its targets, then one "(END)" line per node without
// outgoing edges. Malformed edges are ignored.
//
//	Graph Structure:
//	------------------------------------------------------------
//	ChatInput (ChatInput-viP4f) -> Prompt (Prompt Template-t2VSF)
//	Prompt (Prompt Template-t2VSF) (END)
//	------------------------------------------------------------
func Visualize(doc *Document) string {
	labels := make(map[string]string, len(doc.Nodes()))
	for _, n := range doc.Nodes() {
		labels[n.ID] = fmt.Sprintf("%s (%s)", n.Type(), n.ID)
	}
	label := func(id string) string {
		if l, ok := labels[id]; ok {
			return l
		}
		return id
	}

	topo := Analyze(doc.Nodes(), doc.Edges())

	var b strings.Builder
	b.WriteString("Graph Structure:\n")
	b.WriteString(rule + "\n")

	written := make(map[string]bool)
	for _, e := range topo.Edges() {
		if written[e.Source] {
			continue
		}
		written[e.Source] = true
		targets := topo.Adjacency[e.Source]
		names := make([]string, len(targets))
		for i, t := range targets {
			names[i] = label(t)
		}
		fmt.Fprintf(&b, "%s -> %s\n", label(e.Source), strings.Join(names, ", "))
	}

	for _, id := range topo.TerminalCandidates {
		fmt.Fprintf(&b, "%s (END)\n", label(id))
	}

	b.WriteString(rule)
	return b.String()
}
