package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
)

// quietLogger discards all output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// trail records which behaviors ran, safe for concurrent use.
type trail struct {
	mu    sync.Mutex
	steps []string
}

func (t *trail) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, name)
}

func (t *trail) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

// track returns a behavior that records its name and appends it to
// FinalOutput.
func track(tr *trail, name string) Behavior {
	return BehaviorFunc(func(_ flowgraph.Context, s State, _ Config) (Update, error) {
		tr.add(name)
		return Update{FinalOutput: Set(s.FinalOutput + name + ";")}, nil
	})
}

// reportError returns a behavior that sets only Error.
func reportError(msg string) Behavior {
	return BehaviorFunc(func(flowgraph.Context, State, Config) (Update, error) {
		return ErrorUpdate(msg), nil
	})
}

// fail returns a behavior that returns a fatal error.
func fail(err error) Behavior {
	return BehaviorFunc(func(flowgraph.Context, State, Config) (Update, error) {
		return Update{}, err
	})
}

// echo sets ModelResponse and FinalOutput to the user input.
var echo = BehaviorFunc(func(_ flowgraph.Context, s State, _ Config) (Update, error) {
	return Update{ModelResponse: Set(s.UserInput), FinalOutput: Set(s.UserInput)}, nil
})

// doc builds a document from node ids and "src>dst" edge specs.
func doc(ids []string, edges ...[2]string) *design.Document {
	d := &design.Document{}
	for _, id := range ids {
		d.Data.Nodes = append(d.Data.Nodes, design.Node{ID: id})
	}
	for _, e := range edges {
		d.Data.Edges = append(d.Data.Edges, design.Edge{Source: e[0], Target: e[1]})
	}
	return d
}

// trackingRegistry registers track behaviors for each id.
func trackingRegistry(tr *trail, ids ...string) *Registry {
	reg := NewRegistry().SetDefault(echo)
	for _, id := range ids {
		reg.Register(id, track(tr, id))
	}
	return reg
}

// captureHandler records log records as JSON maps.
type captureHandler struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{"level": r.Level.String(), "msg": r.Message}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	return json.NewEncoder(&h.buf).Encode(data)
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

func (h *captureHandler) records() []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]any
	for _, line := range bytes.Split(h.buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}
