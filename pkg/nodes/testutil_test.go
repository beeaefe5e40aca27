package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/tools"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testContext() flowgraph.Context {
	return flowgraph.NewContext(context.Background(), flowgraph.WithLogger(quietLogger()))
}

// params builds node params with node.template.<name>.value entries.
func params(values map[string]any) design.Params {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		fields[k] = map[string]any{"value": v}
	}
	return design.NewParams(map[string]any{"node": map[string]any{"template": fields}})
}

// fakeToolbox serves fixed descriptors and scripted call results.
type fakeToolbox struct {
	mu      sync.Mutex
	descs   []tools.Descriptor
	listErr error
	results map[string]string
	panics  bool
	calls   []string
}

func (f *fakeToolbox) ListTools(context.Context) ([]tools.Descriptor, error) {
	if f.panics {
		panic("toolbox exploded")
	}
	return f.descs, f.listErr
}

func (f *fakeToolbox) CallTool(_ context.Context, name string, args json.RawMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name+" "+string(args))
	out, ok := f.results[name]
	if !ok {
		return "", errors.New("no such tool: " + name)
	}
	return out, nil
}

func (f *fakeToolbox) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

var calculator = tools.Descriptor{
	Name:        "calculator",
	Description: "Evaluates arithmetic",
	InputSchema: json.RawMessage(`{"type":"object","properties":{"expr":{"type":"string"}},"required":["expr"]}`),
}
