package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultNodeName is the single node of the default pipeline.
const DefaultNodeName = "default_model"

// DefaultMaxIterations caps node executions per invocation.
const DefaultMaxIterations = 100

type compileConfig struct {
	logger        *slog.Logger
	typeFallback  *Registry
	metrics       bool
	tracing       bool
	maxIterations int
	name          string
}

// CompileOption configures Compile.
type CompileOption func(*compileConfig)

// WithCompileLogger sets the logger for compile diagnostics and for
// invocations of the resulting pipeline.
// Default: slog.Default()
func WithCompileLogger(logger *slog.Logger) CompileOption {
	return func(c *compileConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTypeFallback consults reg by node type (data.type) when a raw id
// has no behavior in the primary registry.
func WithTypeFallback(reg *Registry) CompileOption {
	return func(c *compileConfig) { c.typeFallback = reg }
}

// WithMetrics records compile and run metrics through the global
// OpenTelemetry meter provider.
func WithMetrics(enabled bool) CompileOption {
	return func(c *compileConfig) { c.metrics = enabled }
}

// WithTracing emits a span per invocation and per node.
func WithTracing(enabled bool) CompileOption {
	return func(c *compileConfig) { c.tracing = enabled }
}

// WithMaxIterations caps node executions per invocation.
// Default: DefaultMaxIterations
func WithMaxIterations(n int) CompileOption {
	return func(c *compileConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithPipelineName sets the name reported on run spans.
func WithPipelineName(name string) CompileOption {
	return func(c *compileConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// Compile turns a design document into an immutable linear Pipeline.
//
// Nodes whose raw id has no registered behavior are skipped, edges that
// touch them are pruned, and branch points keep only their first edge.
// Each of these is recorded as a Diagnostic, never an error. A document
// with no nodes, or none registered, compiles to the default pipeline.
//
// Compile fails with a *CompileError when two node ids share a canonical
// name (ErrNameCollision), when a wired edge is a self-loop (ErrSelfLoop),
// or when the engine rejects the graph.
func Compile(doc *design.Document, reg *Registry, cfg Config, opts ...CompileOption) (p *Pipeline, err error) {
	cc := compileConfig{
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
		name:          "pipeline",
	}
	for _, opt := range opts {
		opt(&cc)
	}

	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = &CompileError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	c := &compiler{
		reg:        reg,
		cfg:        cfg,
		cc:         cc,
		logger:     cc.logger,
		graph:      flowgraph.NewGraph[State](),
		names:      make(map[string]string),
		registered: make(map[string]bool),
	}
	if cc.metrics {
		c.metrics = observability.NewMetricsRecorder()
	} else {
		c.metrics = observability.NoopMetrics{}
	}
	return c.compile(doc)
}

type compiler struct {
	reg     *Registry
	cfg     Config
	cc      compileConfig
	logger  *slog.Logger
	metrics observability.MetricsRecorder

	graph      *flowgraph.Graph[State]
	report     Report
	names      map[string]string // canonical name -> raw id
	registered map[string]bool
	order      []string // registered canonical names, document order
}

func (c *compiler) compile(doc *design.Document) (*Pipeline, error) {
	c.report.NodesTotal = len(doc.Nodes())
	c.report.EdgesTotal = len(doc.Edges())

	if doc.Empty() {
		c.logger.Info("design document has no nodes, using default pipeline")
		return c.defaultPipeline(doc)
	}

	if err := c.checkNames(doc.Nodes()); err != nil {
		return nil, err
	}
	for _, n := range doc.Nodes() {
		c.registerNode(n)
	}
	if len(c.order) == 0 {
		c.diag(DiagNoRegisteredNodes, "", "no node has a registered behavior, using default pipeline")
		return c.defaultPipeline(doc)
	}

	if err := c.wireEdges(doc.Edges()); err != nil {
		return nil, err
	}

	topo := design.Analyze(doc.Nodes(), doc.Edges())
	entry := c.selectEntry(topo)
	c.selectTerminals(topo)
	c.graph.SetEntry(entry)

	cg, err := c.graph.Compile(flowgraph.WithCompileLogger(c.logger))
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	c.reportBranches(topo, cg)

	return c.finish(doc, cg), nil
}

// checkNames fails on two nodes sharing a canonical name.
func (c *compiler) checkNames(nodes []design.Node) error {
	for _, n := range nodes {
		name := design.Normalize(n.ID)
		if name == "" {
			continue
		}
		if prev, dup := c.names[name]; dup {
			return &CompileError{Err: fmt.Errorf("%w: %q and %q both normalize to %q", ErrNameCollision, prev, n.ID, name)}
		}
		c.names[name] = n.ID
	}
	return nil
}

func (c *compiler) registerNode(n design.Node) {
	name := design.Normalize(n.ID)
	if name == "" {
		c.diag(DiagEmptyName, n.ID, fmt.Sprintf("node id %q normalizes to an empty name, skipping", n.ID))
		return
	}

	b, ok := c.reg.Lookup(n.ID)
	if !ok && c.cc.typeFallback != nil {
		b, ok = c.cc.typeFallback.Lookup(n.Type())
	}
	if !ok {
		c.diag(DiagNodeSkipped, n.ID, fmt.Sprintf("no behavior registered for node %q (type %s), skipping", n.ID, n.Type()))
		return
	}

	c.graph.AddNode(name, c.bind(name, b, c.cfg.WithParams(n.Params())))
	c.registered[name] = true
	c.order = append(c.order, name)
}

func (c *compiler) wireEdges(edges []design.Edge) error {
	for _, e := range edges {
		if e.Malformed() {
			continue
		}
		src, dst := design.Normalize(e.Source), design.Normalize(e.Target)
		if !c.registered[src] || !c.registered[dst] {
			c.diag(DiagEdgePruned, e.Source, fmt.Sprintf("edge %s -> %s touches a node without behavior, pruned", e.Source, e.Target))
			continue
		}
		if src == dst {
			return &CompileError{Err: fmt.Errorf("%w: %s -> %s", ErrSelfLoop, e.Source, e.Target)}
		}
		c.graph.AddEdge(src, dst)
		c.report.EdgesWired++
	}
	return nil
}

// selectEntry picks the lexicographically smallest registered entry
// candidate, else the first registered node.
func (c *compiler) selectEntry(topo design.Topology) string {
	candidates := slices.Clone(topo.EntryCandidates)
	slices.Sort(candidates)
	for _, raw := range candidates {
		if name := design.Normalize(raw); c.registered[name] {
			return name
		}
	}

	entry := c.order[0]
	c.diag(DiagEntryFallback, c.names[entry], fmt.Sprintf("no registered entry candidate, falling back to first node %s", entry))
	return entry
}

// selectTerminals routes every registered terminal candidate to END, else
// the last registered node.
func (c *compiler) selectTerminals(topo design.Topology) {
	found := false
	for _, raw := range topo.TerminalCandidates {
		if name := design.Normalize(raw); c.registered[name] {
			c.graph.AddEdge(name, flowgraph.END)
			found = true
		}
	}
	if found {
		return
	}

	last := c.order[len(c.order)-1]
	c.graph.AddEdge(last, flowgraph.END)
	c.diag(DiagTerminalFallback, c.names[last], fmt.Sprintf("no registered terminal candidate, falling back to last node %s", last))
}

func (c *compiler) reportBranches(topo design.Topology, cg *flowgraph.CompiledGraph[State]) {
	for _, raw := range topo.BranchPoints {
		name := design.Normalize(raw)
		if !c.registered[name] {
			continue
		}
		kept := cg.Successor(name)
		var dropped []string
		for _, target := range topo.Adjacency[raw] {
			t := design.Normalize(target)
			if t != kept && !slices.Contains(dropped, t) {
				dropped = append(dropped, t)
			}
		}
		if len(dropped) == 0 {
			continue
		}
		c.diag(DiagBranchLinearized, raw, fmt.Sprintf(
			"branching detected at %s, keeping %s and dropping %s", raw, kept, strings.Join(dropped, ", ")))
	}
}

func (c *compiler) defaultPipeline(doc *design.Document) (*Pipeline, error) {
	b, ok := c.reg.Default()
	if !ok {
		return nil, &CompileError{Err: ErrNoDefaultBehavior}
	}

	c.graph = flowgraph.NewGraph[State]().
		AddNode(DefaultNodeName, c.bind(DefaultNodeName, b, c.cfg.WithParams(design.NewParams(nil)))).
		AddEdge(DefaultNodeName, flowgraph.END).
		SetEntry(DefaultNodeName)
	c.order = []string{DefaultNodeName}
	c.report.Default = true

	cg, err := c.graph.Compile(flowgraph.WithCompileLogger(c.logger))
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	return c.finish(doc, cg), nil
}

func (c *compiler) finish(doc *design.Document, cg *flowgraph.CompiledGraph[State]) *Pipeline {
	c.report.NodesRegistered = len(c.order)
	c.report.Entry = cg.EntryPoint()
	c.report.Terminals = cg.Terminals()

	observability.LogCompileSummary(c.logger, c.report.NodesRegistered, c.report.EdgesWired, c.report.Entry, c.report.Terminals)
	if !c.report.Default {
		c.logger.Info("graph structure", slog.String("layout", "\n"+design.Visualize(doc)))
	}
	c.metrics.RecordCompile(context.Background(), c.report.NodesRegistered, len(c.report.Diagnostics))

	runOpts := []flowgraph.RunOption{
		flowgraph.WithMaxIterations(c.cc.maxIterations),
		flowgraph.WithGraphName(c.cc.name),
		flowgraph.WithMetrics(c.cc.metrics),
		flowgraph.WithTracing(c.cc.tracing),
	}
	return &Pipeline{
		graph:   cg,
		report:  c.report,
		steps:   cg.Path(),
		logger:  c.logger,
		runOpts: runOpts,
	}
}

func (c *compiler) diag(kind DiagnosticKind, nodeID, message string) {
	c.report.Diagnostics = append(c.report.Diagnostics, Diagnostic{Kind: kind, NodeID: nodeID, Message: message})
	observability.LogCompileDiagnostic(c.logger, string(kind), nodeID, message)
}

// bind closes over a behavior and its config. The bound function merges
// the behavior's update and records reported errors.
func (c *compiler) bind(name string, b Behavior, cfg Config) flowgraph.NodeFunc[State] {
	metrics := c.metrics
	return func(ctx flowgraph.Context, s State) (State, error) {
		u, err := b.Run(ctx, s.Clone(), cfg)
		if err != nil {
			return s, err
		}
		if msg, ok := u.ReportedError(); ok {
			observability.LogReportedError(ctx.Logger(), name, msg)
			observability.AddSpanEvent(ctx, "node.reported_error",
				attribute.String("node_id", name),
				attribute.String("error", msg),
			)
			metrics.RecordReportedError(ctx, name)
		}
		return s.Merge(u), nil
	}
}
