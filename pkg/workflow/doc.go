// Package workflow compiles design documents into linear pipelines and runs
// them over a shared State.
//
// # Compiling
//
// A Registry maps raw design node ids to Behaviors. Compile binds each
// registered node, together with its Config, under its canonical name,
// wires edges between canonical names, and freezes the result:
//
//	reg := nodes.DefaultRegistry()
//	p, err := workflow.Compile(doc, reg, cfg, workflow.WithCompileLogger(logger))
//	if err != nil {
//	    var ce *workflow.CompileError
//	    // name collision, self-loop, or engine rejection
//	}
//	for _, d := range p.Report().Diagnostics {
//	    fmt.Println(d.Kind, d.Message)
//	}
//
// Degradations (unknown nodes, pruned edges, linearized branches, entry
// and terminal fallbacks) are recorded as Diagnostics and never fail
// compilation.
//
// # Running
//
// Each node receives a snapshot of State and returns an Update whose set
// fields are merged in:
//
//	final, err := p.Invoke(ctx, workflow.NewState("session-1", "What is 2+2?"))
//	if err != nil {
//	    // fatal node failure, cancellation, or iteration cap
//	}
//	if final.Error != "" {
//	    // a node reported a fault; later nodes still ran
//	}
//	fmt.Println(final.Response())
package workflow
