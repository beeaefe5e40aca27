package nodes

import (
	"log/slog"

	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/tools"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// DiscoverTools lists the tools of the configured toolbox into MCPTools.
// Without a toolbox the list is empty.
func DiscoverTools(ctx flowgraph.Context, _ workflow.State, cfg workflow.Config) (u workflow.Update, err error) {
	defer guard(toolsFailed, &u)

	descs, err := cfg.Toolbox().ListTools(ctx)
	if err != nil {
		ctx.Logger().Error("tool discovery failed", slog.String("error", err.Error()))
		return failed(toolsFailed, err), nil
	}
	if descs == nil {
		descs = []tools.Descriptor{}
	}

	ctx.Logger().Info("tools discovered", slog.Int("count", len(descs)))
	return workflow.Update{MCPTools: workflow.Set(descs)}, nil
}
