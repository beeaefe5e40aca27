package nodes

import (
	"log/slog"

	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// CaptureInput copies the content of the latest message into UserInput.
// With no messages, UserInput becomes empty.
func CaptureInput(ctx flowgraph.Context, s workflow.State, _ workflow.Config) (u workflow.Update, err error) {
	defer guard(inputFailed, &u)

	input := ""
	if msg, ok := s.LastMessage(); ok {
		input = msg.Content
	}
	ctx.Logger().Info("user input captured", slog.String("input", preview(input)))
	return workflow.Update{UserInput: workflow.Set(input)}, nil
}

// FormatOutput sets FinalOutput from AgentResponse, else ModelResponse,
// else workflow.NoResponse.
func FormatOutput(ctx flowgraph.Context, s workflow.State, _ workflow.Config) (u workflow.Update, err error) {
	defer guard(outputFailed, &u)

	out := s.AgentResponse
	if out == "" {
		out = s.ModelResponse
	}
	if out == "" {
		out = workflow.NoResponse
	}
	ctx.Logger().Info("chat output prepared")
	return workflow.Update{FinalOutput: workflow.Set(out)}, nil
}
