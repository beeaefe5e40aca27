package nodes

import (
	"log/slog"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// NoInput is the ModelResponse when there is nothing to send to the model.
const NoInput = "No input provided"

// newRequest builds a request with the node's model parameters, falling
// back to the bound config for each one.
func newRequest(cfg workflow.Config, system string, msgs ...llm.Message) llm.CompletionRequest {
	p := cfg.Params
	return llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     msgs,
		Model:        firstNonEmpty(p.String(design.Field("model_name"), ""), cfg.Model),
		MaxTokens:    p.Int(design.Field("max_tokens"), cfg.MaxTokens),
		Temperature:  llm.Float(llm.ClampTemperature(p.Float(design.Field("temperature"), cfg.Temperature))),
	}
}

// InvokeModel sends FormattedPrompt, else UserInput, as a single user turn
// and stores the reply in ModelResponse.
func InvokeModel(ctx flowgraph.Context, s workflow.State, cfg workflow.Config) (u workflow.Update, err error) {
	if cfg.LLM == nil {
		return workflow.Update{}, llm.ErrNoClient
	}
	defer guard(modelFailed, &u)

	input := s.FormattedPrompt
	if input == "" {
		input = s.UserInput
	}
	if input == "" {
		ctx.Logger().Warn("no input available for model")
		return workflow.Update{ModelResponse: workflow.Set(NoInput)}, nil
	}

	req := newRequest(cfg, "", llm.UserMessage(input))
	ctx.Logger().Info("invoking model", slog.String("model", req.Model))
	resp, err := cfg.LLM.Complete(ctx, req)
	if err != nil {
		ctx.Logger().Error("model invocation failed", slog.String("error", err.Error()))
		return failed(modelFailed, err), nil
	}

	ctx.Logger().Info("model response received",
		slog.String("response", preview(resp.Content)),
		slog.Int("tokens", resp.Usage.TotalTokens),
	)
	return workflow.Update{ModelResponse: workflow.Set(resp.Content)}, nil
}

// DefaultModel answers UserInput, else the latest message, with the
// configured model. It backs the single-node default pipeline and sets
// both ModelResponse and FinalOutput.
func DefaultModel(ctx flowgraph.Context, s workflow.State, cfg workflow.Config) (u workflow.Update, err error) {
	if cfg.LLM == nil {
		return workflow.Update{}, llm.ErrNoClient
	}
	defer guard(defaultFailed, &u)

	query := s.UserInput
	if query == "" {
		if msg, ok := s.LastMessage(); ok {
			query = msg.Content
		}
	}
	if query == "" {
		ctx.Logger().Warn("no user query found in state")
		return workflow.ErrorUpdate("No user query provided"), nil
	}

	req := newRequest(cfg, cfg.SystemPrompt, llm.UserMessage(query))
	ctx.Logger().Info("invoking default model",
		slog.String("model", req.Model),
		slog.String("query", preview(query)),
	)
	resp, err := cfg.LLM.Complete(ctx, req)
	if err != nil {
		ctx.Logger().Error("default model failed", slog.String("error", err.Error()))
		return failed(defaultFailed, err), nil
	}

	return workflow.Update{
		ModelResponse: workflow.Set(resp.Content),
		FinalOutput:   workflow.Set(resp.Content),
	}, nil
}
