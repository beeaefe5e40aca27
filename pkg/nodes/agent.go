package nodes

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/tools"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// Agent system prompts used when the state has no formatted prompt and the
// config sets none.
const (
	DefaultAgentSystemPrompt    = "You are a helpful AI assistant."
	DefaultFallbackSystemPrompt = "You are a helpful assistant."
)

// ErrToolStepsExceeded is returned by the tool loop when the model is still
// requesting tools after the configured number of steps.
var ErrToolStepsExceeded = errors.New("tool step limit exceeded")

// RunAgent answers UserInput and stores the reply in AgentResponse.
//
// With tools in MCPTools the model may call them through the configured
// toolbox for up to cfg.ToolSteps() rounds. If that loop fails for any
// reason the agent logs a warning and falls back to a plain call. Without
// tools it makes a plain call, using FormattedPrompt as the system prompt
// when there is one.
func RunAgent(ctx flowgraph.Context, s workflow.State, cfg workflow.Config) (u workflow.Update, err error) {
	if cfg.LLM == nil {
		return workflow.Update{}, llm.ErrNoClient
	}
	defer guard(agentFailed, &u)

	user := llm.UserMessage(s.UserInput)
	var reply string

	if len(s.MCPTools) > 0 {
		ctx.Logger().Info("running agent with tools", slog.Int("tools", len(s.MCPTools)))
		system := firstNonEmpty(s.FormattedPrompt, cfg.SystemPrompt, DefaultAgentSystemPrompt)
		reply, err = runToolLoop(ctx, cfg, s.MCPTools, newRequest(cfg, system, user))
		if err != nil {
			ctx.Logger().Warn("agent tool loop failed, falling back to direct call",
				slog.String("error", err.Error()))
			system = firstNonEmpty(s.FormattedPrompt, cfg.SystemPrompt, DefaultFallbackSystemPrompt)
			reply, err = complete(ctx, cfg, newRequest(cfg, system, user))
		}
	} else {
		ctx.Logger().Info("no tools available, using direct call")
		reply, err = complete(ctx, cfg, newRequest(cfg, s.FormattedPrompt, user))
	}
	if err != nil {
		ctx.Logger().Error("agent failed", slog.String("error", err.Error()))
		return failed(agentFailed, err), nil
	}

	ctx.Logger().Info("agent response", slog.String("response", preview(reply)))
	return workflow.Update{AgentResponse: workflow.Set(reply)}, nil
}

func complete(ctx flowgraph.Context, cfg workflow.Config, req llm.CompletionRequest) (string, error) {
	resp, err := cfg.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// runToolLoop lets the model call tools until it answers without a tool
// call. Tool failures are fed back to the model as error results.
func runToolLoop(ctx flowgraph.Context, cfg workflow.Config, descs []tools.Descriptor, req llm.CompletionRequest) (string, error) {
	tb := cfg.Toolbox()
	req.Tools = tools.LLMTools(descs)
	steps := cfg.ToolSteps()

	for step := 0; step < steps; step++ {
		resp, err := cfg.LLM.Complete(ctx, req)
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		req.Messages = append(req.Messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			result := llm.Message{Role: llm.RoleTool, ToolCallID: call.ID}
			out, err := tb.CallTool(ctx, call.Name, call.Arguments)
			if err != nil {
				ctx.Logger().Warn("tool call failed",
					slog.String("tool", call.Name),
					slog.String("error", err.Error()),
				)
				result.Content = err.Error()
				result.IsError = true
			} else {
				ctx.Logger().Debug("tool call completed", slog.String("tool", call.Name))
				result.Content = out
			}
			req.Messages = append(req.Messages, result)
		}
	}
	return "", fmt.Errorf("%w: %d", ErrToolStepsExceeded, steps)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
