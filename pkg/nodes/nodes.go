// Package nodes provides the node behaviors a design document can name and
// the registries that map design node ids and types to them.
//
// Every behavior reports its own faults through workflow.Update.Error with
// a prefix naming the node ("Agent failed: ..."), so a later node can still
// run. A missing inference client is the only fatal condition.
package nodes

import (
	"fmt"
	"unicode/utf8"

	"github.com/randalmurphal/designflow/pkg/workflow"
)

// Raw node ids in the bundled design document.
const (
	InputID  = "ChatInput-viP4f"
	PromptID = "Prompt Template-t2VSF"
	ToolsID  = "MCP-ufEql"
	ModelID  = "AzureOpenAIModel-6aodL"
	AgentID  = "Agent-Zgq5D"
	OutputID = "ChatOutput-AVpjO"
)

// Node types, as found in a node's data.type.
const (
	TypeInput  = "ChatInput"
	TypePrompt = "Prompt Template"
	TypeTools  = "MCP"
	TypeModel  = "AzureOpenAIModel"
	TypeAgent  = "Agent"
	TypeOutput = "ChatOutput"
)

// Error prefixes for reported faults.
const (
	inputFailed   = "ChatInput failed"
	promptFailed  = "Prompt Template failed"
	toolsFailed   = "MCP node failed"
	modelFailed   = "Model invocation failed"
	agentFailed   = "Agent failed"
	outputFailed  = "Chat Output failed"
	defaultFailed = "Default model node failed"
)

// DefaultRegistry maps the raw ids of the bundled design document to their
// behaviors, with DefaultModel as the default pipeline's behavior.
// Lookup is by exact raw id.
func DefaultRegistry() *workflow.Registry {
	return workflow.NewRegistry().
		Register(InputID, workflow.BehaviorFunc(CaptureInput)).
		Register(PromptID, workflow.BehaviorFunc(FormatPrompt)).
		Register(ToolsID, workflow.BehaviorFunc(DiscoverTools)).
		Register(ModelID, workflow.BehaviorFunc(InvokeModel)).
		Register(AgentID, workflow.BehaviorFunc(RunAgent)).
		Register(OutputID, workflow.BehaviorFunc(FormatOutput)).
		SetDefault(workflow.BehaviorFunc(DefaultModel))
}

// TypeRegistry maps node types to behaviors. Pass it to
// workflow.WithTypeFallback to accept documents whose node ids differ from
// the bundled ones.
func TypeRegistry() *workflow.Registry {
	return workflow.NewRegistry().
		Register(TypeInput, workflow.BehaviorFunc(CaptureInput)).
		Register(TypePrompt, workflow.BehaviorFunc(FormatPrompt)).
		Register(TypeTools, workflow.BehaviorFunc(DiscoverTools)).
		Register(TypeModel, workflow.BehaviorFunc(InvokeModel)).
		Register(TypeAgent, workflow.BehaviorFunc(RunAgent)).
		Register(TypeOutput, workflow.BehaviorFunc(FormatOutput)).
		SetDefault(workflow.BehaviorFunc(DefaultModel))
}

// failed builds the update for a reported fault.
func failed(prefix string, err error) workflow.Update {
	return workflow.ErrorUpdate(fmt.Sprintf("%s: %v", prefix, err))
}

// guard turns a panic inside a behavior into a reported fault.
func guard(prefix string, u *workflow.Update) {
	if r := recover(); r != nil {
		*u = failed(prefix, fmt.Errorf("panic: %v", r))
	}
}

// preview shortens s for log output.
func preview(s string) string {
	const limit = 100
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
