package workflow

import (
	"slices"

	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/tools"
)

// NoResponse is surfaced when no node produced any output text.
const NoResponse = "No response generated"

// State is the shared record every node reads and updates.
// Fields are only ever added or overwritten, never removed.
type State struct {
	Messages        []llm.Message      `json:"messages"`
	SessionID       string             `json:"session_id,omitempty"`
	UserInput       string             `json:"user_input,omitempty"`
	FormattedPrompt string             `json:"formatted_prompt,omitempty"`
	ModelResponse   string             `json:"model_response,omitempty"`
	AgentResponse   string             `json:"agent_response,omitempty"`
	FinalOutput     string             `json:"final_output,omitempty"`
	MCPTools        []tools.Descriptor `json:"mcp_tools"`
	Error           string             `json:"error,omitempty"`
}

// NewState returns a state seeded with one user message.
func NewState(sessionID, message string) State {
	return State{
		Messages:  []llm.Message{llm.UserMessage(message)},
		SessionID: sessionID,
		UserInput: message,
		MCPTools:  []tools.Descriptor{},
	}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	s.Messages = slices.Clone(s.Messages)
	s.MCPTools = slices.Clone(s.MCPTools)
	return s
}

// LastMessage returns the most recent message, if any.
func (s State) LastMessage() (llm.Message, bool) {
	if len(s.Messages) == 0 {
		return llm.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Response returns the caller-visible answer: FinalOutput, else
// AgentResponse, else ModelResponse, else "".
func (s State) Response() string {
	switch {
	case s.FinalOutput != "":
		return s.FinalOutput
	case s.AgentResponse != "":
		return s.AgentResponse
	default:
		return s.ModelResponse
	}
}

// ResponseOrDefault is Response with NoResponse in place of "".
func (s State) ResponseOrDefault() string {
	if r := s.Response(); r != "" {
		return r
	}
	return NoResponse
}

// Merge applies u to a copy of s. A set field always wins; unset fields
// leave s unchanged. Slices are copied, so neither s nor u aliases the
// result.
func (s State) Merge(u Update) State {
	out := s.Clone()
	if u.Messages.Set {
		out.Messages = slices.Clone(u.Messages.Value)
	}
	if u.SessionID.Set {
		out.SessionID = u.SessionID.Value
	}
	if u.UserInput.Set {
		out.UserInput = u.UserInput.Value
	}
	if u.FormattedPrompt.Set {
		out.FormattedPrompt = u.FormattedPrompt.Value
	}
	if u.ModelResponse.Set {
		out.ModelResponse = u.ModelResponse.Value
	}
	if u.AgentResponse.Set {
		out.AgentResponse = u.AgentResponse.Value
	}
	if u.FinalOutput.Set {
		out.FinalOutput = u.FinalOutput.Value
	}
	if u.MCPTools.Set {
		out.MCPTools = slices.Clone(u.MCPTools.Value)
	}
	if u.Error.Set {
		out.Error = u.Error.Value
	}
	return out
}
