package workflow

import (
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/tools"
)

// Field is an optional value in an Update.
type Field[T any] struct {
	Value T
	Set   bool
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Update is the partial state a node returns. Only set fields are merged.
type Update struct {
	Messages        Field[[]llm.Message]
	SessionID       Field[string]
	UserInput       Field[string]
	FormattedPrompt Field[string]
	ModelResponse   Field[string]
	AgentResponse   Field[string]
	FinalOutput     Field[string]
	MCPTools        Field[[]tools.Descriptor]
	Error           Field[string]
}

// ErrorUpdate returns an update that sets only Error.
func ErrorUpdate(msg string) Update {
	return Update{Error: Set(msg)}
}

// Empty reports whether no field is set.
func (u Update) Empty() bool {
	return !u.Messages.Set && !u.SessionID.Set && !u.UserInput.Set &&
		!u.FormattedPrompt.Set && !u.ModelResponse.Set && !u.AgentResponse.Set &&
		!u.FinalOutput.Set && !u.MCPTools.Set && !u.Error.Set
}

// ReportedError returns the error message the update sets, if any.
func (u Update) ReportedError() (string, bool) {
	if u.Error.Set && u.Error.Value != "" {
		return u.Error.Value, true
	}
	return "", false
}
