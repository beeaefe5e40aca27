package template

// MissingAction specifies how to handle missing variables.
type MissingAction int

const (
	// MissingKeep keeps the placeholder as-is when the variable is not found.
	// This is the default behavior.
	MissingKeep MissingAction = iota

	// MissingEmpty replaces the placeholder with an empty string.
	MissingEmpty

	// MissingError returns an *UndefinedVariableError.
	MissingError
)

// Option configures an Expander.
type Option func(*Expander)

// WithMissingAction sets how missing variables are handled.
//
// Default: MissingKeep
//
// Example:
//
//	exp := NewExpander(WithMissingAction(MissingError))
//	_, err := exp.Expand("{missing}", nil)
//	// err: "undefined variable: missing"
func WithMissingAction(action MissingAction) Option {
	return func(e *Expander) {
		e.missingAction = action
	}
}

// WithDollarBrace enables or disables ${var} expansion.
//
// Default: true
func WithDollarBrace(enabled bool) Option {
	return func(e *Expander) {
		e.dollarBrace = enabled
	}
}

// WithFormatStyle enables or disables {var} expansion and the
// {{ / }} brace escapes.
//
// Default: true
func WithFormatStyle(enabled bool) Option {
	return func(e *Expander) {
		e.formatStyle = enabled
	}
}
