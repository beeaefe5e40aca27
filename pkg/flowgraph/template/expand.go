package template

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches, in one pass:
//   - ${name}  dollar-brace placeholder
//   - {{ / }}  escaped literal braces
//   - {name}   format placeholder
//
// Names start with a letter or underscore and continue with letters,
// digits, or underscores. Anything else in braces (JSON, prose) is left alone.
var placeholderPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}|\{\{|\}\}|\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Expander expands placeholders in prompt templates.
//
// Create with NewExpander() and configure with Option functions.
// Expander is safe for concurrent use after construction.
type Expander struct {
	missingAction MissingAction
	dollarBrace   bool
	formatStyle   bool
}

// NewExpander creates a new Expander with the given options.
//
// Default configuration:
//   - MissingAction: MissingKeep (keep placeholders as-is)
//   - DollarBrace: enabled (${var})
//   - FormatStyle: enabled ({var}, with {{ and }} as literal braces)
func NewExpander(opts ...Option) *Expander {
	e := &Expander{
		missingAction: MissingKeep,
		dollarBrace:   true,
		formatStyle:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand substitutes placeholders in s using vars.
//
// Errors are only returned when MissingAction is MissingError and
// a placeholder has no value; the partially expanded string is returned
// alongside the error.
//
// Example:
//
//	exp := NewExpander()
//	result, err := exp.Expand("Answer this: {text}", map[string]any{"text": "2+2"})
//	// result: "Answer this: 2+2"
func (e *Expander) Expand(s string, vars map[string]any) (string, error) {
	if s == "" {
		return "", nil
	}

	var missing []string
	result := placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		switch {
		case strings.HasPrefix(match, "${"):
			if !e.dollarBrace {
				return match
			}
			name = match[2 : len(match)-1]
		case match == "{{":
			if !e.formatStyle {
				return match
			}
			return "{"
		case match == "}}":
			if !e.formatStyle {
				return match
			}
			return "}"
		default:
			if !e.formatStyle {
				return match
			}
			name = match[1 : len(match)-1]
		}

		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		switch e.missingAction {
		case MissingEmpty:
			return ""
		case MissingError:
			missing = append(missing, name)
			return match
		default:
			return match
		}
	})

	if len(missing) > 0 {
		return result, &UndefinedVariableError{Names: missing}
	}
	return result, nil
}

// Placeholders returns the distinct placeholder names in s, in order of
// first appearance.
func (e *Expander) Placeholders(s string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name == "" || seen[name] {
			continue
		}
		if m[1] != "" && !e.dollarBrace || m[2] != "" && !e.formatStyle {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// UndefinedVariableError is returned when MissingError is set and
// one or more placeholders have no value.
type UndefinedVariableError struct {
	// Names is the list of undefined variable names.
	Names []string
}

// Error implements the error interface.
func (e *UndefinedVariableError) Error() string {
	if len(e.Names) == 1 {
		return fmt.Sprintf("undefined variable: %s", e.Names[0])
	}
	return fmt.Sprintf("undefined variables: %s", strings.Join(e.Names, ", "))
}

var defaultExpander = NewExpander()

// Expand expands placeholders in s with the default expander.
// Missing variables stay as-is.
func Expand(s string, vars map[string]any) string {
	result, _ := defaultExpander.Expand(s, vars)
	return result
}
