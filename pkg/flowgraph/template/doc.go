/*
Package template expands placeholders in prompt templates.

Two placeholder forms are recognized:

  - {var}  format style; {{ and }} produce literal braces
  - ${var} dollar-brace style

Braces that do not wrap a plain identifier, such as JSON examples inside a
prompt, are never touched.

	exp := template.NewExpander(template.WithMissingAction(template.MissingError))
	out, err := exp.Expand("Question: {text}", map[string]any{"text": "2+2"})
	// out: "Question: 2+2"

Missing variables are kept by default; MissingEmpty drops them and
MissingError reports them through *UndefinedVariableError.

Expander is safe for concurrent use after construction.
*/
package template
