package nodes

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/flowgraph"
	"github.com/randalmurphal/designflow/pkg/flowgraph/template"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// DefaultPromptTemplate is used when the node carries no template of its own.
// {text} receives the user input.
const DefaultPromptTemplate = `You are an intelligent Multi-Purpose Agent that handles both General AI questions and Database queries.

**User Query:** {text}

**ANALYZE REQUEST TYPE:**

**SCENARIO 1: GENERAL AI QUESTIONS**
If the query is about general knowledge, explanations, concepts, or non-database topics:
- Respond naturally as a helpful AI assistant
- Do NOT use database tools
- Provide informative, conversational answers

Examples: "What is machine learning?", "Help me write an email", "Explain artificial intelligence"

**SCENARIO 2: DIRECT SQL QUERIES**
If the user provides a complete SQL statement (starts with SELECT, INSERT, UPDATE, DELETE):
- Execute the SQL immediately using mysql_query()
- Return the actual database results
- Show both query and results

**SCENARIO 3: NATURAL LANGUAGE DATABASE QUERIES**
If the query asks for data/information that requires database lookup:
- First use get_tables() to see available tables
- Use describe_table() for relevant tables to understand structure
- Build appropriate SQL query using actual column names
- Execute with mysql_query() and return results

**CRITICAL RULES:**
1. ALWAYS execute mysql_query() for database requests - return real data
2. ALWAYS show the complete response from mysql_query() tool
3. Use get_tables() and describe_table() for natural language queries
4. Never just show query JSON format - always execute and show results
5. For general questions, respond normally without database tools
`

var promptExpander = template.NewExpander(
	template.WithMissingAction(template.MissingError),
	template.WithDollarBrace(false),
)

// FormatPrompt substitutes UserInput into the node's template (param
// node.template.template.value, else DefaultPromptTemplate) and stores the
// result in FormattedPrompt. A template naming variables other than {text}
// falls back to a literal replacement of {text}.
func FormatPrompt(ctx flowgraph.Context, s workflow.State, cfg workflow.Config) (u workflow.Update, err error) {
	defer guard(promptFailed, &u)

	tmpl := cfg.Params.String(design.Field("template"), DefaultPromptTemplate)
	out, err := promptExpander.Expand(tmpl, map[string]any{"text": s.UserInput})
	if err != nil {
		var undefined *template.UndefinedVariableError
		if !errors.As(err, &undefined) {
			return failed(promptFailed, err), nil
		}
		ctx.Logger().Warn("missing template variable, using partial format",
			slog.Any("variables", undefined.Names))
		out = strings.ReplaceAll(tmpl, "{text}", s.UserInput)
	}

	ctx.Logger().Info("prompt template formatted", slog.Int("length", len(out)))
	return workflow.Update{FormattedPrompt: workflow.Set(out)}, nil
}
