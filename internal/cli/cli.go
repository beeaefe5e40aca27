// Package cli runs the interactive question loop.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/session"
	"github.com/randalmurphal/designflow/pkg/tools"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// DefaultSessionID is used when no session id is given.
const DefaultSessionID = "default-session"

const banner = "============================================================"

// Loop reads questions from an input stream and prints the pipeline's
// answers. State carries over between turns.
type Loop struct {
	pipeline *workflow.Pipeline
	sessions session.Store
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer
}

// New creates a Loop over in and out. A nil store disables transcript
// recording.
func New(p *workflow.Pipeline, store session.Store, in io.Reader, out io.Writer, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{pipeline: p, sessions: store, logger: logger, in: in, out: out}
}

// Run prompts until the user quits, the input ends, or ctx is cancelled.
func (l *Loop) Run(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	state := workflow.State{SessionID: sessionID, MCPTools: []tools.Descriptor{}}

	fmt.Fprintf(l.out, "\n%s\nLangflow Workflow - Interactive Mode\n%s\n", banner, banner)
	fmt.Fprint(l.out, "Type 'quit' or 'exit' to stop\n\n")

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(l.out, "Enter your question: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprint(l.out, "\n\nInterrupted. Exiting...\n")
			l.logger.Info("workflow session ended")
			return nil
		case text, ok := <-lines:
			if !ok {
				fmt.Fprintln(l.out, "\nExiting...")
				l.logger.Info("workflow session ended")
				return nil
			}
			line = strings.TrimSpace(text)
		}

		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			fmt.Fprintln(l.out, "Exiting...")
			l.logger.Info("workflow session ended")
			return nil
		}

		state = l.turn(ctx, state, line)
	}
}

// turn runs one question and returns the state for the next one. A
// successful answer is adopted along with the run's state; otherwise only
// the question is kept.
func (l *Loop) turn(ctx context.Context, state workflow.State, question string) workflow.State {
	state = state.Merge(workflow.Update{
		Messages:  workflow.Set(append(state.Clone().Messages, llm.UserMessage(question))),
		UserInput: workflow.Set(question),
	})

	l.logger.Info("executing workflow")
	result, err := l.pipeline.Invoke(ctx, state)
	if err != nil {
		l.logger.Error("workflow execution failed", slog.String("error", err.Error()))
		fmt.Fprintf(l.out, "\nExecution error: %v\n\n", err)
		return state
	}

	answer := result.Response()
	switch {
	case result.Error != "":
		fmt.Fprintf(l.out, "\nError: %s\n\n", result.Error)
		return state
	case answer == "":
		fmt.Fprintf(l.out, "\n%s\n\n", workflow.NoResponse)
		return state
	}

	fmt.Fprintf(l.out, "\nAssistant: %s\n\n", answer)
	l.record(ctx, state.SessionID, question, answer)
	return result.Merge(workflow.Update{
		Messages: workflow.Set(append(result.Clone().Messages, llm.AssistantMessage(answer))),
	})
}

func (l *Loop) record(ctx context.Context, sessionID, question, answer string) {
	if l.sessions == nil {
		return
	}
	if err := l.sessions.Append(ctx, sessionID, llm.UserMessage(question), llm.AssistantMessage(answer)); err != nil {
		l.logger.Warn("record transcript failed", slog.String("session_id", sessionID), slog.String("error", err.Error()))
	}
}
