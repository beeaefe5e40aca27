// Package app wires configuration, collaborators and the compiled pipeline
// into one process-scoped value.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/randalmurphal/designflow/internal/config"
	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/nodes"
	"github.com/randalmurphal/designflow/pkg/session"
	"github.com/randalmurphal/designflow/pkg/tools"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// Version is reported by the HTTP surface.
const Version = "1.0.0"

// DefaultDesignFiles are tried in order when no design file is given.
var DefaultDesignFiles = []string{"LEOAZR_M74854_M74854.json", "design.json"}

// App holds everything a run mode needs. Build it with New and release it
// with Close.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Pipeline   *workflow.Pipeline
	Sessions   session.Store
	LLM        llm.Client
	Tools      tools.Toolbox
	DesignPath string

	closers []io.Closer
}

// Options adjusts bootstrap. Zero values select the production wiring.
type Options struct {
	// DesignFiles overrides DefaultDesignFiles.
	DesignFiles []string

	// Logger overrides the logger built from Config.Log.
	Logger *slog.Logger

	// LLM replaces the Bedrock client. Credentials are not required when set.
	LLM llm.Client

	// Tools replaces the MCP toolbox.
	Tools tools.Toolbox

	// Sessions replaces the configured transcript store.
	Sessions session.Store
}

// New builds the collaborators described by cfg and compiles the design
// document. A missing design file selects the default pipeline.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: opts.Logger}
	if a.Logger == nil {
		a.Logger = NewLogger(cfg.Log, false, FormatText, os.Stderr)
	}

	if err := a.initLLM(opts.LLM); err != nil {
		return nil, err
	}
	a.initTools(ctx, opts.Tools)
	if err := a.initSessions(opts.Sessions); err != nil {
		_ = a.Close()
		return nil, err
	}

	paths := opts.DesignFiles
	if len(paths) == 0 {
		paths = DefaultDesignFiles
	}
	doc, path, err := LoadDesign(a.Logger, paths...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.DesignPath = path

	p, err := Compile(doc, a.NodeConfig(), a.Logger, cfg.Workflow.MaxIterations)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build workflow: %w", err)
	}
	a.Pipeline = p
	a.Logger.Info("workflow initialized",
		slog.String("design", path),
		slog.Bool("default_pipeline", p.IsDefault()),
		slog.Any("steps", p.Steps()))
	return a, nil
}

func (a *App) initLLM(override llm.Client) error {
	if override != nil {
		a.LLM = override
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	m := a.Config.Model
	client, err := llm.NewBedrockClient(
		llm.WithRegion(a.Config.AWS.Region),
		llm.WithCredentials(a.Config.AWS.AccessKeyID, a.Config.AWS.SecretAccessKey, a.Config.AWS.SessionToken),
		llm.WithModel(m.Name),
		llm.WithMaxTokens(m.MaxTokens),
		llm.WithTemperature(m.Temperature),
		llm.WithTimeout(m.Timeout()),
	)
	if err != nil {
		return fmt.Errorf("create bedrock client: %w", err)
	}
	a.LLM = client
	if m.MaxRetries > 0 {
		a.LLM = llm.WithRetry(client, llm.NewRetryConfig(llm.WithMaxAttempts(m.MaxRetries+1)), a.Logger)
	}
	a.Logger.Info("configuration loaded",
		slog.String("region", client.Region()),
		slog.String("model", client.Model()),
		slog.Bool("mcp", a.Config.HasMCP()))
	return nil
}

// initTools dials the MCP server when one is configured. A server that
// cannot be reached leaves the no-op toolbox in place.
func (a *App) initTools(ctx context.Context, override tools.Toolbox) {
	a.Tools = tools.Noop{}
	if override != nil {
		a.Tools = override
		return
	}
	if !a.Config.HasMCP() {
		return
	}

	tb, err := tools.DialMCP(ctx, a.Config.MCP.ServerURL, a.Logger)
	if err != nil {
		a.Logger.Warn("mcp server unavailable, continuing without tools",
			slog.String("url", a.Config.MCP.ServerURL),
			slog.String("error", err.Error()))
		return
	}
	a.Tools = tb
	a.closers = append(a.closers, tb)
}

func (a *App) initSessions(override session.Store) error {
	switch {
	case override != nil:
		a.Sessions = override
	case a.Config.Session.DBPath != "":
		store, err := session.NewSQLiteStore(a.Config.Session.DBPath)
		if err != nil {
			return fmt.Errorf("open session store: %w", err)
		}
		a.Sessions = store
	default:
		a.Sessions = session.NewMemoryStore()
	}
	a.closers = append(a.closers, a.Sessions)
	return nil
}

// NodeConfig is the configuration bound to every compiled node.
func (a *App) NodeConfig() workflow.Config {
	return NodeConfig(a.Config, a.LLM, a.Tools)
}

// NodeConfig builds the node configuration from cfg and collaborators.
func NodeConfig(cfg *config.Config, client llm.Client, tb tools.Toolbox) workflow.Config {
	return workflow.Config{
		Model:        cfg.Model.Name,
		Temperature:  cfg.Model.Temperature,
		MaxTokens:    cfg.Model.MaxTokens,
		SystemPrompt: cfg.Model.SystemPrompt,
		LLM:          client,
		Tools:        tb,
	}
}

// Compile compiles doc with the fixed node table, falling back to node
// types for ids the table does not know.
func Compile(doc *design.Document, cfg workflow.Config, logger *slog.Logger, maxIterations int) (*workflow.Pipeline, error) {
	return workflow.Compile(doc, nodes.DefaultRegistry(), cfg,
		workflow.WithCompileLogger(logger),
		workflow.WithTypeFallback(nodes.TypeRegistry()),
		workflow.WithMaxIterations(maxIterations),
		workflow.WithMetrics(true),
		workflow.WithTracing(true),
		workflow.WithPipelineName("designflow"),
	)
}

// LoadDesign loads the first existing path. When none exist it logs a
// warning and returns an empty document, which compiles to the default
// pipeline. A file that exists but cannot be parsed is an error.
func LoadDesign(logger *slog.Logger, paths ...string) (*design.Document, string, error) {
	doc, path, err := design.LoadFirst(paths...)
	if errors.Is(err, design.ErrNotFound) {
		logger.Warn("no design document found, using minimal workflow", slog.Any("tried", paths))
		return &design.Document{}, "", nil
	}
	if err != nil {
		return nil, path, fmt.Errorf("load design document: %w", err)
	}
	logger.Info("design document loaded", slog.String("path", path))
	return doc, path, nil
}

// Close releases the session store and tool connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
