package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/designflow/internal/app"
	"github.com/randalmurphal/designflow/internal/cli"
	"github.com/randalmurphal/designflow/internal/config"
	"github.com/randalmurphal/designflow/internal/server"
)

// Run modes.
const (
	modeCLI = "cli"
	modeWeb = "web"
)

type rootFlags struct {
	debug      bool
	sessionID  string
	designFile string
	mode       string
	host       string
	port       int
}

// RootCmd builds the designflow command tree.
func RootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:           "designflow",
		Short:         "Run a flow-builder design as a question-answering pipeline",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.mode != modeCLI && f.mode != modeWeb {
				return fmt.Errorf("invalid mode %q: expected %s or %s", f.mode, modeCLI, modeWeb)
			}
			return run(cmd.Context(), f)
		},
	}

	pf := root.Flags()
	pf.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&f.sessionID, "session-id", "", "Session ID for conversation tracking")
	pf.StringVar(&f.designFile, "design-file", "", "Path to the design document (default: "+app.DefaultDesignFiles[0]+", then "+app.DefaultDesignFiles[1]+")")
	pf.StringVar(&f.mode, "mode", modeCLI, "Run mode: cli (interactive) or web (HTTP server)")
	pf.StringVar(&f.host, "host", "0.0.0.0", "Host for web server mode")
	pf.IntVar(&f.port, "port", 8080, "Port for web server mode")

	root.AddCommand(GraphCmd())
	return root
}

func designFiles(path string) []string {
	if path == "" {
		return app.DefaultDesignFiles
	}
	return []string{path}
}

func run(ctx context.Context, f rootFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	format := app.FormatText
	if f.mode == modeWeb {
		format = app.FormatJSON
	}
	logger := app.NewLogger(cfg.Log, f.debug, format, os.Stderr)
	slog.SetDefault(logger)
	logger.Info("starting designflow", slog.String("mode", f.mode))

	a, err := app.New(ctx, cfg, app.Options{
		DesignFiles: designFiles(f.designFile),
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", slog.String("error", err.Error()))
		}
	}()

	if f.mode == modeWeb {
		srv := server.New(
			server.WithPipeline(a.Pipeline),
			server.WithSessions(a.Sessions),
			server.WithLogger(logger),
			server.WithInfo(server.Info{
				Version:           app.Version,
				BedrockConfigured: cfg.HasBedrockCredentials(),
				MCPConfigured:     cfg.HasMCP(),
			}),
		)
		return srv.ListenAndServe(ctx, net.JoinHostPort(f.host, strconv.Itoa(f.port)))
	}

	return cli.New(a.Pipeline, a.Sessions, os.Stdin, os.Stdout, logger).Run(ctx, f.sessionID)
}
