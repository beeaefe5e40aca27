package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/designflow/internal/app"
	"github.com/randalmurphal/designflow/internal/config"
	"github.com/randalmurphal/designflow/pkg/design"
	"github.com/randalmurphal/designflow/pkg/workflow"
)

// GraphCmd prints a design's topology and how it compiles. It needs no
// credentials.
func GraphCmd() *cobra.Command {
	var designFile string
	var debug bool
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Show the design topology and compile report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelWarn + 1
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			doc, path, err := app.LoadDesign(logger, designFiles(designFile)...)
			if err != nil {
				return err
			}
			p, err := app.Compile(doc, app.NodeConfig(ptr(config.Default()), nil, nil), logger, workflow.DefaultMaxIterations)
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), path, doc, p)
			return nil
		},
	}
	cmd.Flags().StringVar(&designFile, "design-file", "", "Path to the design document")
	cmd.Flags().BoolVar(&debug, "debug", false, "Show compile logs")
	return cmd
}

func printGraph(w io.Writer, path string, doc *design.Document, p *workflow.Pipeline) {
	if path == "" {
		path = "(none, default pipeline)"
	}
	fmt.Fprintf(w, "Design: %s\n", path)
	if !doc.Empty() {
		fmt.Fprintln(w, design.Visualize(doc))
	}

	r := p.Report()
	fmt.Fprintf(w, "Entry: %s\n", p.Entry())
	fmt.Fprintf(w, "Terminals: %v\n", p.Terminals())
	fmt.Fprintf(w, "Steps: %v\n", p.Steps())
	fmt.Fprintf(w, "Nodes registered: %d, edges wired: %d\n", r.NodesRegistered, r.EdgesWired)
	if len(r.Diagnostics) == 0 {
		return
	}
	fmt.Fprintln(w, "Diagnostics:")
	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "  [%s] %s\n", d.Kind, d.Message)
	}
}

func ptr[T any](v T) *T { return &v }
