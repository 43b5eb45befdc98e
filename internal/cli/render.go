package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gunho/artifact/pkg/deck"
	"github.com/gunho/artifact/pkg/httputil"
	"github.com/gunho/artifact/pkg/pipeline"
	"github.com/gunho/artifact/pkg/quota"
	"github.com/gunho/artifact/pkg/store"
	"github.com/gunho/artifact/pkg/theme"
)

// cliUser is the synthetic user id local renders run under. The CLI has no
// subscription backend, so the quota gate auto-provisions it.
const cliUser = "local"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output      string   // output directory
	formats     []string // output formats, empty means kind defaults
	theme       string   // theme override for flowcharts
	interactive bool     // pick the theme interactively
}

// newRenderCmd creates the render command for one-shot local generation.
// It reads a request file (JSON with kind, title, and the kind's payload)
// and writes the rendered artifacts into the output directory.
func newRenderCmd() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [request-file]",
		Short: "Render a request file to local artifact files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().StringSliceVarP(&opts.formats, "format", "f", nil, "output formats (default: all for the kind)")
	cmd.Flags().StringVarP(&opts.theme, "theme", "t", "", "flowchart theme")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "pick the theme interactively")
	return cmd
}

func runRender(cmd *cobra.Command, requestPath string, opts renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	data, err := os.ReadFile(requestPath)
	if err != nil {
		return fmt.Errorf("reading request file: %w", err)
	}
	var req pipeline.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("parsing request file: %w", err)
	}
	req.UserID = cliUser
	req.Formats = opts.formats

	if opts.interactive {
		picked, err := pickTheme()
		if err != nil {
			return err
		}
		if picked == "" {
			printError("no theme selected")
			return nil
		}
		opts.theme = picked
	}
	if opts.theme != "" && req.Chart != nil {
		if !theme.Known(opts.theme) {
			logger.Warn("unknown theme, using default", "theme", opts.theme)
		}
		req.Chart.Theme = opts.theme
	}

	st, err := store.NewFileStore(opts.output, "")
	if err != nil {
		return err
	}
	gate := quota.NewMemoryGate()
	gate.AutoProvision(quota.Subscription{
		Plan:   "cli",
		Status: quota.StatusActive,
		Limits: map[quota.Kind]int{quota.KindArtifact: 1 << 30},
	})

	runner := pipeline.NewRunner(gate, st, nil, nil, logger)
	runner.Decks = deck.NewGenerator(httputil.NewFetcher(nil, 0), logger)

	spin := newSpinnerWithContext(ctx, "rendering "+req.Kind)
	spin.Start()
	result, err := runner.Execute(ctx, req)
	if err != nil {
		spin.StopWithError(fmt.Sprintf("render failed: %v", err))
		return err
	}
	spin.StopWithSuccess(fmt.Sprintf("rendered %s", req.Title))

	for _, a := range result.Artifacts {
		printFile(filepath.Join(opts.output, filepath.FromSlash(a.URL)))
	}
	printStats(result.Stats.Fragments, result.CacheHit)
	return nil
}

// newThemesCmd lists the known flowchart themes.
func newThemesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List available flowchart themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range theme.Names() {
				fmt.Println(name)
			}
			return nil
		},
	}
}
