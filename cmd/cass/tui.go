package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cass/internal/search"
	"github.com/fyrsmithlabs/cass/internal/store"
	"github.com/fyrsmithlabs/cass/internal/tui"
)

const exitTUIDisabled = 2

var tuiFlags struct {
	once  bool
	query string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the terminal browser over indexed conversations",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiFlags.once, "once", false, "render one frame in headless mode and exit")
	tuiCmd.Flags().StringVar(&tuiFlags.query, "query", "", "pre-run this search before launching the browser")
}

func runTUI(cmd *cobra.Command, args []string) error {
	invokedCommand = "tui"

	dataDir, err := resolveDataDir(flags.dataDir)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: resolve data directory: %w", err))
	}

	model, err := buildTUIModel(cmd.Context(), dataDir, tuiFlags.query)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: build tui model: %w", err))
	}

	if tuiFlags.once {
		return withExitCode(1, tui.RenderOnce(model, os.Stdout))
	}

	if err := tui.Run(model); err != nil {
		if err == tui.ErrNoTTY {
			return withExitCode(exitTUIDisabled, err)
		}
		return withExitCode(1, err)
	}
	return nil
}

// buildTUIModel assembles the browser model from whatever backends are
// available, tolerating a missing index (an empty browser is still a valid
// --once render) rather than failing the command outright.
func buildTUIModel(ctx context.Context, dataDir, query string) (tui.Model, error) {
	agents := agentActivitySnapshot(ctx, dataDir)

	client, closeClient, err := openSearchClient(dataDir)
	if err != nil {
		return tui.NewModel(query, nil, agents), nil
	}
	defer closeClient()

	if query == "" {
		return tui.NewModel(query, nil, agents), nil
	}

	hits, err := client.Search(ctx, query, search.Filters{}, 20, 0)
	if err != nil {
		return tui.NewModel(query, nil, agents), nil
	}
	return tui.NewModel(query, hits, agents), nil
}

// agentActivitySnapshot reads per-agent message totals for the header
// sparkline. A missing or unreadable store yields an empty snapshot rather
// than an error, since the browser should still open.
func agentActivitySnapshot(ctx context.Context, dataDir string) []tui.AgentActivity {
	db, err := store.Open(storeDBPath(dataDir))
	if err != nil {
		return nil
	}
	defer db.Close()

	counts, err := db.AgentMessageCounts(ctx)
	if err != nil {
		return nil
	}
	agents := make([]tui.AgentActivity, 0, len(counts))
	for slug, count := range counts {
		agents = append(agents, tui.AgentActivity{
			Slug:         slug,
			MessageCount: count,
			History:      []float64{float64(count)},
		})
	}
	return agents
}
