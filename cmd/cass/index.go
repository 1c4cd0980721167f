package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cass/internal/connectors"
	"github.com/fyrsmithlabs/cass/internal/indexer"
	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/secrets"
	"github.com/fyrsmithlabs/cass/internal/store"
)

var indexFlags struct {
	full  bool
	watch bool
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run all detected connectors and update the local stores",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexFlags.full, "full", false, "force a from-scratch scan, ignoring watermarks")
	indexCmd.Flags().BoolVar(&indexFlags.watch, "watch", false, "after the initial scan, keep running and rescan a connector when its data changes")
}

// buildRegistry constructs the dispatch table of every connector cass
// ships, in the order spec.md §4.2 lists them.
func buildRegistry(log *logging.Logger) *connectors.Registry {
	reg := connectors.NewRegistry()
	reg.Register(connectors.NewAiderConnector(log))
	reg.Register(connectors.NewCodexConnector(log))
	reg.Register(connectors.NewClaudeConnector(log))
	reg.Register(connectors.NewClineConnector(log))
	reg.Register(connectors.NewRooConnector(log))
	reg.Register(connectors.NewCursorConnector(log))
	return reg
}

func runIndex(cmd *cobra.Command, args []string) error {
	invokedCommand = "index"

	log, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: build logger: %w", err))
	}
	defer log.Sync()

	dataDir, err := resolveDataDir(flags.dataDir)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: resolve data directory: %w", err))
	}
	if err := ensureDataDir(dataDir); err != nil {
		return withExitCode(1, fmt.Errorf("cass: create data directory: %w", err))
	}

	db, err := store.Open(storeDBPath(dataDir))
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: open store: %w", err))
	}
	defer db.Close()

	cfg := loadAppConfig()

	redactor := secrets.NewRedactor(true)
	driver := indexer.NewDriver(db, invindexDir(dataDir), log, redactor)
	registry := buildRegistry(log)

	if len(cfg.Connectors.Enabled) > 0 {
		allow := make(map[string]bool, len(cfg.Connectors.Enabled))
		for _, slug := range cfg.Connectors.Enabled {
			allow[slug] = true
		}
		filtered := connectors.NewRegistry()
		for _, c := range registry.Enabled(allow) {
			filtered.Register(c)
		}
		registry = filtered
	}

	runOpts := indexer.RunOptions{
		Full:     indexFlags.full,
		DataRoot: "",
	}

	summary, err := driver.Run(cmd.Context(), registry, runOpts)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: index run: %w", err))
	}

	for _, c := range summary.Connectors {
		if !c.Detected {
			continue
		}
		fmt.Printf("%s: %d conversations, %d messages\n", c.Slug, c.ConversationCount, c.MessageCount)
	}

	if !indexFlags.watch {
		return nil
	}
	return runIndexWatch(driver, registry, runOpts)
}

// runIndexWatch keeps the process alive after the initial scan, rescanning
// a connector's data on disk changes until interrupted. It runs until
// SIGINT/SIGTERM, since --watch is meant to sit in a terminal or run under
// a supervisor, not return on its own.
func runIndexWatch(driver *indexer.Driver, registry *connectors.Registry, opts indexer.RunOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	roots := indexer.DetectWatchRoots(registry)
	if len(roots) == 0 {
		return withExitCode(1, fmt.Errorf("cass: watch: no connector reported a watchable root"))
	}

	updates, err := driver.Watch(ctx, registry, roots, opts)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: watch: %w", err))
	}

	fmt.Println("watching for changes, press ctrl-c to stop")
	for cs := range updates {
		if cs.Err != nil {
			fmt.Printf("%s: rescan failed: %v\n", cs.Slug, cs.Err)
			continue
		}
		fmt.Printf("%s: rescanned, %d conversations, %d messages\n", cs.Slug, cs.ConversationCount, cs.MessageCount)
	}
	return nil
}
