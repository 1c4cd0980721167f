package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/remotesync"
	"github.com/fyrsmithlabs/cass/internal/sourcesconfig"
)

var sourcesSyncFlags struct {
	only []string
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage remote conversation sources",
}

var sourcesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror every configured remote source into the local data directory",
	RunE:  runSourcesSync,
}

func init() {
	sourcesSyncCmd.Flags().StringSliceVar(&sourcesSyncFlags.only, "source", nil, "only sync sources with this name (repeatable)")
	sourcesCmd.AddCommand(sourcesSyncCmd)
}

func runSourcesSync(cmd *cobra.Command, args []string) error {
	invokedCommand = "sources sync"

	dataDir, err := resolveDataDir(flags.dataDir)
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: resolve data directory: %w", err))
	}
	if err := ensureDataDir(dataDir); err != nil {
		return withExitCode(1, fmt.Errorf("cass: create data directory: %w", err))
	}

	sourcesFile, err := sourcesconfig.Load("")
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: load sources config: %w", err))
	}

	sources := filterSources(sourcesFile.Sources, sourcesSyncFlags.only)
	if len(sources) == 0 {
		fmt.Println("no sources configured")
		return nil
	}

	log, err := logging.NewLogger(logging.NewDefaultConfig())
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: build logger: %w", err))
	}
	defer log.Sync()

	engine := remotesync.New(dataDir, log)
	reports := engine.SyncAll(cmd.Context(), sources)

	status, err := remotesync.LoadStatus(remotesync.StatusPath(dataDir))
	if err != nil {
		return withExitCode(1, fmt.Errorf("cass: load sync status: %w", err))
	}
	now := time.Now().Unix()
	for _, report := range reports {
		status.RecordReport(report, now)
		fmt.Printf("%s (%s): %d files, %d bytes, ok=%v\n",
			report.SourceName, report.Method, report.TotalFiles(), report.TotalBytes(), report.AllSucceeded)
	}
	if err := remotesync.SaveStatus(remotesync.StatusPath(dataDir), status); err != nil {
		return withExitCode(1, fmt.Errorf("cass: save sync status: %w", err))
	}
	return nil
}

func filterSources(all []sourcesconfig.SourceDefinition, only []string) []sourcesconfig.SourceDefinition {
	if len(only) == 0 {
		return all
	}
	allow := make(map[string]bool, len(only))
	for _, name := range only {
		allow[name] = true
	}
	var out []sourcesconfig.SourceDefinition
	for _, s := range all {
		if allow[s.Name] {
			out = append(out, s)
		}
	}
	return out
}
