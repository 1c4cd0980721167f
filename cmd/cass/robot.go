package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// robotHelpText is the stable, machine-readable summary of cass's command
// surface, emitted by --robot-help on any command. Its wording is part of
// the external contract: changing it is a breaking change for scripts.
func robotHelpText() string {
	return `cass commands:
index [--full] [--data-dir P]
search <query> [--json] [--agents A,...] [--workspaces W,...] [--since T] [--until T] [--limit N] [--offset N]
tui [--once] [--data-dir P]
sources sync [--source N]...
exit codes: index 0; search 0|3|9; tui 0|2; sources sync 0
env: CODEX_HOME, CASS_AIDER_DATA_ROOT, XDG_DATA_HOME, CODING_AGENT_SEARCH_NO_UPDATE_PROMPT`
}

var robotDocsTopics = map[string]string{
	"index":   "index scans every detected connector and upserts conversations into the relational store and inverted index. --full ignores watermarks and rescans everything.",
	"search":  "search runs the hybrid pipeline: relational full-text first, the inverted index only when that returns zero hits. Exit code 3 means no index exists yet; 9 means the query itself failed.",
	"tui":     "tui opens an interactive browser over search results with a per-agent activity header. --once renders a single frame and exits; without a terminal attached it exits 2.",
	"sources": "sources sync mirrors every [[sources]] entry in sources.toml over SSH (rsync, falling back to scp) into the data directory, additive-only.",
}

var robotDocsCmd = &cobra.Command{
	Use:   "robot-docs <topic>",
	Short: "Emit stable machine-readable documentation for one command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invokedCommand = "robot-docs"
		topic := args[0]
		doc, ok := robotDocsTopics[topic]
		if !ok {
			return withExitCode(1, fmt.Errorf("cass: unknown robot-docs topic %q", topic))
		}
		fmt.Println(doc)
		return nil
	},
}
