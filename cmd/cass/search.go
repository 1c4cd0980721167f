package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cass/internal/invindex"
	"github.com/fyrsmithlabs/cass/internal/search"
	"github.com/fyrsmithlabs/cass/internal/store"
)

const (
	exitMissingIndex = 3
	exitSearchError  = 9
)

var searchFlags struct {
	asJSON     bool
	agents     string
	workspaces string
	since      string
	until      string
	limit      int
	offset     int
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the hybrid search pipeline against indexed conversations",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchFlags.asJSON, "json", false, "emit machine-readable JSON output")
	searchCmd.Flags().StringVar(&searchFlags.agents, "agents", "", "comma-separated agent slugs to filter by")
	searchCmd.Flags().StringVar(&searchFlags.workspaces, "workspaces", "", "comma-separated workspace names to filter by")
	searchCmd.Flags().StringVar(&searchFlags.since, "since", "", "only conversations created at or after this RFC3339 timestamp")
	searchCmd.Flags().StringVar(&searchFlags.until, "until", "", "only conversations created at or before this RFC3339 timestamp")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 20, "maximum number of hits to return")
	searchCmd.Flags().IntVar(&searchFlags.offset, "offset", 0, "number of hits to skip before returning results")
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseTimeFlag(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	ms := t.UnixMilli()
	return &ms, nil
}

func openSearchClient(dataDir string) (*search.Client, func(), error) {
	var db *store.Store
	var inv *invindex.Reader
	closers := func() {
		if db != nil {
			db.Close()
		}
	}

	if openedDB, err := store.Open(storeDBPath(dataDir)); err == nil {
		db = openedDB
	}
	// invindex.Reader is an immutable in-memory snapshot taken at open
	// time (spec.md §5); it owns no handle that needs releasing.
	if openedInv, err := invindex.OpenReader(invindexDir(dataDir)); err == nil {
		inv = openedInv
	}

	if db == nil && inv == nil {
		return nil, closers, search.ErrNoBackend
	}
	client, err := search.Open(db, inv)
	if err != nil {
		closers()
		return nil, func() {}, err
	}
	return client, closers, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	invokedCommand = "search"
	query := args[0]

	dataDir, err := resolveDataDir(flags.dataDir)
	if err != nil {
		return withExitCode(exitSearchError, fmt.Errorf("cass: resolve data directory: %w", err))
	}

	client, closeClient, err := openSearchClient(dataDir)
	if err != nil {
		return withExitCode(exitMissingIndex, fmt.Errorf("cass: no index found in %s: %w", dataDir, err))
	}
	defer closeClient()

	from, err := parseTimeFlag(searchFlags.since)
	if err != nil {
		return withExitCode(exitSearchError, err)
	}
	to, err := parseTimeFlag(searchFlags.until)
	if err != nil {
		return withExitCode(exitSearchError, err)
	}

	limit := searchFlags.limit
	if !cmd.Flags().Changed("limit") {
		limit = loadAppConfig().Search.DefaultLimit
	}

	hits, err := client.Search(cmd.Context(), query, search.Filters{
		Agents:      splitCSV(searchFlags.agents),
		Workspaces:  splitCSV(searchFlags.workspaces),
		CreatedFrom: from,
		CreatedTo:   to,
	}, limit, searchFlags.offset)
	if err != nil {
		return withExitCode(exitSearchError, fmt.Errorf("cass: search: %w", err))
	}

	if searchFlags.asJSON {
		enc := json.NewEncoder(os.Stdout)
		return withExitCode(exitSearchError, enc.Encode(hits))
	}

	for _, h := range hits {
		loc := h.SourcePath
		if h.LineNumber != nil {
			loc = fmt.Sprintf("%s:%d", loc, *h.LineNumber)
		}
		fmt.Printf("%s [%s/%s] %s\n", h.Title, h.Agent, h.Workspace, loc)
		fmt.Printf("  %s\n", h.Snippet)
	}
	return nil
}
