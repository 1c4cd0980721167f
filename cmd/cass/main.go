// Package main implements the cass CLI: index local and remote coding-agent
// conversation logs, search them, and browse results in a terminal UI.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cass/internal/trace"
)

var version = "dev"

// globalFlags holds the flags declared on the root command that every
// subcommand may read.
type globalFlags struct {
	dataDir   string
	color     string
	wrap      int
	traceFile string
	progress  string
}

var flags globalFlags

func main() {
	os.Exit(run())
}

// run executes the root command and returns the process exit code,
// recording a trace entry first when --trace-file is set. Kept separate
// from main so tests could exercise it without calling os.Exit (no test
// does today, since every subcommand is exercised at the package level).
func run() int {
	startedAt := time.Now()
	cmd := rootCmd.Execute
	err := cmd()

	exitCode := 0
	if err != nil {
		exitCode = exitCodeOf(err)
		fmt.Fprintln(os.Stderr, err)
	}

	if flags.traceFile != "" {
		record := trace.NewRecord(invokedCommand, exitCode, startedAt.Unix(), time.Since(startedAt).Milliseconds())
		if traceErr := trace.Append(flags.traceFile, record); traceErr != nil {
			fmt.Fprintf(os.Stderr, "cass: write trace file: %v\n", traceErr)
		}
	}
	return exitCode
}

// invokedCommand records which leaf command actually ran, set by each
// subcommand's RunE before returning, so the trace record names the real
// command even when cobra's own command name isn't precise enough (e.g.
// "sources sync" vs "sources").
var invokedCommand = "cass"

// exitError lets a subcommand communicate a specific process exit code
// alongside its error message, per spec.md's command exit code table.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

func exitCodeOf(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:           "cass",
	Short:         "Search and browse local coding-agent conversation history",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "override the cass data directory")
	rootCmd.PersistentFlags().StringVar(&flags.color, "color", "auto", "colorize output: always|auto|never")
	rootCmd.PersistentFlags().IntVar(&flags.wrap, "wrap", 0, "wrap output text at N columns (0 disables)")
	rootCmd.PersistentFlags().StringVar(&flags.traceFile, "trace-file", "", "append one JSON trace record per run to this file")
	rootCmd.PersistentFlags().StringVar(&flags.progress, "progress", "plain", "progress reporting style: plain|...")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(robotDocsCmd)
	rootCmd.PersistentFlags().Bool("robot-help", false, "emit stable machine-readable help text")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if robot, _ := cmd.Flags().GetBool("robot-help"); robot {
			fmt.Println(robotHelpText())
			os.Exit(0)
		}
		return nil
	}
}
