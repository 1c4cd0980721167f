package tui

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// ErrNoTTY is returned by Run when interactive mode is requested but stdin
// is not a terminal. cmd/cass maps this to exit code 2, per the tui command's
// documented exit codes.
var ErrNoTTY = errors.New("tui: interactive mode requires a terminal")

// RenderOnce writes the deterministic, non-interactive rendering of m to
// out and returns. It never touches stdin and never blocks, so it is what
// --once uses regardless of whether a TTY is attached.
func RenderOnce(m Model, out io.Writer) error {
	_, err := io.WriteString(out, Render(m))
	return err
}

// Run starts the interactive bubbletea program. It refuses to start when
// stdin is not a terminal rather than hanging or producing garbled output
// piped into a file.
func Run(m Model) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ErrNoTTY
	}
	program := tea.NewProgram(m)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
