// Package tui implements cass's minimal interactive browser: a list of
// search hits with a per-agent activity sparkline in the header, built the
// way the teacher's internal/monitor dashboard is built (bubbletea model,
// bubbles progress bar, ntcharts sparkline, k9s-inspired lipgloss palette),
// generalized from service metrics to search results.
package tui

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/cass/internal/search"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
)

// AgentActivity summarizes one connector's contribution to the index, with
// a short history of recent message counts for the header sparkline.
type AgentActivity struct {
	Slug         string
	MessageCount int
	History      []float64
}

// Model is the bubbletea model for the search-results browser. Unlike the
// teacher's dashboard it has no network fetch command: it is handed a
// finished result set and agent activity snapshot up front by cmd/cass,
// since cass's search pipeline is a single local call, not a polled remote
// metrics endpoint.
type Model struct {
	query    string
	hits     []search.Hit
	agents   []AgentActivity
	cursor   int
	quitting bool

	resultProgress progress.Model
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel builds a browser over an already-executed search's hits and the
// per-agent activity snapshot to show in the header.
func NewModel(query string, hits []search.Hit, agents []AgentActivity) Model {
	prog := progress.New(
		progress.WithGradient("#00ffff", "#ff00ff"),
		progress.WithWidth(40),
	)
	return Model{
		query:          query,
		hits:           hits,
		agents:         agents,
		resultProgress: prog,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "down", "j":
			if m.cursor < len(m.hits)-1 {
				m.cursor++
			}
			return m, nil
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return Render(m)
}

// Render produces the full view for both the interactive program and the
// headless --once mode, so the two never drift apart.
func Render(m Model) string {
	var content string

	header := headerStyle.Render(" cass ")
	headerLine := fmt.Sprintf("%s   %s",
		dimStyle.Render("query:"),
		valueStyle.Render(m.query))
	content += header + "\n"
	content += headerLine + "\n"

	content += "\n" + sectionStyle.Render("┃ Agent activity") + "\n"
	for _, a := range m.agents {
		content += labelStyle.Render(fmt.Sprintf("  %-10s", a.Slug)) +
			valueStyle.Render(fmt.Sprintf("%5d msgs", a.MessageCount)) +
			"   " + createSparkline(a.History) + "\n"
	}
	if len(m.agents) == 0 {
		content += dimStyle.Render("  no agents indexed") + "\n"
	}

	content += "\n" + sectionStyle.Render(fmt.Sprintf("┃ Results (%d)", len(m.hits))) + "\n"
	if len(m.hits) == 0 {
		content += dimStyle.Render("  no matches") + "\n"
	}
	for i, h := range m.hits {
		cursor := "  "
		titleStyle := valueStyle
		if i == m.cursor {
			cursor = "> "
			titleStyle = selectedStyle
		}
		loc := h.SourcePath
		if h.LineNumber != nil {
			loc = fmt.Sprintf("%s:%d", loc, *h.LineNumber)
		}
		content += cursor + titleStyle.Render(h.Title) + "\n"
		content += "    " + dimStyle.Render(fmt.Sprintf("%s [%s/%s]", loc, h.Agent, h.Workspace)) + "\n"
		content += "    " + h.Snippet + "\n"
	}

	content += "\n" + footerStyle.Render("[↑/↓] move  [q] quit") + "\n"
	return content
}

// createSparkline renders a sparkline from history, or a placeholder when
// there isn't enough data yet.
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}
