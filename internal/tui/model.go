// Package tui implements the read-only status dashboard (aipm status): a
// bubbletea view over Store's query views. It never writes — rendering a
// second writer into the project's Store would violate the single-writer
// invariant the rest of the system depends on.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/branch"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginTop(1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// Model is the dashboard's bubbletea model. It holds a snapshot fetched
// from Store and Branch; refresh re-fetches on demand, never on a ticker,
// so an idle dashboard does not add background query load.
type Model struct {
	st     *store.Store
	branch *branch.Manager

	tasks    []*model.Task
	branches []*model.Branch
	stale    []*model.Branch
	events   []store.Row

	eventsView viewport.Model
	ready      bool

	err      error
	loading  bool
	width    int
	height   int
}

// New builds the dashboard model. Call tea.NewProgram(New(st, br)).Run().
func New(st *store.Store, br *branch.Manager) Model {
	return Model{st: st, branch: br, loading: true}
}

type snapshotMsg struct {
	tasks    []*model.Task
	branches []*model.Branch
	stale    []*model.Branch
	events   []store.Row
	err      error
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		tasks, err := m.st.ListActiveTasks(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		branches, err := m.branch.ListBranches(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		stale, err := m.branch.StaleBranches(ctx, time.Now())
		if err != nil {
			return snapshotMsg{err: err}
		}
		events, err := m.st.Query(ctx, store.ViewRecentEvents)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{tasks: tasks, branches: branches, stale: stale, events: events}
	}
}

func (m Model) Init() tea.Cmd {
	return m.fetch()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		eventsHeight := msg.Height - eventsViewTopOffset
		if eventsHeight < 3 {
			eventsHeight = 3
		}
		if !m.ready {
			m.eventsView = viewport.New(msg.Width, eventsHeight)
			m.ready = true
		} else {
			m.eventsView.Width = msg.Width
			m.eventsView.Height = eventsHeight
		}
		m.eventsView.SetContent(renderEvents(m.events))
		return m, nil
	case snapshotMsg:
		m.loading = false
		m.err = msg.err
		m.tasks = msg.tasks
		m.branches = msg.branches
		m.stale = msg.stale
		m.events = msg.events
		if m.ready {
			m.eventsView.SetContent(renderEvents(m.events))
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, m.fetch()
		}
	}

	var cmd tea.Cmd
	m.eventsView, cmd = m.eventsView.Update(msg)
	return m, cmd
}

// eventsViewTopOffset reserves space for the header and the tasks/branches
// sections above the scrollable event log.
const eventsViewTopOffset = 14

func renderEvents(events []store.Row) string {
	var b strings.Builder
	for _, row := range events {
		b.WriteString(fmt.Sprintf("  [%v] %v: %v\n", row["severity"], row["event_type"], row["title"]))
	}
	return b.String()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("aipm status") + dimStyle.Render("  (r: refresh, q: quit)") + "\n")

	if m.loading {
		b.WriteString("\nloading...\n")
		return b.String()
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render("error: "+m.err.Error()) + "\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Active tasks (%d)", len(m.tasks))) + "\n")
	if len(m.tasks) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
	}
	for _, t := range m.tasks {
		line := fmt.Sprintf("  %-16s %-12s %3d%%  %s", t.ID, t.Status, t.Progress, t.Title)
		if t.Status == model.StatusBlocked {
			b.WriteString(warnStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Branches (%d)", len(m.branches))) + "\n")
	for _, br := range m.branches {
		b.WriteString(fmt.Sprintf("  #%-4d %-24s %-8s %s\n", br.Number, br.Name, br.Status, br.Purpose))
	}

	if len(m.stale) > 0 {
		b.WriteString(sectionStyle.Render(fmt.Sprintf("Stale branches (%d)", len(m.stale))) + "\n")
		for _, br := range m.stale {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  %-24s created %s\n", br.Name, br.CreatedAt.Format("2006-01-02"))))
		}
	}

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Recent events (%d, scroll with ↑/↓)", len(m.events))) + "\n")
	if m.ready {
		b.WriteString(m.eventsView.View())
	} else {
		b.WriteString(renderEvents(m.events))
	}

	return b.String()
}
