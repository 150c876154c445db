// Package tui provides the interactive terminal view of the board. It is a
// read-only consumer of the same library surface the CLI uses; mutating the
// board stays with the CLI and the work loop.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/fleetboard/internal/board"
	"github.com/fentz26/fleetboard/internal/lock"
	"github.com/fentz26/fleetboard/internal/models"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	statusOpen   = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	statusLocked = lipgloss.NewStyle().Foreground(lipgloss.Color("4")) // Blue
	statusDone   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
	statusFailed = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// Source reads board snapshots for the view.
type Source struct {
	Board *board.Board
	Locks *lock.Manager
}

// Load returns tasks with derived lock state, optionally filtered.
func (s Source) Load(filter string) ([]models.Task, error) {
	active, err := s.Locks.Active()
	if err != nil {
		return nil, err
	}
	return s.Board.List(filter, active)
}

// TaskItem implements list.Item for the task list.
type TaskItem struct {
	ID          string
	Desc        string
	Priority    int
	Status      string
	CompletedBy string
}

func (i TaskItem) FilterValue() string { return i.Desc }
func (i TaskItem) Title() string {
	return fmt.Sprintf("[p%d] %s", i.Priority, i.Desc)
}
func (i TaskItem) Description() string {
	status := formatStatus(i.Status)
	if i.CompletedBy != "" {
		return fmt.Sprintf("%s • %s", status, i.CompletedBy)
	}
	return status
}

func formatStatus(status string) string {
	switch status {
	case "open":
		return statusOpen.Render("● open")
	case "locked":
		return statusLocked.Render("● locked")
	case "done":
		return statusDone.Render("● done")
	case "failed":
		return statusFailed.Render("● failed")
	default:
		return status
	}
}

var filters = []string{"", "open", "locked", "done", "failed"}
var filterLabels = []string{"all", "open", "locked", "done", "failed"}

// Model is the board viewer.
type Model struct {
	source      Source
	list        list.Model
	filterIndex int
	width       int
	height      int
	err         error
}

// New creates the board viewer model.
func New(source Source) *Model {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = "Tasks [all]"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &Model{source: source, list: l}
}

type tasksLoadedMsg struct {
	tasks []models.Task
}

type errMsg struct {
	err error
}

// Init triggers the first load.
func (m *Model) Init() tea.Cmd {
	return m.refresh()
}

func (m *Model) refresh() tea.Cmd {
	filter := filters[m.filterIndex]
	return func() tea.Msg {
		tasks, err := m.source.Load(filter)
		if err != nil {
			return errMsg{err}
		}
		return tasksLoadedMsg{tasks}
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case tasksLoadedMsg:
		m.err = nil
		items := make([]list.Item, len(msg.tasks))
		for i, t := range msg.tasks {
			items[i] = TaskItem{
				ID:          t.ID,
				Desc:        t.Description,
				Priority:    t.Priority,
				Status:      string(t.Status),
				CompletedBy: t.CompletedBy,
			}
		}
		m.list.SetItems(items)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		// Don't intercept keys while the list's own filter input is active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.refresh()
		case "f":
			m.filterIndex = (m.filterIndex + 1) % len(filters)
			m.list.Title = fmt.Sprintf("Tasks [%s]", filterLabels[m.filterIndex])
			return m, m.refresh()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the board.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit.", m.err)
	}
	help := helpStyle.Render("r refresh • f cycle filter • q quit")
	return m.list.View() + "\n" + help
}
