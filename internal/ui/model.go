package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/syncx/internal/progress"
	"github.com/desertthunder/syncx/internal/tasks"
)

// ProgressModel follows one job's progress updates until the job closes the channel.
type ProgressModel struct {
	title    string
	updates  <-chan tasks.ProgressUpdate
	cancel   context.CancelFunc
	bar      bprogress.Model
	help     help.Model
	keys     keyMap
	last     tasks.ProgressUpdate
	snap     *progress.Snapshot
	stopping bool
	done     bool
}

// NewProgressModel creates a model reading updates. cancel is called when the user quits; it may be nil.
func NewProgressModel(title string, updates <-chan tasks.ProgressUpdate, cancel context.CancelFunc) *ProgressModel {
	return &ProgressModel{
		title:   title,
		updates: updates,
		cancel:  cancel,
		bar:     newBar(defaultBarWidth),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts listening for updates.
func (m *ProgressModel) Init() tea.Cmd {
	return m.waitForProgress()
}

// Update handles incoming messages and updates the model state.
func (m *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-30, 80))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			if !m.stopping && m.cancel != nil {
				m.cancel()
			}
			m.stopping = true
			if m.updates == nil {
				return m, tea.Quit
			}
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			update := msg.data.(tasks.ProgressUpdate)
			m.last = update
			if snap, ok := update.Data.(progress.Snapshot); ok {
				m.snap = &snap
			}
			return m, m.waitForProgress()
		case MsgJobComplete:
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View renders the title, the progress bar and the latest message.
func (m *ProgressModel) View() string {
	title := styles.Title(m.title)

	status := m.last.Message
	if status == "" {
		status = "Starting..."
	}
	switch {
	case m.done:
		status = styles.OK("✓ ") + status
	case m.stopping:
		status = styles.Warn("Stopping, saving progress... ") + status
	}

	body := status
	if m.snap != nil {
		body = renderSnapshot(m.bar, *m.snap) + "\n" + status
	} else if m.last.Total > 0 {
		body = fmt.Sprintf("%s\n%s", m.bar.ViewAs(float64(m.last.Step)/float64(m.last.Total)), status)
	}

	if m.done {
		return fmt.Sprintf("%s\n%s\n", title, body)
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n", title, body, m.help.View(m.keys))
}

func (m *ProgressModel) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.updates == nil {
			return jobCompleteMsg()
		}
		update, ok := <-m.updates
		if !ok {
			return jobCompleteMsg()
		}
		return progressUpdateMsg(update)
	}
}
