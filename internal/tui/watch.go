package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Snapshot is one reading of the daemon state shown by the watch view.
type Snapshot struct {
	Status    string
	Recording string
	Name      string
	Pending   bool
	Attempt   string
}

// Terminal reports whether the submission has finished one way or another.
func (s Snapshot) Terminal() bool {
	return s.Status == "done" || s.Status == "failed"
}

type StatusFunc func() (Snapshot, error)

type snapshotMsg struct {
	snap Snapshot
	err  error
}

type pollMsg struct{}

type watchModel struct {
	fetch    StatusFunc
	interval time.Duration
	spinner  spinner.Model
	snap     Snapshot
	err      error
	started  bool
	quitting bool
}

func newWatchModel(fetch StatusFunc, interval time.Duration) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = StyleHighlight
	return watchModel{fetch: fetch, interval: interval, spinner: s}
}

func (m watchModel) poll() tea.Msg {
	snap, err := m.fetch()
	return snapshotMsg{snap: snap, err: err}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.poll)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case snapshotMsg:
		m.snap, m.err = msg.snap, msg.err
		m.started = true
		if m.err != nil {
			return m, tea.Quit
		}
		// a finished attempt only ends the watch once one was seen in flight
		if m.snap.Terminal() && m.snap.Attempt != "" {
			return m, tea.Quit
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })
	case pollMsg:
		return m, m.poll
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(Logo())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(RenderError(m.err))
	case !m.started:
		b.WriteString(m.spinner.View() + " connecting to daemon")
	default:
		b.WriteString(m.statusLine())
		if m.snap.Name != "" {
			fmt.Fprintf(&b, "\n%s %s", StyleLabel.Render("Name:"), m.snap.Name)
		}
		if m.snap.Recording != "" && m.snap.Recording != "idle" {
			fmt.Fprintf(&b, "\n%s %s", StyleLabel.Render("Microphone:"), m.snap.Recording)
		}
		if m.snap.Pending {
			fmt.Fprintf(&b, "\n%s", StyleWarning.Render("A recording is waiting to be processed"))
		}
	}

	if !m.quitting {
		b.WriteString("\n\n" + StyleSubtle.Render("q quit"))
	}
	return b.String() + "\n"
}

func (m watchModel) statusLine() string {
	switch m.snap.Status {
	case "done":
		return RenderSuccess("Consultation ready")
	case "failed":
		return StyleError.Render("✗ ") + "Processing failed, run `medivoice result` for details"
	case "idle", "":
		return StyleMuted.Render("Idle")
	default:
		return m.spinner.View() + " " + strings.ToUpper(m.snap.Status[:1]) + m.snap.Status[1:]
	}
}

// Watch follows the daemon until the current submission finishes or the user quits.
func Watch(fetch StatusFunc, interval time.Duration) (Snapshot, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	final, err := tea.NewProgram(newWatchModel(fetch, interval)).Run()
	if err != nil {
		return Snapshot{}, err
	}
	m := final.(watchModel)
	return m.snap, m.err
}
