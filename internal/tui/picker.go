package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/medivoice/medivoice/internal/consult"
)

type consultItem struct {
	summary consult.Summary
}

func (i consultItem) Title() string {
	if i.summary.DisplayName == "" {
		return "(untitled)"
	}
	return i.summary.DisplayName
}

func (i consultItem) Description() string {
	desc := formatDate(i.summary.CreatedAt) + " · " + string(i.summary.ID)
	if i.summary.Status != "" {
		desc += " · " + i.summary.Status
	}
	return desc
}

func (i consultItem) FilterValue() string { return i.summary.DisplayName }

type pickerModel struct {
	list     list.Model
	picked   *consult.Summary
	canceled bool
}

func newPickerModel(title string, items []consult.Summary) pickerModel {
	listItems := make([]list.Item, len(items))
	for i, s := range items {
		listItems[i] = consultItem{summary: s}
	}
	delegate := list.NewDefaultDelegate()
	l := list.New(listItems, delegate, 0, 0)
	l.DisableQuitKeybindings()
	l.SetShowStatusBar(false)
	l.Title = title
	l.Styles.Title = StyleHeader
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-4)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.canceled = true
			return m, tea.Quit
		case "enter":
			if m.list.FilterState() != list.Filtering {
				if item, ok := m.list.SelectedItem().(consultItem); ok {
					s := item.summary
					m.picked = &s
					return m, tea.Quit
				}
			}
		case "esc", "q":
			if m.list.FilterState() == list.Unfiltered {
				m.canceled = true
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// PickConsult lets the user choose one consultation. ok is false when they backed out.
func PickConsult(title string, items []consult.Summary, in io.Reader, out io.Writer) (consult.Summary, bool, error) {
	if len(items) == 0 {
		return consult.Summary{}, false, fmt.Errorf("no consultations to choose from")
	}
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}
	final, err := tea.NewProgram(newPickerModel(title, items), opts...).Run()
	if err != nil {
		return consult.Summary{}, false, err
	}
	m := final.(pickerModel)
	if m.canceled || m.picked == nil {
		return consult.Summary{}, false, nil
	}
	return *m.picked, true, nil
}
