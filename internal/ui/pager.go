package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ldi/campushelp/internal/ui/components"
)

// PagerModel scrolls through rendered output until the user quits.
type PagerModel struct {
	view     *components.ScrollView
	quitting bool
}

func NewPagerModel(content string, width, height int) PagerModel {
	v := components.NewScrollView(width, height)
	v.SetContent(content)
	return PagerModel{view: v}
}

func (m PagerModel) Init() tea.Cmd {
	return nil
}

func (m PagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.view.SetSize(msg.Width, msg.Height-1)
		return m, nil
	}
	return m, m.view.Update(msg)
}

func (m PagerModel) View() string {
	if m.quitting {
		return ""
	}
	footer := "(arrow keys or j/k to scroll, q to quit)"
	if m.view.AtBottom() {
		footer = "(end, q to quit)"
	}
	return m.view.View() + "\n" + footer
}

// RunPager shows content full screen.
func RunPager(content string) error {
	p := tea.NewProgram(NewPagerModel(content, 80, 24), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
