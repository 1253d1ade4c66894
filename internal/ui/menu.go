package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/campushelp/pkg/models"
)

var (
	logoStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	itemStyle         = lipgloss.NewStyle().PaddingLeft(2)
	selectedItemStyle = lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("12")).Bold(true)
	groupStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	descStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	summaryStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Italic(true)
)

const logo = `
   ____                                _   _      _
  / ___|__ _ _ __ ___  _ __  _   _ ___| | | | ___| |_ __
 | |   / _` + "`" + ` | '_ ` + "`" + ` _ \| '_ \| | | / __| |_| |/ _ \ | '_ \
 | |__| (_| | | | | | | |_) | |_| \__ \  _  |  __/ | |_) |
  \____\__,_|_| |_| |_| .__/ \__,_|___/_| |_|\___|_| .__/
                      |_|                          |_|
`

// Item is one command the menu can hand back to the CLI.
type Item struct {
	Group       string
	Command     string
	Description string
}

type MenuModel struct {
	items    []Item
	summary  string
	cursor   int
	selected string
	quitting bool
}

// NewMenuModel lists items in the given order; consecutive items sharing a
// Group are shown under one header. summary is printed under the logo.
func NewMenuModel(items []Item, summary string) MenuModel {
	return MenuModel{
		items:   append([]Item(nil), items...),
		summary: summary,
	}
}

// Summary renders the live platform counters shown above the commands.
func Summary(stats *models.PlatformStats) string {
	if stats == nil {
		return ""
	}
	return fmt.Sprintf("%d open · %d in progress · %d members · %d points escrowed",
		stats.OpenTasks, stats.InProgressTasks, stats.TotalMembers, stats.PointsInTasks)
}

func (m MenuModel) Init() tea.Cmd {
	return nil
}

func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.items) == 0 {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() != "" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}

		case "tab":
			m.cursor = m.nextGroup()

		case "enter":
			m.selected = m.items[m.cursor].Command
			return m, tea.Quit
		}
	}

	return m, nil
}

// nextGroup returns the first item of the group after the cursor's, wrapping
// to the top.
func (m MenuModel) nextGroup() int {
	current := m.items[m.cursor].Group
	for i := m.cursor + 1; i < len(m.items); i++ {
		if m.items[i].Group != current {
			return i
		}
	}
	return 0
}

func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(logoStyle.Render(logo))
	s.WriteString("\n")
	if m.summary != "" {
		s.WriteString(summaryStyle.Render(m.summary))
		s.WriteString("\n")
	}

	width := 0
	for _, it := range m.items {
		width = max(width, len(it.Command))
	}

	group := ""
	for i, it := range m.items {
		if i == 0 || it.Group != group {
			group = it.Group
			s.WriteString("\n")
			s.WriteString(groupStyle.Render(group))
			s.WriteString("\n")
		}
		line := fmt.Sprintf("%-*s  %s", width, it.Command, descStyle.Render(it.Description))
		if m.cursor == i {
			s.WriteString(selectedItemStyle.Render("> " + line))
		} else {
			s.WriteString(itemStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\n(arrow keys or j/k to move, tab for next group, enter to run, q to quit)\n")

	return s.String()
}

// Selected returns the chosen command, empty if the menu was quit.
func (m MenuModel) Selected() string {
	return m.selected
}

func RunMenu(items []Item, summary string) (string, error) {
	p := tea.NewProgram(NewMenuModel(items, summary))
	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}
	return finalModel.(MenuModel).Selected(), nil
}
