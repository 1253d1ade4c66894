package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// ScrollView shows pre-rendered content in a viewport with a scrollbar when
// the content is taller than the view.
type ScrollView struct {
	viewport viewport.Model
	content  string
}

func NewScrollView(width, height int) *ScrollView {
	return &ScrollView{viewport: viewport.New(width, height)}
}

func (v *ScrollView) SetSize(width, height int) {
	if width > 1 {
		width--
	}
	v.viewport.Width = width
	v.viewport.Height = height
	v.viewport.SetContent(v.content)
}

func (v *ScrollView) SetContent(content string) {
	v.content = content
	v.viewport.SetContent(content)
	v.viewport.GotoTop()
}

func (v *ScrollView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return cmd
}

func (v *ScrollView) AtBottom() bool {
	return v.viewport.AtBottom()
}

func (v *ScrollView) View() string {
	if v.viewport.TotalLineCount() <= v.viewport.Height {
		return v.viewport.View()
	}

	h := v.viewport.Height
	handlePos := int(float64(h-1) * v.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, v.viewport.View(), sb.String())
}
