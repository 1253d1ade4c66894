package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/campushelp/pkg/models"
)

var (
	openTaskStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)

	inProgressTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("214")).
				Padding(0, 1)

	completedTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("42")).
				Padding(0, 1)

	cancelledTaskStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Border(lipgloss.NormalBorder()).
				BorderForeground(lipgloss.Color("240")).
				Padding(0, 1)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	subTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				Padding(0, 1)
)

type column struct {
	title  string
	status models.TaskStatus
	style  lipgloss.Style
	icon   string
}

var columns = []column{
	{"Open", models.TaskStatusOpen, openTaskStyle, "○"},
	{"In progress", models.TaskStatusInProgress, inProgressTaskStyle, "◐"},
	{"Completed", models.TaskStatusCompleted, completedTaskStyle, "✓"},
	{"Cancelled", models.TaskStatusCancelled, cancelledTaskStyle, "✗"},
}

// TaskBoard renders task views grouped by status, one box per status.
type TaskBoard struct {
	Width int
	Title string

	groups map[models.TaskStatus][]*models.TaskView
}

func NewTaskBoard(width int) *TaskBoard {
	return &TaskBoard{
		Width:  width,
		Title:  "Tasks",
		groups: make(map[models.TaskStatus][]*models.TaskView),
	}
}

// Add appends tasks in the order given; each status keeps at most limit
// entries (the newest), or all of them when limit <= 0.
func (b *TaskBoard) Add(limit int, tasks ...*models.TaskView) {
	for _, t := range tasks {
		group := append(b.groups[t.Status], t)
		if limit > 0 && len(group) > limit {
			group = group[len(group)-limit:]
		}
		b.groups[t.Status] = group
	}
}

func (b *TaskBoard) Len() int {
	n := 0
	for _, g := range b.groups {
		n += len(g)
	}
	return n
}

func (b *TaskBoard) View() string {
	var boxes []string
	for _, col := range columns {
		if tasks := b.groups[col.status]; len(tasks) > 0 {
			boxes = append(boxes, b.renderBox(col, tasks))
		}
	}

	var content string
	if len(boxes) == 0 {
		content = placeholderStyle.Render("No tasks yet")
	} else {
		content = strings.Join(boxes, "\n")
	}

	if b.Title != "" {
		return boardHeaderStyle.Render(b.Title) + "\n" + content
	}
	return content
}

func (b *TaskBoard) renderBox(col column, tasks []*models.TaskView) string {
	subTitle := subTitleStyle.Foreground(col.style.GetForeground()).
		Render(fmt.Sprintf("%s (%d)", col.title, len(tasks)))

	nameWidth := b.Width - 6
	if nameWidth < 0 {
		nameWidth = 0
	}

	var lines []string
	for _, t := range tasks {
		label := fmt.Sprintf("%s [%d pts, %s, %s]", t.Title, t.PointsOffered, t.Category, t.Campus)
		if t.Urgent {
			label = "! " + label
		}
		wrapped := lipgloss.NewStyle().Width(nameWidth).Render(label)
		for i, line := range strings.Split(wrapped, "\n") {
			if i == 0 {
				lines = append(lines, fmt.Sprintf("%s %s", col.icon, line))
			} else {
				lines = append(lines, fmt.Sprintf("  %s", line))
			}
		}
	}

	return col.style.Width(b.Width).Render(subTitle + "\n" + strings.Join(lines, "\n"))
}
