package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"todolist/model"
)

const ellipsis = "…"

var (
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	selectedColor = lipgloss.Color("229")
)

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading..."
	}

	projectID := m.selectedProjectID()
	title := lipgloss.NewStyle().Bold(true).Render("todolist")
	summary := fmt.Sprintf("focus: %s • active: %d • done: %d • sort: %s",
		m.focus.String(),
		m.session.Todos.ActiveCount(projectID),
		m.session.Todos.CompletedCount(projectID),
		sortLabel(m.criteria.SortChain()),
	)
	if m.criteria.HasActiveFilters() {
		summary += " • filter: " + m.filterSummary()
	}
	header := lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("  "+summary),
	)

	viewW := m.viewportWidth()
	const paneGap = 1
	outerPaneW := viewW
	innerPaneW := outerPaneW - 2
	if innerPaneW < 20 {
		innerPaneW = outerPaneW
	}

	panelH := m.height - 6
	if panelH < 8 {
		panelH = 8
	}
	innerPaneH := panelH - 2
	if innerPaneH < 6 {
		innerPaneH = 6
	}

	leftW, rightW := m.paneWidths(innerPaneW, paneGap)
	split := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderProjectsPanel(leftW, innerPaneH),
		lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("│"),
		m.renderTodosPanel(rightW, innerPaneH),
	)

	frameColor := lipgloss.Color("240")
	if m.mode == modeNormal {
		frameColor = lipgloss.Color("39")
	}
	panes := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(frameColor).
		Width(innerPaneW).
		Height(panelH).
		Render(split)

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	if m.statusErr {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
	rightHint := "? shortcuts"
	if m.showHelp {
		rightHint = "Esc/? close shortcuts"
	}
	footerLine := m.renderFooter(m.status, statusStyle, rightHint)

	promptLine := m.promptLine()
	if promptLine != "" {
		promptLine = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Width(viewW).Render(promptLine)
	}

	if m.showHelp {
		popupW := viewW - 8
		if popupW > 96 {
			popupW = 96
		}
		if popupW < 40 {
			popupW = viewW - 2
		}
		panes = lipgloss.Place(viewW, panelH, lipgloss.Center, lipgloss.Center, m.renderHelpOverlay(popupW))
	}

	parts := []string{header, panes, footerLine}
	if promptLine != "" && !m.showHelp {
		parts = append(parts, promptLine)
	}
	return strings.Join(parts, "\n")
}

func (m *Model) promptLine() string {
	switch m.mode {
	case modeAddProject:
		return "New project: " + m.input + "▌"
	case modeAddTodoTitle:
		return "New todo title: " + m.input + "▌"
	case modeAddTodoDescription:
		return fmt.Sprintf("Description for %q: %s▌", m.pendingTitle, m.input)
	case modeEditTitle:
		return "Edit title: " + m.input + "▌"
	case modeSearch:
		return "Search (/): " + m.input + "▌  (incremental; Enter keeps, Esc clears)"
	case modeConfirmDelete:
		switch m.confirmKind {
		case deleteProject:
			return fmt.Sprintf("Delete project %q and all of its todos? [y/N]", m.confirmProject.Name)
		case deleteTodo:
			return fmt.Sprintf("Delete todo %q? [y/N]", m.confirmTodo.Title)
		case deleteScope:
			if p, ok := m.activeProject(); ok {
				return fmt.Sprintf("Delete every todo in %q? [y/N]", p.Name)
			}
			return "Delete EVERY todo? [y/N]"
		}
	}
	return ""
}

func (m *Model) viewportWidth() int {
	if m.width <= 0 {
		return 1
	}
	// Keep one column free; some terminals wrap on the last cell.
	if m.width > 1 {
		return m.width - 1
	}
	return m.width
}

func (m *Model) paneWidths(total, gap int) (int, int) {
	if total <= 0 {
		return 24, 30
	}
	if gap < 0 {
		gap = 0
	}

	minLeft := 20
	minRight := 30
	if total < minLeft+minRight+gap {
		left := total / 3
		if left < 12 {
			left = 12
		}
		right := total - left - gap
		if right < 12 {
			right = 12
			left = total - right - gap
			if left < 10 {
				left = 10
			}
		}
		return left, right
	}

	left := total / 4
	if left < 22 {
		left = 22
	}
	if left > 34 {
		left = 34
	}

	right := total - left - gap
	if right < minRight {
		right = minRight
		left = total - right - gap
	}
	if left < minLeft {
		left = minLeft
		right = total - left - gap
	}

	return left, right
}

func (m *Model) renderFooter(statusText string, statusStyle lipgloss.Style, rightHint string) string {
	left := strings.TrimSpace(statusText)
	right := strings.TrimSpace(rightHint)
	if left == "" {
		left = "Ready"
	}

	leftW := ansi.PrintableRuneWidth(left)
	rightW := ansi.PrintableRuneWidth(right)
	width := m.viewportWidth()

	if leftW+rightW+1 > width {
		maxLeft := width - rightW - 1
		if maxLeft < 8 {
			maxLeft = 8
		}
		left = truncate.StringWithTail(left, uint(maxLeft), ellipsis)
		leftW = ansi.PrintableRuneWidth(left)
	}

	padding := width - leftW - rightW
	if padding < 1 {
		padding = 1
	}

	rightStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	line := statusStyle.Render(left) + strings.Repeat(" ", padding) + rightStyle.Render(right)
	return lipgloss.NewStyle().Width(width).Render(line)
}

func (m *Model) renderHelpOverlay(width int) string {
	title := lipgloss.NewStyle().Bold(true).Render("Shortcuts")
	section := lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	line := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	rows := []string{
		title,
		"",
		section.Render("Global"),
		line.Render("  Tab switch focus • j/k move • q quit"),
		line.Render("  / search • h high • ! emergency • v open/done/all • c clear filters"),
		line.Render("  o cycle sort • D delete todos in view scope • ? shortcuts"),
		"",
		section.Render("Projects"),
		line.Render("  a create • d delete with its todos • Enter open"),
		"",
		section.Render("Todos"),
		line.Render("  a create • e edit title • x done/reopen • s advance status"),
		line.Render("  b abandon • z archive • 1..4 priority • d delete • y copy open todos"),
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("244")).
		Padding(1, 2)

	return style.Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderProjectsPanel(width, height int) string {
	projects := m.session.Projects.Projects()
	todos := m.session.Todos.Todos()

	lines := make([]string, 0, len(projects)+3)
	lines = append(lines, panelTitleStyled("Projects", m.focus == focusProjects))

	lines = append(lines, m.projectLine(0, "", "All todos", len(todos), width))
	for i, p := range projects {
		lines = append(lines, m.projectLine(i+1, p.Color, p.Name, m.session.Projects.TodoCount(p.ID, todos), width))
	}
	if len(projects) == 0 {
		lines = append(lines, mutedStyle.Render(truncate.StringWithTail("No projects. Press 'a' to create one.", uint(width), ellipsis)))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) projectLine(row int, color, name string, count, width int) string {
	cursor := " "
	if row == m.projectCursor {
		cursor = "▸"
	}
	dot := " "
	if color != "" {
		dot = lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("●")
	}
	label := truncate.StringWithTail(fmt.Sprintf("%s (%d)", name, count), uint(max(width-4, 1)), ellipsis)
	if row == m.projectCursor {
		style := lipgloss.NewStyle().Bold(true)
		if m.focus == focusProjects {
			style = style.Foreground(selectedColor)
		}
		label = style.Render(label)
	}
	return cursor + " " + dot + " " + label
}

func (m *Model) renderTodosPanel(width, height int) string {
	title := "Todos"
	if p, ok := m.activeProject(); ok {
		title = "Todos: " + p.Name
	}
	todos := m.visibleTodos()

	lines := make([]string, 0, len(todos)+2)
	lines = append(lines, panelTitleStyled(truncate.StringWithTail(title, uint(max(width-2, 1)), ellipsis), m.focus == focusTodos))

	if len(todos) == 0 {
		msg := "Nothing here. Tab to this pane and press 'a' to add a todo."
		if m.criteria.HasActiveFilters() {
			msg = "No todos match the current search or filter ('c' clears)."
		}
		lines = append(lines, mutedStyle.Render(truncate.StringWithTail(msg, uint(width), ellipsis)))
	}

	// Keep the cursor row on screen.
	visible := height - 1
	start := 0
	if visible > 0 && m.todoCursor >= visible {
		start = m.todoCursor - visible + 1
	}
	for i := start; i < len(todos) && i-start < max(visible, 1); i++ {
		lines = append(lines, m.todoLine(i, todos[i], width))
	}

	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

func (m *Model) todoLine(i int, t model.TodoItem, width int) string {
	cursor := " "
	if i == m.todoCursor {
		cursor = "▸"
	}

	textStyle := lipgloss.NewStyle()
	if t.IsDone() || t.Status == model.StatusAbandoned || t.Status == model.StatusArchived {
		textStyle = textStyle.Faint(true)
	}
	if i == m.todoCursor {
		textStyle = textStyle.Bold(true)
		if m.focus == focusTodos {
			textStyle = textStyle.Foreground(selectedColor)
		}
	}

	// cursor, space, glyph (3), space, dot, space
	const fixed = 8
	text := truncate.StringWithTail(t.Title, uint(max(width-fixed, 1)), ellipsis)
	return lipgloss.JoinHorizontal(lipgloss.Left,
		textStyle.Render(cursor+" "+statusGlyph(t.Status)+" "),
		priorityIndicator(t.Priority)+" ",
		textStyle.Render(text),
	)
}

func panelTitleStyled(title string, active bool) string {
	base := lipgloss.NewStyle().Bold(true)
	if !active {
		return base.Render(title)
	}
	text := base.Foreground(selectedColor).Render(title)
	marker := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("*")
	return lipgloss.JoinHorizontal(lipgloss.Left, text, " ", marker)
}

func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusNew:
		return "[ ]"
	case model.StatusInProgress:
		return "[~]"
	case model.StatusDone:
		return "[x]"
	case model.StatusAbandoned:
		return "[-]"
	case model.StatusArchived:
		return "[a]"
	default:
		return "[ ]"
	}
}

func priorityIndicator(p model.Priority) string {
	switch p {
	case model.PriorityMedium:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Render("●")
	case model.PriorityHigh:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Render("●")
	case model.PriorityEmergency:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Render("◆")
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Render("●")
	}
}
