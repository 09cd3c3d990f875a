package tui

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"todolist/app"
	"todolist/model"
)

type focusPane int

const (
	focusProjects focusPane = iota
	focusTodos
)

func (f focusPane) String() string {
	if f == focusTodos {
		return "todos"
	}
	return "projects"
}

type uiMode int

const (
	modeNormal uiMode = iota
	modeAddProject
	modeAddTodoTitle
	modeAddTodoDescription
	modeEditTitle
	modeSearch
	modeConfirmDelete
)

type deleteKind int

const (
	deleteNone deleteKind = iota
	deleteProject
	deleteTodo
	deleteScope
)

// sortPresets are cycled with 'o'.
var sortPresets = [][]model.SortCriterion{
	model.DefaultSort(),
	{{Key: model.SortByPriority, Descending: true}, {Key: model.SortByCreatedAt, Descending: true}},
	{{Key: model.SortByStatus}, {Key: model.SortByPriority, Descending: true}},
	{{Key: model.SortByCreatedAt}},
}

// changedMsg reports that a service cache changed.
type changedMsg struct{}

type Model struct {
	ctx     context.Context
	session *app.Session

	todoChanges    <-chan struct{}
	projectChanges <-chan struct{}
	stopWatching   []func()

	focus         focusPane
	mode          uiMode
	projectCursor int // 0 is "All todos"
	todoCursor    int
	input         string
	pendingTitle  string

	criteria  model.TodoFilterCriteria
	sortIndex int

	confirmKind    deleteKind
	confirmTodo    model.TodoItem
	confirmProject model.Project

	showHelp bool

	status    string
	statusErr bool

	width  int
	height int

	palette []string
}

// NewModel builds the UI over an initialized session. Change watchers
// stop when ctx ends or Close is called.
func NewModel(ctx context.Context, session *app.Session, startupStatus string) *Model {
	status := strings.TrimSpace(startupStatus)
	if status == "" {
		status = "Ready"
	}

	todoChanges, stopTodos := session.Todos.Watch(ctx)
	projectChanges, stopProjects := session.Projects.Watch(ctx)

	m := &Model{
		ctx:            ctx,
		session:        session,
		todoChanges:    todoChanges,
		projectChanges: projectChanges,
		stopWatching:   []func(){stopTodos, stopProjects},
		focus:          focusProjects,
		mode:           modeNormal,
		status:         status,
		palette:        []string{"#0d6efd", "#198754", "#ffc107", "#d63384", "#0dcaf0", "#dc3545"},
	}
	m.restoreSelection()
	m.ensureSelection()

	if startupStatus == "" && len(session.Projects.Projects()) == 0 && len(session.Todos.Todos()) == 0 {
		m.setStatus("Welcome. Press 'a' to create a project, or Tab then 'a' to add a todo.", false)
	}
	return m
}

// Close detaches the model from the session's change notifications.
func (m *Model) Close() {
	for _, stop := range m.stopWatching {
		stop()
	}
}

func (m *Model) Init() tea.Cmd {
	return waitForChange(m.todoChanges, m.projectChanges)
}

func waitForChange(todos, projects <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case _, ok := <-todos:
			if !ok {
				return nil
			}
		case _, ok := <-projects:
			if !ok {
				return nil
			}
		}
		return changedMsg{}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case changedMsg:
		m.ensureSelection()
		return m, waitForChange(m.todoChanges, m.projectChanges)
	case tea.KeyMsg:
		switch m.mode {
		case modeAddProject, modeAddTodoTitle, modeAddTodoDescription, modeEditTitle, modeSearch:
			m.updateInputMode(msg)
		case modeConfirmDelete:
			m.updateConfirmMode(msg)
		default:
			if quit := m.updateNormalMode(msg); quit {
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m *Model) updateNormalMode(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "ctrl+c", "q":
		return true
	case "tab":
		if m.focus == focusProjects {
			m.focus = focusTodos
		} else {
			m.focus = focusProjects
		}
		m.setStatus(fmt.Sprintf("Focus on %s", m.focus.String()), false)
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "enter":
		m.handleEnter()
	case "a":
		m.startAdd()
	case "e":
		m.startEditTitle()
	case "x":
		m.toggleDone()
	case "s":
		m.advanceStatus()
	case "b":
		m.setSelectedStatus(model.StatusAbandoned, "Todo abandoned")
	case "z":
		m.setSelectedStatus(model.StatusArchived, "Todo archived")
	case "d":
		m.startDeleteConfirm()
	case "D":
		m.startClearScopeConfirm()
	case "1":
		m.setSelectedPriority(model.PriorityLow)
	case "2":
		m.setSelectedPriority(model.PriorityMedium)
	case "3":
		m.setSelectedPriority(model.PriorityHigh)
	case "4":
		m.setSelectedPriority(model.PriorityEmergency)
	case "h":
		m.criteria.TogglePriority(model.PriorityHigh)
		m.todoCursor = 0
		m.setStatus("Filter: "+m.filterSummary(), false)
	case "!":
		m.criteria.TogglePriority(model.PriorityEmergency)
		m.todoCursor = 0
		m.setStatus("Filter: "+m.filterSummary(), false)
	case "v":
		m.cycleStatusView()
	case "c":
		m.criteria.Clear()
		m.todoCursor = 0
		m.setStatus("Filters cleared", false)
	case "o":
		m.sortIndex = (m.sortIndex + 1) % len(sortPresets)
		m.criteria.Sort = slices.Clone(sortPresets[m.sortIndex])
		m.setStatus("Sort: "+sortLabel(m.criteria.SortChain()), false)
	case "y":
		m.copyActiveTodos()
	case "/":
		m.mode = modeSearch
		m.input = m.criteria.SearchText
		m.setStatus("Incremental search: type to filter", false)
	case "?":
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.setStatus("Shortcuts open (press ? or Esc to close)", false)
		} else {
			m.setStatus("Shortcuts hidden", false)
		}
	case "esc":
		if m.showHelp {
			m.showHelp = false
			m.setStatus("Shortcuts hidden", false)
			break
		}
		if strings.TrimSpace(m.criteria.SearchText) != "" {
			m.criteria.SearchText = ""
			m.todoCursor = 0
			m.setStatus("Search cleared", false)
		}
	}

	m.ensureSelection()
	return false
}

func (m *Model) updateInputMode(msg tea.KeyMsg) {
	switch msg.String() {
	case "ctrl+c", "esc":
		if m.mode == modeSearch {
			m.criteria.SearchText = ""
			m.todoCursor = 0
			m.setStatus("Search cleared", false)
		} else {
			m.setStatus("Cancelled", false)
		}
		m.mode = modeNormal
		m.input = ""
		m.pendingTitle = ""
		return
	case "enter":
		m.applyInput()
		return
	}

	switch msg.Type {
	case tea.KeyBackspace, tea.KeyCtrlH:
		m.input = trimLastRune(m.input)
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}

	if m.mode == modeSearch {
		m.criteria.SearchText = strings.TrimSpace(m.input)
		m.todoCursor = 0
		m.ensureSelection()
	}
}

func (m *Model) updateConfirmMode(msg tea.KeyMsg) {
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirmDelete()
	case "n", "esc", "enter":
		m.confirmKind = deleteNone
		m.mode = modeNormal
		m.setStatus("Cancelled", false)
	}
}

func (m *Model) applyInput() {
	text := strings.TrimSpace(m.input)
	switch m.mode {
	case modeAddProject:
		if text == "" {
			m.setStatus("Project name must not be empty", true)
			return
		}
		color := m.palette[len(m.session.Projects.Projects())%len(m.palette)]
		p, err := m.session.Projects.CreateProject(m.ctx, text, "", color)
		if err != nil {
			m.setStatus("Could not create project: "+err.Error(), true)
			return
		}
		m.session.Projects.SelectProject(&p)
		m.restoreSelection()
		m.finishInput("Project created")
	case modeAddTodoTitle:
		if text == "" {
			m.setStatus("Title must not be empty", true)
			return
		}
		m.pendingTitle = text
		m.input = ""
		m.mode = modeAddTodoDescription
		m.setStatus("Now a short description", false)
	case modeAddTodoDescription:
		if text == "" {
			m.setStatus("Description must not be empty", true)
			return
		}
		todo, err := m.session.Todos.CreateTodo(m.ctx, m.pendingTitle, text, model.PriorityLow, m.selectedProjectID())
		if err != nil {
			m.setStatus("Could not create todo: "+err.Error(), true)
			return
		}
		m.finishInput("Todo created")
		m.todoCursor = m.indexOfTodo(todo.ID)
	case modeEditTitle:
		if text == "" {
			m.setStatus("Title must not be empty", true)
			return
		}
		todo, ok := m.selectedTodo()
		if !ok {
			m.finishInput("")
			m.setStatus("No todo selected", true)
			return
		}
		todo.Title = text
		if err := m.session.Todos.SaveTodo(m.ctx, todo); err != nil {
			m.setStatus("Could not update todo: "+err.Error(), true)
			return
		}
		m.finishInput("Todo updated")
	case modeSearch:
		m.criteria.SearchText = text
		m.mode = modeNormal
		m.input = ""
		m.todoCursor = 0
		if text == "" {
			m.setStatus("Search cleared", false)
			return
		}
		m.setStatus("Search applied", false)
	}
}

func (m *Model) finishInput(status string) {
	m.mode = modeNormal
	m.input = ""
	m.pendingTitle = ""
	m.ensureSelection()
	if status != "" {
		m.setStatus(status, false)
	}
}

func (m *Model) moveCursor(delta int) {
	if m.focus == focusProjects {
		old := m.projectCursor
		m.projectCursor = clamp(m.projectCursor+delta, 0, len(m.session.Projects.Projects()))
		if m.projectCursor != old {
			m.todoCursor = 0
			m.syncSelectedProject()
		}
		return
	}

	todos := m.visibleTodos()
	if len(todos) == 0 {
		return
	}
	m.todoCursor = clamp(m.todoCursor+delta, 0, len(todos)-1)
}

func (m *Model) handleEnter() {
	if m.focus != focusProjects {
		return
	}
	m.todoCursor = 0
	m.focus = focusTodos
	if p, ok := m.activeProject(); ok {
		m.setStatus("Active project: "+p.Name, false)
		return
	}
	m.setStatus("Showing all todos", false)
}

func (m *Model) startAdd() {
	m.input = ""
	if m.focus == focusProjects {
		m.mode = modeAddProject
		m.setStatus("New project: type a name and press Enter", false)
		return
	}
	m.mode = modeAddTodoTitle
	m.setStatus("New todo: type a title and press Enter", false)
}

func (m *Model) startEditTitle() {
	if m.focus != focusTodos {
		return
	}
	todo, ok := m.selectedTodo()
	if !ok {
		m.setStatus("No todo selected", true)
		return
	}
	m.mode = modeEditTitle
	m.input = todo.Title
}

func (m *Model) toggleDone() {
	todo, ok := m.selectedTodoInFocus()
	if !ok {
		return
	}
	next := model.StatusDone
	if todo.IsDone() {
		next = model.StatusNew
	}
	m.updateStatus(todo, next)
}

// advanceStatus walks new -> in progress -> done -> new.
func (m *Model) advanceStatus() {
	todo, ok := m.selectedTodoInFocus()
	if !ok {
		return
	}
	var next model.Status
	switch todo.Status {
	case model.StatusInProgress:
		next = model.StatusDone
	case model.StatusDone:
		next = model.StatusNew
	default:
		next = model.StatusInProgress
	}
	m.updateStatus(todo, next)
}

func (m *Model) setSelectedStatus(status model.Status, success string) {
	todo, ok := m.selectedTodoInFocus()
	if !ok {
		return
	}
	if m.updateStatus(todo, status) {
		m.setStatus(success, false)
	}
}

func (m *Model) updateStatus(todo model.TodoItem, status model.Status) bool {
	if _, err := m.session.Todos.UpdateStatus(m.ctx, todo, status); err != nil {
		m.setStatus("Could not update status: "+err.Error(), true)
		return false
	}
	m.todoCursor = m.indexOfTodo(todo.ID)
	m.setStatus("Status: "+status.Label(), false)
	return true
}

func (m *Model) setSelectedPriority(priority model.Priority) {
	todo, ok := m.selectedTodoInFocus()
	if !ok {
		return
	}
	if todo.Priority == priority {
		return
	}
	todo.Priority = priority
	if err := m.session.Todos.SaveTodo(m.ctx, todo); err != nil {
		m.setStatus("Could not set priority: "+err.Error(), true)
		return
	}
	m.todoCursor = m.indexOfTodo(todo.ID)
	m.setStatus("Priority: "+priority.Label(), false)
}

// cycleStatusView cycles the status filter: all, open, done.
func (m *Model) cycleStatusView() {
	switch {
	case len(m.criteria.Statuses) == 0:
		m.criteria.Statuses = []model.Status{model.StatusNone, model.StatusNew, model.StatusInProgress}
	case slices.Equal(m.criteria.Statuses, []model.Status{model.StatusDone}):
		m.criteria.Statuses = nil
	default:
		m.criteria.Statuses = []model.Status{model.StatusDone}
	}
	m.todoCursor = 0
	m.setStatus("Filter: "+m.filterSummary(), false)
}

func (m *Model) startDeleteConfirm() {
	if m.focus == focusProjects {
		p, ok := m.activeProject()
		if !ok {
			m.setStatus("Select a project to delete", true)
			return
		}
		m.confirmKind = deleteProject
		m.confirmProject = p
		m.mode = modeConfirmDelete
		return
	}
	todo, ok := m.selectedTodo()
	if !ok {
		m.setStatus("No todo selected", true)
		return
	}
	m.confirmKind = deleteTodo
	m.confirmTodo = todo
	m.mode = modeConfirmDelete
}

func (m *Model) startClearScopeConfirm() {
	if m.session.Todos.ActiveCount(m.selectedProjectID())+m.session.Todos.CompletedCount(m.selectedProjectID()) == 0 {
		m.setStatus("No todos to delete", true)
		return
	}
	m.confirmKind = deleteScope
	m.mode = modeConfirmDelete
}

func (m *Model) confirmDelete() {
	kind := m.confirmKind
	m.confirmKind = deleteNone
	m.mode = modeNormal

	var (
		err     error
		success string
	)
	switch kind {
	case deleteProject:
		err = m.session.DeleteProjectWithTodos(m.ctx, m.confirmProject)
		success = "Project and its todos deleted"
		m.restoreSelection()
	case deleteTodo:
		err = m.session.Todos.DeleteTodo(m.ctx, m.confirmTodo)
		success = "Todo deleted"
	case deleteScope:
		err = m.session.Todos.ClearAll(m.ctx, m.selectedProjectID())
		success = "Todos deleted"
	default:
		return
	}
	m.ensureSelection()
	if err != nil {
		m.setStatus("Delete failed: "+err.Error(), true)
		return
	}
	m.setStatus(success, false)
}

func (m *Model) copyActiveTodos() {
	var lines []string
	for _, t := range m.visibleTodos() {
		if !t.IsDone() {
			lines = append(lines, "- "+t.Title)
		}
	}
	if len(lines) == 0 {
		m.setStatus("No open todos to copy", true)
		return
	}
	if err := copyToClipboard(strings.Join(lines, "\n")); err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %d todos", len(lines)), false)
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// restoreSelection points the project cursor at the service's selection.
func (m *Model) restoreSelection() {
	m.projectCursor = 0
	selected, ok := m.session.Projects.SelectedProject()
	if !ok {
		return
	}
	for i, p := range m.session.Projects.Projects() {
		if p.ID == selected.ID {
			m.projectCursor = i + 1
			return
		}
	}
}

func (m *Model) syncSelectedProject() {
	p, ok := m.activeProject()
	if !ok {
		m.session.Projects.SelectProject(nil)
		return
	}
	m.session.Projects.SelectProject(&p)
}

func (m *Model) ensureSelection() {
	m.projectCursor = clamp(m.projectCursor, 0, len(m.session.Projects.Projects()))
	todos := m.visibleTodos()
	if len(todos) == 0 {
		m.todoCursor = 0
		return
	}
	m.todoCursor = clamp(m.todoCursor, 0, len(todos)-1)
}

func (m *Model) activeProject() (model.Project, bool) {
	projects := m.session.Projects.Projects()
	if m.projectCursor <= 0 || m.projectCursor > len(projects) {
		return model.Project{}, false
	}
	return projects[m.projectCursor-1], true
}

func (m *Model) selectedProjectID() string {
	p, ok := m.activeProject()
	if !ok {
		return ""
	}
	return p.ID
}

func (m *Model) visibleTodos() []model.TodoItem {
	return slices.Collect(m.session.Todos.FilteredAndSorted(m.criteria, m.selectedProjectID()))
}

func (m *Model) selectedTodo() (model.TodoItem, bool) {
	todos := m.visibleTodos()
	if len(todos) == 0 {
		return model.TodoItem{}, false
	}
	if m.todoCursor < 0 || m.todoCursor >= len(todos) {
		m.todoCursor = 0
	}
	return todos[m.todoCursor], true
}

func (m *Model) selectedTodoInFocus() (model.TodoItem, bool) {
	if m.focus != focusTodos {
		return model.TodoItem{}, false
	}
	todo, ok := m.selectedTodo()
	if !ok {
		m.setStatus("No todo selected", true)
	}
	return todo, ok
}

func (m *Model) indexOfTodo(id string) int {
	for i, t := range m.visibleTodos() {
		if t.ID == id {
			return i
		}
	}
	return m.todoCursor
}

func (m *Model) filterSummary() string {
	var parts []string
	if q := strings.TrimSpace(m.criteria.SearchText); q != "" {
		parts = append(parts, fmt.Sprintf("%q", q))
	}
	for _, p := range m.criteria.Priorities {
		parts = append(parts, p.Label())
	}
	switch {
	case slices.Equal(m.criteria.Statuses, []model.Status{model.StatusDone}):
		parts = append(parts, "done")
	case len(m.criteria.Statuses) > 0:
		parts = append(parts, "open")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func sortLabel(chain []model.SortCriterion) string {
	parts := make([]string, len(chain))
	for i, c := range chain {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}

// Run starts the terminal UI on the alternate screen and blocks until the
// user quits.
func Run(ctx context.Context, session *app.Session, startupStatus string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(ctx, session, startupStatus)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func copyToClipboard(text string) error {
	candidates := []struct {
		name string
		args []string
	}{
		{name: "wl-copy", args: []string{"--type", "text/plain"}},
		{name: "xclip", args: []string{"-in", "-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
		{name: "pbcopy"},
	}

	for _, c := range candidates {
		if _, err := exec.LookPath(c.name); err != nil {
			continue
		}
		go runClipboardCommand(c.name, c.args, text)
		return nil
	}
	return fmt.Errorf("no clipboard command available (install wl-copy or xclip)")
}

func runClipboardCommand(name string, args []string, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(text)
	_ = cmd.Run()
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func trimLastRune(s string) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}
