package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/ansi"

	"todolist/model"
)

func ansiWidth(s string) int {
	w := 0
	for _, line := range strings.Split(s, "\n") {
		w = max(w, ansi.PrintableRuneWidth(line))
	}
	return w
}

func press(m *Model, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEscape}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestCreateProjectAndTodoFromKeys(t *testing.T) {
	m, s := newTestModel(t)

	press(m, "a", "Home", "enter")
	projects := s.Projects.Projects()
	if len(projects) != 1 || projects[0].Name != "Home" {
		t.Fatalf("expected project Home, got %+v", projects)
	}
	if selected, ok := s.Projects.SelectedProject(); !ok || selected.ID != projects[0].ID {
		t.Fatalf("expected new project selected, got %+v (ok=%v)", selected, ok)
	}

	press(m, "tab", "a", "Buy milk", "enter", "two liters", "enter")
	todos := s.Todos.Todos()
	if len(todos) != 1 {
		t.Fatalf("expected one todo, got %d", len(todos))
	}
	got := todos[0]
	if got.Title != "Buy milk" || got.Description != "two liters" || got.ProjectID != projects[0].ID {
		t.Fatalf("unexpected todo %+v", got)
	}
	if m.mode != modeNormal {
		t.Fatalf("expected normal mode after input, got %v", m.mode)
	}
}

func TestEmptyDescriptionKeepsPrompt(t *testing.T) {
	m, s := newTestModel(t)

	press(m, "tab", "a", "Title", "enter", "enter")
	if m.mode != modeAddTodoDescription || !m.statusErr {
		t.Fatalf("expected description prompt with error, got mode=%v status=%q", m.mode, m.status)
	}
	if n := len(s.Todos.Todos()); n != 0 {
		t.Fatalf("expected nothing saved, got %d todos", n)
	}
	press(m, "esc")
	if m.mode != modeNormal {
		t.Fatalf("expected esc to cancel, got %v", m.mode)
	}
}

func TestStatusAndPriorityKeys(t *testing.T) {
	m, s := newTestModel(t)
	press(m, "tab", "a", "Report", "enter", "quarterly", "enter")

	press(m, "s")
	if got := s.Todos.Todos()[0]; got.Status != model.StatusInProgress || got.StartedAt == nil {
		t.Fatalf("expected in progress with start time, got %+v", got)
	}
	press(m, "x")
	if got := s.Todos.Todos()[0]; !got.IsDone() || got.CompletedAt == nil {
		t.Fatalf("expected done with completion time, got %+v", got)
	}
	press(m, "x")
	if got := s.Todos.Todos()[0]; got.Status != model.StatusNew {
		t.Fatalf("expected reopened todo, got %+v", got)
	}
	press(m, "4")
	if got := s.Todos.Todos()[0]; got.Priority != model.PriorityEmergency {
		t.Fatalf("expected emergency priority, got %+v", got)
	}
}

func TestSearchFiltersVisibleTodos(t *testing.T) {
	m, _ := newTestModel(t)
	press(m, "tab",
		"a", "Buy milk", "enter", "dairy", "enter",
		"a", "Walk dog", "enter", "park", "enter",
	)

	press(m, "/", "MILK")
	todos := m.visibleTodos()
	if len(todos) != 1 || todos[0].Title != "Buy milk" {
		t.Fatalf("expected only milk todo, got %+v", todos)
	}
	press(m, "enter")
	if m.criteria.SearchText != "MILK" {
		t.Fatalf("expected search kept, got %q", m.criteria.SearchText)
	}
	press(m, "esc")
	if len(m.visibleTodos()) != 2 {
		t.Fatalf("expected esc to clear search")
	}
}

func TestDeleteProjectRemovesItsTodos(t *testing.T) {
	m, s := newTestModel(t)
	press(m, "a", "Home", "enter", "tab", "a", "Dishes", "enter", "tonight", "enter", "tab")

	press(m, "d")
	if m.mode != modeConfirmDelete || m.confirmKind != deleteProject {
		t.Fatalf("expected project delete confirmation, got mode=%v kind=%v", m.mode, m.confirmKind)
	}
	press(m, "y")
	if n := len(s.Projects.Projects()); n != 0 {
		t.Fatalf("expected project deleted, got %d", n)
	}
	if n := len(s.Todos.Todos()); n != 0 {
		t.Fatalf("expected project todos deleted, got %d", n)
	}
	if m.projectCursor != 0 {
		t.Fatalf("expected cursor back on all todos, got %d", m.projectCursor)
	}
}

func TestDeleteTodoCanBeCancelled(t *testing.T) {
	m, s := newTestModel(t)
	press(m, "tab", "a", "Keep me", "enter", "please", "enter")

	press(m, "d", "n")
	if n := len(s.Todos.Todos()); n != 1 {
		t.Fatalf("expected todo kept, got %d", n)
	}
	press(m, "d", "y")
	if n := len(s.Todos.Todos()); n != 0 {
		t.Fatalf("expected todo deleted, got %d", n)
	}
}

func TestExternalChangeWakesWatcher(t *testing.T) {
	m, s := newTestModel(t)
	cmd := m.Init()

	if _, err := s.Todos.CreateTodo(t.Context(), "Elsewhere", "made by the cli", model.PriorityLow, ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	msg := cmd()
	if _, ok := msg.(changedMsg); !ok {
		t.Fatalf("expected changedMsg, got %T", msg)
	}
	if _, next := m.Update(msg); next == nil {
		t.Fatal("expected watcher to be re-armed")
	}
}

func TestCloseStopsWatcher(t *testing.T) {
	m, _ := newTestModel(t)
	cmd := m.Init()

	m.Close()
	if msg := cmd(); msg != nil {
		t.Fatalf("expected no message after close, got %T", msg)
	}
}

func TestViewRendersCounters(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	press(m, "tab", "a", "Draft", "enter", "outline", "enter", "x", "a", "Send", "enter", "email", "enter")

	view := m.View()
	if !strings.Contains(view, "active: 1") || !strings.Contains(view, "done: 1") {
		t.Fatalf("expected counters in header, got:\n%s", view)
	}
}
