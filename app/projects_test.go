package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"todolist/model"
	"todolist/repository"
	"todolist/store"
)

var projectEpoch = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func seedProjects(t *testing.T, kv store.Store, projects ...model.Project) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewProjects(kv, nil, nil)
	if err := repo.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	for _, p := range projects {
		if err := repo.AddOrUpdate(ctx, p); err != nil {
			t.Fatalf("seed %s: %v", p.Name, err)
		}
	}
}

func project(id, name string, offset time.Duration, isDefault bool) model.Project {
	p := model.NewProject(name, projectEpoch.Add(offset))
	p.ID = id
	p.IsDefault = isDefault
	return p
}

func TestProjectInitializeSelection(t *testing.T) {
	cases := []struct {
		name     string
		projects []model.Project
		wantID   string
	}{
		{name: "empty", wantID: ""},
		{
			name:     "default flagged",
			projects: []model.Project{project("a", "A", 0, false), project("b", "B", time.Hour, true)},
			wantID:   "b",
		},
		{
			name:     "first in load order",
			projects: []model.Project{project("late", "Late", time.Hour, false), project("early", "Early", 0, false)},
			wantID:   "early",
		},
		{
			name:     "multiple defaults first wins",
			projects: []model.Project{project("y", "Y", 2*time.Hour, true), project("x", "X", time.Hour, true)},
			wantID:   "x",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kv := store.NewMemory()
			seedProjects(t, kv, tc.projects...)
			svc := NewProjectService(repository.NewProjects(kv, nil, nil))
			if err := svc.Initialize(context.Background()); err != nil {
				t.Fatalf("initialize: %v", err)
			}

			selected, ok := svc.SelectedProject()
			if tc.wantID == "" {
				if ok {
					t.Fatalf("expected no selection, got %+v", selected)
				}
				return
			}
			if !ok || selected.ID != tc.wantID {
				t.Fatalf("expected %s selected, got %+v (ok=%v)", tc.wantID, selected, ok)
			}
		})
	}
}

func TestDeleteSelectedProjectReselectsFirstRemaining(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	seedProjects(t, kv,
		project("a", "A", 0, false),
		project("b", "B", time.Hour, true),
		project("c", "C", 2*time.Hour, false),
	)
	svc := NewProjectService(repository.NewProjects(kv, nil, nil))
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	b, _ := svc.SelectedProject()
	if err := svc.DeleteProject(ctx, b); err != nil {
		t.Fatalf("delete: %v", err)
	}
	selected, ok := svc.SelectedProject()
	if !ok || selected.ID != "a" {
		t.Fatalf("expected a selected, got %+v (ok=%v)", selected, ok)
	}

	for _, p := range svc.Projects() {
		if err := svc.DeleteProject(ctx, p); err != nil {
			t.Fatalf("delete %s: %v", p.ID, err)
		}
	}
	if selected, ok := svc.SelectedProject(); ok {
		t.Fatalf("expected no selection once empty, got %+v", selected)
	}
}

func TestDeleteUnselectedProjectKeepsSelection(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	seedProjects(t, kv, project("a", "A", 0, false), project("b", "B", time.Hour, false))
	svc := NewProjectService(repository.NewProjects(kv, nil, nil))
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	svc.SelectProject(nil)
	if err := svc.DeleteProject(ctx, project("b", "B", time.Hour, false)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if selected, ok := svc.SelectedProject(); ok {
		t.Fatalf("cleared selection must stay cleared, got %+v", selected)
	}
}

func TestSelectProjectAlwaysNotifies(t *testing.T) {
	s := newTestSession(t, store.NewMemory())
	p := mustCreateProject(t, s.Projects, "Home")
	count, cancel := countNotifications(s.Projects)
	defer cancel()

	s.Projects.SelectProject(&p)
	s.Projects.SelectProject(&p)
	s.Projects.SelectProject(nil)

	if *count != 3 {
		t.Fatalf("expected 3 notifications, got %d", *count)
	}
	if _, ok := s.Projects.SelectedProject(); ok {
		t.Fatal("expected selection cleared")
	}
}

func TestSaveProjectValidation(t *testing.T) {
	s := newTestSession(t, store.NewMemory())

	_, err := s.Projects.CreateProject(context.Background(), "   ", "", "")
	if !errors.Is(err, repository.ErrInvalidEntity) || !errors.Is(err, model.ErrEmptyName) {
		t.Fatalf("expected invalid entity wrapping ErrEmptyName, got %v", err)
	}

	p, err := s.Projects.CreateProject(context.Background(), "Garden", "outside", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Color != model.DefaultProjectColor {
		t.Fatalf("expected default color, got %q", p.Color)
	}
}

func TestDefaultProjectAndLookup(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	seedProjects(t, kv, project("aaa1", "Home", 0, false), project("bbb2", "Work", time.Hour, true))
	svc := NewProjectService(repository.NewProjects(kv, nil, nil))
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	def, ok := svc.DefaultProject()
	if !ok || def.ID != "bbb2" {
		t.Fatalf("expected bbb2 as default, got %+v", def)
	}
	if p, err := svc.Project("home"); err != nil || p.ID != "aaa1" {
		t.Fatalf("expected name lookup to find aaa1, got %+v (%v)", p, err)
	}
	if p, err := svc.Project("bbb"); err != nil || p.ID != "bbb2" {
		t.Fatalf("expected prefix lookup to find bbb2, got %+v (%v)", p, err)
	}
	if _, err := svc.Project("garden"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestTodoCountIsPure(t *testing.T) {
	svc := NewProjectService(repository.NewProjects(store.NewMemory(), nil, nil))
	todos := []model.TodoItem{
		{ID: "1", ProjectID: "p"},
		{ID: "2", ProjectID: "q"},
		{ID: "3", ProjectID: "p"},
		{ID: "4"},
	}
	if got := svc.TodoCount("p", todos); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := svc.TodoCount("", todos); got != 1 {
		t.Fatalf("expected 1 unassigned, got %d", got)
	}
}
