package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"todolist/model"
	"todolist/repository"
)

// TodoService owns the todo cache: status lifecycle, queries and counts.
type TodoService struct {
	notifier

	repo *repository.Repository[model.TodoItem]
	log  *zap.Logger
	now  Clock

	mu    sync.RWMutex
	todos []model.TodoItem
}

// NewTodoService returns a service over repo. Initialize must run first.
func NewTodoService(repo *repository.Repository[model.TodoItem], opts ...Option) *TodoService {
	o := buildOptions(opts)
	return &TodoService{
		repo: repo,
		log:  o.log.Named("todos"),
		now:  o.now,
	}
}

// Initialize loads the repository and fills the cache.
func (s *TodoService) Initialize(ctx context.Context) error {
	if err := s.repo.Initialize(ctx); err != nil {
		return err
	}
	err := s.refresh(ctx)
	s.notify()
	return err
}

// refresh replaces the cache with the repository contents. A failed read
// leaves the cache empty.
func (s *TodoService) refresh(ctx context.Context) error {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Warn("refresh failed, cache cleared", zap.Error(err))
	}
	s.mu.Lock()
	s.todos = all
	s.mu.Unlock()
	return err
}

// CreateTodo builds a todo stamped with the service clock and saves it.
func (s *TodoService) CreateTodo(ctx context.Context, title, description string, priority model.Priority, projectID string) (model.TodoItem, error) {
	todo := model.NewTodo(strings.TrimSpace(title), strings.TrimSpace(description), s.now())
	if priority != "" {
		todo.Priority = priority
	}
	todo.ProjectID = projectID
	if err := s.SaveTodo(ctx, todo); err != nil {
		return model.TodoItem{}, err
	}
	return todo, nil
}

// SaveTodo validates and persists todo, then reloads the cache. Rejected
// todos change nothing and fire no notification.
func (s *TodoService) SaveTodo(ctx context.Context, todo model.TodoItem) error {
	err := s.repo.AddOrUpdate(ctx, todo)
	if errors.Is(err, repository.ErrInvalidEntity) {
		return err
	}
	return s.afterMutation(ctx, err)
}

// DeleteTodo removes todo and reloads the cache.
func (s *TodoService) DeleteTodo(ctx context.Context, todo model.TodoItem) error {
	return s.afterMutation(ctx, s.repo.Delete(ctx, todo))
}

// UpdateStatus moves todo to status. Entering InProgress or Done stamps the
// started or completed time the first time only; stamps are never cleared.
func (s *TodoService) UpdateStatus(ctx context.Context, todo model.TodoItem, status model.Status) (model.TodoItem, error) {
	if !status.IsValid() {
		return model.TodoItem{}, fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}

	updated := todo.Clone()
	updated.Status = status
	now := s.now()
	switch status {
	case model.StatusInProgress:
		if updated.StartedAt == nil {
			updated.StartedAt = model.TimePtr(now)
		}
	case model.StatusDone:
		if updated.CompletedAt == nil {
			updated.CompletedAt = model.TimePtr(now)
		}
	}

	if err := s.SaveTodo(ctx, updated); err != nil {
		return model.TodoItem{}, err
	}
	return updated, nil
}

// ClearAll removes every todo when projectID is empty, otherwise only the
// todos of that project (see DeleteTodosByProject).
func (s *TodoService) ClearAll(ctx context.Context, projectID string) error {
	if projectID != "" {
		return s.DeleteTodosByProject(ctx, projectID)
	}
	return s.afterMutation(ctx, s.repo.ClearAll(ctx))
}

// DeleteTodosByProject deletes the project's todos one at a time. The cache
// is refreshed and observers notified after each step; the first failure
// stops the loop and leaves earlier deletions in place.
func (s *TodoService) DeleteTodosByProject(ctx context.Context, projectID string) error {
	s.mu.RLock()
	var targets []model.TodoItem
	for _, t := range s.todos {
		if t.ProjectID == projectID {
			targets = append(targets, t.Clone())
		}
	}
	s.mu.RUnlock()

	for i, t := range targets {
		if err := s.DeleteTodo(ctx, t); err != nil {
			s.log.Warn("project clear stopped",
				zap.String("project", projectID),
				zap.Int("deleted", i),
				zap.Int("remaining", len(targets)-i),
				zap.Error(err))
			return err
		}
	}
	return nil
}

func (s *TodoService) afterMutation(ctx context.Context, opErr error) error {
	refreshErr := s.refresh(ctx)
	s.notify()
	if opErr != nil {
		return opErr
	}
	return refreshErr
}

// Todos returns a copy of the cache in repository order.
func (s *TodoService) Todos() []model.TodoItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TodoItem, len(s.todos))
	for i, t := range s.todos {
		out[i] = t.Clone()
	}
	return out
}

// Todo returns the todo whose ID is ref or uniquely starts with ref.
func (s *TodoService) Todo(ref string) (model.TodoItem, error) {
	return resolveRef(s.Todos(), ref, model.TodoItem.EntityID, ErrTodoNotFound)
}

// FilteredAndSorted yields the todos matching c within projectID (empty
// means every project), ordered by c's sort chain. The sequence works on a
// snapshot taken now, so later mutations do not affect it.
func (s *TodoService) FilteredAndSorted(c model.TodoFilterCriteria, projectID string) iter.Seq[model.TodoItem] {
	snapshot := s.Todos()
	c.Priorities = slices.Clone(c.Priorities)
	c.Statuses = slices.Clone(c.Statuses)
	c.Sort = slices.Clone(c.Sort)

	return func(yield func(model.TodoItem) bool) {
		items := applyCriteria(slices.Clone(snapshot), c, projectID)
		for _, t := range items {
			if !yield(t.Clone()) {
				return
			}
		}
	}
}

// ActiveCount counts todos not Done within projectID.
func (s *TodoService) ActiveCount(projectID string) int {
	return s.count(projectID, false)
}

// CompletedCount counts Done todos within projectID.
func (s *TodoService) CompletedCount(projectID string) int {
	return s.count(projectID, true)
}

func (s *TodoService) count(projectID string, done bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.todos {
		if inProject(t, projectID) && t.IsDone() == done {
			n++
		}
	}
	return n
}
