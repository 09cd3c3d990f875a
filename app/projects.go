package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"todolist/model"
	"todolist/repository"
)

// ProjectService owns the project cache and the current selection.
type ProjectService struct {
	notifier

	repo *repository.Repository[model.Project]
	log  *zap.Logger
	now  Clock

	mu       sync.RWMutex
	projects []model.Project
	selected string
}

// NewProjectService returns a service over repo. Initialize must run first.
func NewProjectService(repo *repository.Repository[model.Project], opts ...Option) *ProjectService {
	o := buildOptions(opts)
	return &ProjectService{
		repo: repo,
		log:  o.log.Named("projects"),
		now:  o.now,
	}
}

// Initialize loads every project and selects the default one, falling back
// to the first project, or nothing when there are none.
func (s *ProjectService) Initialize(ctx context.Context) error {
	if err := s.repo.Initialize(ctx); err != nil {
		return err
	}
	err := s.refresh(ctx)

	s.mu.Lock()
	s.selected = ""
	if p, ok := firstDefault(s.projects); ok {
		s.selected = p.ID
	} else if len(s.projects) > 0 {
		s.selected = s.projects[0].ID
	}
	s.mu.Unlock()

	s.notify()
	return err
}

func (s *ProjectService) refresh(ctx context.Context) error {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Warn("refresh failed, cache cleared", zap.Error(err))
	}
	s.mu.Lock()
	s.projects = all
	s.mu.Unlock()
	return err
}

// CreateProject builds a project stamped with the service clock and saves it.
// An empty color keeps the default.
func (s *ProjectService) CreateProject(ctx context.Context, name, description, color string) (model.Project, error) {
	p := model.NewProject(strings.TrimSpace(name), s.now())
	p.Description = strings.TrimSpace(description)
	if c := strings.TrimSpace(color); c != "" {
		p.Color = c
	}
	if err := s.SaveProject(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// SaveProject validates and persists p, then reloads the cache.
func (s *ProjectService) SaveProject(ctx context.Context, p model.Project) error {
	err := s.repo.AddOrUpdate(ctx, p)
	if errors.Is(err, repository.ErrInvalidEntity) {
		return err
	}
	refreshErr := s.refresh(ctx)
	s.notify()
	if err != nil {
		return err
	}
	return refreshErr
}

// DeleteProject removes p. When p was selected, the first remaining
// project becomes selected, or nothing if none remain.
func (s *ProjectService) DeleteProject(ctx context.Context, p model.Project) error {
	err := s.repo.Delete(ctx, p)
	refreshErr := s.refresh(ctx)

	s.mu.Lock()
	if s.selected != "" && (s.selected == p.ID || indexOfProject(s.projects, s.selected) < 0) {
		s.selected = ""
		if len(s.projects) > 0 {
			s.selected = s.projects[0].ID
		}
	}
	s.mu.Unlock()

	s.notify()
	if err != nil {
		return err
	}
	return refreshErr
}

// SelectProject changes the selection; nil clears it. Observers are always
// notified.
func (s *ProjectService) SelectProject(p *model.Project) {
	s.mu.Lock()
	if p == nil {
		s.selected = ""
	} else {
		s.selected = p.ID
	}
	s.mu.Unlock()
	s.notify()
}

// SelectedProject returns the selected project, if any.
func (s *ProjectService) SelectedProject() (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOfProject(s.projects, s.selected); i >= 0 {
		return s.projects[i], true
	}
	return model.Project{}, false
}

// DefaultProject returns the first cached project flagged as default.
func (s *ProjectService) DefaultProject() (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return firstDefault(s.projects)
}

// Projects returns a copy of the cache ordered by creation time.
func (s *ProjectService) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// Project returns the project whose ID is ref or uniquely starts with ref.
// An exact (case-insensitive) name match is also accepted.
func (s *ProjectService) Project(ref string) (model.Project, error) {
	projects := s.Projects()
	p, err := resolveRef(projects, ref, model.Project.EntityID, ErrProjectNotFound)
	if !errors.Is(err, ErrProjectNotFound) {
		return p, err
	}
	for _, candidate := range projects {
		if strings.EqualFold(candidate.Name, strings.TrimSpace(ref)) {
			return candidate, nil
		}
	}
	return model.Project{}, ErrProjectNotFound
}

// TodoCount counts the todos in todos that belong to projectID.
func (s *ProjectService) TodoCount(projectID string, todos []model.TodoItem) int {
	n := 0
	for _, t := range todos {
		if t.ProjectID == projectID {
			n++
		}
	}
	return n
}

func firstDefault(projects []model.Project) (model.Project, bool) {
	for _, p := range projects {
		if p.IsDefault {
			return p, true
		}
	}
	return model.Project{}, false
}

func indexOfProject(projects []model.Project, id string) int {
	if id == "" {
		return -1
	}
	for i, p := range projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}
