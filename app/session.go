package app

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"todolist/config"
	"todolist/model"
	"todolist/repository"
	"todolist/store"
)

// SessionOptions configures NewSession.
type SessionOptions struct {
	Logger   *zap.Logger
	Registry prometheus.Registerer
	Clock    Clock
}

// Session wires one store, both repositories and the services for a
// single user session. Repository state lives here, never in globals.
type Session struct {
	Store    store.Store
	Todos    *TodoService
	Projects *ProjectService
	Transfer *ImportExportService

	log *zap.Logger
}

// NewSession builds the services over kv. Initialize loads them.
func NewSession(kv store.Store, opts SessionOptions) *Session {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var metrics *repository.Metrics
	if opts.Registry != nil {
		metrics = repository.NewMetrics(opts.Registry)
	}

	todoRepo := repository.NewTodos(kv, log, metrics)
	projectRepo := repository.NewProjects(kv, log, metrics)

	svcOpts := []Option{WithLogger(log), WithClock(opts.Clock)}
	todos := NewTodoService(todoRepo, svcOpts...)
	return &Session{
		Store:    kv,
		Todos:    todos,
		Projects: NewProjectService(projectRepo, svcOpts...),
		Transfer: NewImportExportService(todos, todoRepo, svcOpts...),
		log:      log,
	}
}

// OpenSession opens the configured store and initializes a session on it.
func OpenSession(ctx context.Context, cfg config.Storage, opts SessionOptions) (*Session, error) {
	kv, err := OpenStore(ctx, cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	s := NewSession(kv, opts)
	if err := s.Initialize(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// OpenStore opens the backend selected by cfg.
func OpenStore(ctx context.Context, cfg config.Storage, log *zap.Logger) (store.Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil
	case config.BackendNATS:
		kv, err := store.OpenNATS(ctx, store.NATSOptions{URL: cfg.NATSURL, Bucket: cfg.Bucket})
		if err != nil {
			return nil, err
		}
		log.Debug("opened nats store", zap.String("url", cfg.NATSURL), zap.String("bucket", cfg.Bucket))
		return kv, nil
	case config.BackendFile, "":
		kv, err := store.OpenFile(cfg.Path, store.FileOptions{MaxBackups: cfg.MaxBackups})
		if err != nil {
			return nil, err
		}
		if msg := kv.RecoveryMessage(); msg != "" {
			log.Warn(msg, zap.String("path", kv.Path()))
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Initialize loads projects then todos.
func (s *Session) Initialize(ctx context.Context) error {
	if err := s.Projects.Initialize(ctx); err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	if err := s.Todos.Initialize(ctx); err != nil {
		return fmt.Errorf("load todos: %w", err)
	}
	s.log.Debug("session ready",
		zap.Int("projects", len(s.Projects.Projects())),
		zap.Int("todos", len(s.Todos.Todos())))
	return nil
}

// DeleteProjectWithTodos removes the project's todos, then the project.
// It stops at the first todo that cannot be deleted.
func (s *Session) DeleteProjectWithTodos(ctx context.Context, p model.Project) error {
	if err := s.Todos.DeleteTodosByProject(ctx, p.ID); err != nil {
		return fmt.Errorf("delete todos of %s: %w", p.Name, err)
	}
	return s.Projects.DeleteProject(ctx, p)
}

// Close releases the store when it holds resources.
func (s *Session) Close() error {
	if c, ok := s.Store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
