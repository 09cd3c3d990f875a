// Package repository implements ID-indexed persistence of entities over a
// key-value store.
//
// Each repository keeps the list of known IDs under "<Name>_Ids" and every
// entity body under "<Name>_<id>". Enumerating entities reads the index
// instead of scanning the key space, and each entity can be rewritten on its
// own. Index updates are written before body removals, so an interrupted
// delete can leave an orphaned body (never read again) but never an index
// entry pointing at nothing it cannot tolerate.
package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"todolist/model"
	"todolist/store"
)

const (
	// TodoSetName is the key prefix of the todo repository.
	TodoSetName = "TodoSet"

	// ProjectSetName is the key prefix of the project repository.
	ProjectSetName = "ProjectSet"
)

var (
	// ErrInvalidEntity is returned when an entity fails validation.
	// The validation error is wrapped alongside it.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrNotInitialized is returned by operations that run before Initialize.
	ErrNotInitialized = errors.New("repository not initialized")
)

// Options configures a Repository.
type Options[T model.Entity] struct {
	// Logger receives storage failures and rejected entities. Nil disables logging.
	Logger *zap.Logger

	// Metrics records operation outcomes. Nil disables metrics.
	Metrics *Metrics

	// Order sorts GetAll results. Nil keeps index (insertion) order.
	Order func(a, b T) int
}

// Repository persists entities of one type.
type Repository[T model.Entity] struct {
	kv      store.Store
	name    string
	log     *zap.Logger
	metrics *Metrics
	order   func(a, b T) int

	mu          sync.Mutex
	ids         []string
	index       map[string]struct{}
	initialized bool
}

// New returns a repository storing entities under keys prefixed by name.
// Initialize must be called before any other method.
func New[T model.Entity](kv store.Store, name string, opts Options[T]) *Repository[T] {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository[T]{
		kv:      kv,
		name:    name,
		log:     log.With(zap.String("entity", name)),
		metrics: opts.Metrics,
		order:   opts.Order,
		index:   map[string]struct{}{},
	}
}

// NewTodos returns the todo repository.
func NewTodos(kv store.Store, log *zap.Logger, metrics *Metrics) *Repository[model.TodoItem] {
	return New(kv, TodoSetName, Options[model.TodoItem]{Logger: log, Metrics: metrics})
}

// NewProjects returns the project repository, ordered by creation time.
func NewProjects(kv store.Store, log *zap.Logger, metrics *Metrics) *Repository[model.Project] {
	return New(kv, ProjectSetName, Options[model.Project]{
		Logger:  log,
		Metrics: metrics,
		Order: func(a, b model.Project) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		},
	})
}

// Name returns the key prefix.
func (r *Repository[T]) Name() string {
	return r.name
}

func (r *Repository[T]) idsKey() string {
	return r.name + "_Ids"
}

func (r *Repository[T]) entityKey(id string) string {
	return r.name + "_" + id
}

// Initialize loads the ID index. A missing index is an empty repository.
func (r *Repository[T]) Initialize(ctx context.Context) (err error) {
	defer func() { r.metrics.observe(r.name, "initialize", err) }()

	var ids []string
	if _, err := r.kv.Get(ctx, r.idsKey(), &ids); err != nil {
		r.log.Error("load index failed", zap.Error(err))
		return fmt.Errorf("load %s index: %w", r.name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = r.ids[:0]
	r.index = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := r.index[id]; dup || id == "" {
			continue
		}
		r.index[id] = struct{}{}
		r.ids = append(r.ids, id)
	}
	r.initialized = true
	r.metrics.setIndexed(r.name, len(r.ids))
	return nil
}

// AddOrUpdate validates entity and stores it, adding its ID to the index if
// it is new. Invalid entities are rejected without touching the store.
func (r *Repository[T]) AddOrUpdate(ctx context.Context, entity T) (err error) {
	defer func() { r.metrics.observe(r.name, "add_or_update", err) }()

	if err := entity.Validate(); err != nil {
		r.log.Debug("rejected malformed entity", zap.String("id", entity.EntityID()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInvalidEntity, err)
	}
	id := entity.EntityID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotInitialized
	}

	if _, known := r.index[id]; !known {
		next := append(slices.Clone(r.ids), id)
		if err := r.kv.Set(ctx, r.idsKey(), next); err != nil {
			r.log.Error("persist index failed", zap.String("id", id), zap.Error(err))
			return fmt.Errorf("persist %s index: %w", r.name, err)
		}
		r.ids = next
		r.index[id] = struct{}{}
		r.metrics.setIndexed(r.name, len(r.ids))
	}

	if err := r.kv.Set(ctx, r.entityKey(id), entity); err != nil {
		r.log.Error("persist entity failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("persist %s %s: %w", r.name, id, err)
	}
	return nil
}

// GetAll returns every indexed entity. Index entries whose body is missing
// are skipped. On a storage error the result is empty.
func (r *Repository[T]) GetAll(ctx context.Context) (_ []T, err error) {
	defer func() { r.metrics.observe(r.name, "get_all", err) }()

	ids, err := r.snapshotIDs()
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var entity T
		ok, err := r.kv.Get(ctx, r.entityKey(id), &entity)
		if err != nil {
			r.log.Error("read entity failed", zap.String("id", id), zap.Error(err))
			return nil, fmt.Errorf("read %s %s: %w", r.name, id, err)
		}
		if !ok {
			r.log.Debug("skipping index entry without body", zap.String("id", id))
			continue
		}
		out = append(out, entity)
	}

	if r.order != nil {
		slices.SortStableFunc(out, r.order)
	}
	return out, nil
}

// GetByID returns the entity with id. A missing entity is reported as
// false, not as an error.
func (r *Repository[T]) GetByID(ctx context.Context, id string) (_ T, _ bool, err error) {
	defer func() { r.metrics.observe(r.name, "get_by_id", err) }()

	var entity T
	r.mu.Lock()
	initialized := r.initialized
	_, known := r.index[id]
	r.mu.Unlock()
	if !initialized {
		return entity, false, ErrNotInitialized
	}
	if !known {
		return entity, false, nil
	}

	ok, err := r.kv.Get(ctx, r.entityKey(id), &entity)
	if err != nil {
		r.log.Error("read entity failed", zap.String("id", id), zap.Error(err))
		var zero T
		return zero, false, fmt.Errorf("read %s %s: %w", r.name, id, err)
	}
	return entity, ok, nil
}

// Delete removes entity. Unknown IDs are ignored.
func (r *Repository[T]) Delete(ctx context.Context, entity T) error {
	return r.DeleteByID(ctx, entity.EntityID())
}

// DeleteByID removes the entity with id: the index is persisted first, then
// the body is removed.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string) (err error) {
	defer func() { r.metrics.observe(r.name, "delete", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotInitialized
	}
	if _, known := r.index[id]; !known {
		return nil
	}

	next := slices.DeleteFunc(slices.Clone(r.ids), func(candidate string) bool {
		return candidate == id
	})
	if err := r.kv.Set(ctx, r.idsKey(), next); err != nil {
		r.log.Error("persist index failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("persist %s index: %w", r.name, err)
	}
	r.ids = next
	delete(r.index, id)
	r.metrics.setIndexed(r.name, len(r.ids))

	if err := r.kv.Remove(ctx, r.entityKey(id)); err != nil {
		r.log.Error("remove entity body failed", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("remove %s %s: %w", r.name, id, err)
	}
	return nil
}

// ClearAll empties the index and removes every indexed body.
func (r *Repository[T]) ClearAll(ctx context.Context) (err error) {
	defer func() { r.metrics.observe(r.name, "clear_all", err) }()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return ErrNotInitialized
	}

	removed := r.ids
	if err := r.kv.Set(ctx, r.idsKey(), []string{}); err != nil {
		r.log.Error("persist index failed", zap.Error(err))
		return fmt.Errorf("persist %s index: %w", r.name, err)
	}
	r.ids = nil
	r.index = map[string]struct{}{}
	r.metrics.setIndexed(r.name, 0)

	var errs []error
	for _, id := range removed {
		if err := r.kv.Remove(ctx, r.entityKey(id)); err != nil {
			r.log.Error("remove entity body failed", zap.String("id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("remove %s %s: %w", r.name, id, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of indexed IDs.
func (r *Repository[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *Repository[T]) snapshotIDs() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		return nil, ErrNotInitialized
	}
	return slices.Clone(r.ids), nil
}
