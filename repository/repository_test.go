package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"todolist/model"
	"todolist/store"
)

var errDisk = errors.New("disk full")

// flakyStore wraps a memory store and fails writes to keys matching failSet
// or removals matching failRemove.
type flakyStore struct {
	*store.Memory
	failSet    func(key string) bool
	failRemove func(key string) bool
	failGet    bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{
		Memory:     store.NewMemory(),
		failSet:    func(string) bool { return false },
		failRemove: func(string) bool { return false },
	}
}

func (f *flakyStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	if f.failGet {
		return false, errDisk
	}
	return f.Memory.Get(ctx, key, dst)
}

func (f *flakyStore) Set(ctx context.Context, key string, value any) error {
	if f.failSet(key) {
		return errDisk
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	if f.failRemove(key) {
		return errDisk
	}
	return f.Memory.Remove(ctx, key)
}

var testNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func todo(id, title string) model.TodoItem {
	item := model.NewTodo(title, title+" details", testNow)
	item.ID = id
	return item
}

func newTodoRepo(t *testing.T, kv store.Store) *Repository[model.TodoItem] {
	t.Helper()
	repo := NewTodos(kv, nil, nil)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestAddOrUpdateAppendsToIndexOnce(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := newTodoRepo(t, kv)

	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "first")))
	require.NoError(t, repo.AddOrUpdate(ctx, todo("b", "second")))

	updated := todo("a", "first, renamed")
	require.NoError(t, repo.AddOrUpdate(ctx, updated))

	var ids []string
	ok, err := kv.Get(ctx, "TodoSet_Ids", &ids)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first, renamed", all[0].Title)
	assert.Equal(t, "second", all[1].Title)
}

func TestAddOrUpdateRejectsInvalidEntity(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	core, logs := observer.New(zapcore.DebugLevel)
	repo := NewTodos(kv, zap.New(core), nil)
	require.NoError(t, repo.Initialize(ctx))

	bad := todo("a", "")
	err := repo.AddOrUpdate(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidEntity)
	assert.ErrorIs(t, err, model.ErrEmptyTitle)

	assert.Empty(t, kv.Keys(), "nothing is written for a rejected entity")
	assert.Equal(t, 1, logs.FilterMessage("rejected malformed entity").Len())
}

func TestRepositoryRequiresInitialize(t *testing.T) {
	ctx := context.Background()
	repo := NewTodos(store.NewMemory(), nil, nil)

	assert.ErrorIs(t, repo.AddOrUpdate(ctx, todo("a", "x")), ErrNotInitialized)
	_, err := repo.GetAll(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = repo.GetByID(ctx, "a")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, repo.DeleteByID(ctx, "a"), ErrNotInitialized)
	assert.ErrorIs(t, repo.ClearAll(ctx), ErrNotInitialized)
}

func TestInitializeLoadsPersistedIndex(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	first := newTodoRepo(t, kv)
	require.NoError(t, first.AddOrUpdate(ctx, todo("a", "one")))
	require.NoError(t, first.AddOrUpdate(ctx, todo("b", "two")))

	second := newTodoRepo(t, kv)
	assert.Equal(t, 2, second.Len())

	got, ok, err := second.GetByID(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", got.Title)
}

func TestInitializeDropsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	require.NoError(t, kv.Set(ctx, "TodoSet_Ids", []string{"a", "a", "", "b"}))

	repo := newTodoRepo(t, kv)
	assert.Equal(t, 2, repo.Len())
}

func TestGetAllSkipsIndexEntriesWithoutBody(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	core, logs := observer.New(zapcore.DebugLevel)
	repo := NewTodos(kv, zap.New(core), nil)
	require.NoError(t, repo.Initialize(ctx))

	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))
	require.NoError(t, repo.AddOrUpdate(ctx, todo("b", "two")))
	require.NoError(t, kv.Remove(ctx, "TodoSet_a"))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, 1, logs.FilterMessage("skipping index entry without body").Len())
}

func TestGetAllStorageErrorYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyStore()
	repo := newTodoRepo(t, kv)
	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))

	kv.failGet = true
	all, err := repo.GetAll(ctx)
	assert.ErrorIs(t, err, errDisk)
	assert.Empty(t, all)
}

func TestGetByIDUnknown(t *testing.T) {
	repo := newTodoRepo(t, store.NewMemory())
	_, ok, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteRemovesIndexAndBody(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := newTodoRepo(t, kv)
	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))
	require.NoError(t, repo.AddOrUpdate(ctx, todo("b", "two")))

	require.NoError(t, repo.Delete(ctx, todo("a", "one")))
	require.NoError(t, repo.DeleteByID(ctx, "never-added"))

	assert.Equal(t, []string{"TodoSet_Ids", "TodoSet_b"}, kv.Keys())
	var ids []string
	_, err := kv.Get(ctx, "TodoSet_Ids", &ids)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestDeleteBodyFailureLeavesOrphanOnly(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyStore()
	repo := newTodoRepo(t, kv)
	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))

	kv.failRemove = func(key string) bool { return key == "TodoSet_a" }
	err := repo.DeleteByID(ctx, "a")
	assert.ErrorIs(t, err, errDisk)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "orphaned body is never read back")
	assert.Contains(t, kv.Keys(), "TodoSet_a")
}

func TestDeleteIndexFailureKeepsEntity(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyStore()
	repo := newTodoRepo(t, kv)
	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))

	kv.failSet = func(key string) bool { return strings.HasSuffix(key, "_Ids") }
	assert.ErrorIs(t, repo.DeleteByID(ctx, "a"), errDisk)

	_, ok, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddIndexFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	kv := newFlakyStore()
	repo := newTodoRepo(t, kv)

	kv.failSet = func(key string) bool { return strings.HasSuffix(key, "_Ids") }
	assert.ErrorIs(t, repo.AddOrUpdate(ctx, todo("a", "one")), errDisk)
	assert.Equal(t, 0, repo.Len())
	assert.Empty(t, kv.Keys())
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	repo := newTodoRepo(t, kv)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.AddOrUpdate(ctx, todo(id, "item "+id)))
	}

	require.NoError(t, repo.ClearAll(ctx))
	assert.Equal(t, 0, repo.Len())
	assert.Equal(t, []string{"TodoSet_Ids"}, kv.Keys())

	reopened := newTodoRepo(t, kv)
	assert.Equal(t, 0, reopened.Len())
}

func TestProjectsOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	repo := NewProjects(store.NewMemory(), nil, nil)
	require.NoError(t, repo.Initialize(ctx))

	late := model.NewProject("Late", testNow.Add(time.Hour))
	early := model.NewProject("Early", testNow)
	require.NoError(t, repo.AddOrUpdate(ctx, late))
	require.NoError(t, repo.AddOrUpdate(ctx, early))

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Early", all[0].Name)
	assert.Equal(t, "Late", all[1].Name)
}

func TestRepositoriesShareStoreWithoutCollision(t *testing.T) {
	ctx := context.Background()
	kv := store.NewMemory()
	todos := newTodoRepo(t, kv)
	projects := NewProjects(kv, nil, nil)
	require.NoError(t, projects.Initialize(ctx))

	p := model.NewProject("Work", testNow)
	p.ID = "a"
	require.NoError(t, projects.AddOrUpdate(ctx, p))
	require.NoError(t, todos.AddOrUpdate(ctx, todo("a", "one")))

	require.NoError(t, todos.ClearAll(ctx))
	_, ok, err := projects.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMetricsRecordOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	kv := newFlakyStore()
	repo := NewTodos(kv, nil, metrics)
	require.NoError(t, repo.Initialize(ctx))

	require.NoError(t, repo.AddOrUpdate(ctx, todo("a", "one")))
	require.NoError(t, repo.AddOrUpdate(ctx, todo("b", "two")))
	require.Error(t, repo.AddOrUpdate(ctx, todo("c", "")))
	kv.failSet = func(string) bool { return true }
	require.Error(t, repo.AddOrUpdate(ctx, todo("d", "four")))

	ops := metrics.operations
	assert.Equal(t, 2.0, testutil.ToFloat64(ops.WithLabelValues("TodoSet", "add_or_update", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("TodoSet", "add_or_update", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("TodoSet", "add_or_update", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.indexed.WithLabelValues("TodoSet")))

	count, err := testutil.GatherAndCount(reg, "todolist_repository_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
