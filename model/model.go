// Package model holds the todo and project entities shared by the storage,
// service and presentation layers.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectColor is the mid-gray used when a project has no color.
const DefaultProjectColor = "#6c757d"

// Entity is anything the repository can index by ID.
type Entity interface {
	EntityID() string
	Validate() error
}

// NewID returns a fresh globally unique identifier.
func NewID() string {
	return uuid.NewString()
}

// TodoItem is an individual todo.
type TodoItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	ProjectID   string     `json:"projectId"`
}

// NewTodo returns a todo with a fresh ID, status New and priority Low.
func NewTodo(title, description string, now time.Time) TodoItem {
	return TodoItem{
		ID:          NewID(),
		Title:       title,
		Description: description,
		Priority:    PriorityLow,
		Status:      StatusNew,
		CreatedAt:   now,
	}
}

// EntityID implements Entity.
func (t TodoItem) EntityID() string {
	return t.ID
}

// IsDone reports whether the todo is in the Done status.
func (t TodoItem) IsDone() bool {
	return t.Status == StatusDone
}

// Clone returns a copy that shares no memory with t.
func (t TodoItem) Clone() TodoItem {
	t.StartedAt = cloneTime(t.StartedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	return t
}

// UnmarshalJSON fills fields missing from data with entity defaults.
func (t *TodoItem) UnmarshalJSON(data []byte) error {
	type plain TodoItem
	decoded := plain{Priority: PriorityLow, Status: StatusNone}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*t = TodoItem(decoded)
	return nil
}

// Project groups todos.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
	IsDefault   bool      `json:"isDefault"`
}

// NewProject returns a project with a fresh ID and the default color.
func NewProject(name string, now time.Time) Project {
	return Project{
		ID:        NewID(),
		Name:      name,
		Color:     DefaultProjectColor,
		CreatedAt: now,
	}
}

// EntityID implements Entity.
func (p Project) EntityID() string {
	return p.ID
}

// UnmarshalJSON fills a missing color with DefaultProjectColor.
func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	decoded := plain{Color: DefaultProjectColor}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Project(decoded)
	return nil
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
