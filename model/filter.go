package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the field a SortCriterion orders by.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByPriority  SortKey = "priority"
	SortByStatus    SortKey = "status"
)

// SortCriterion is one link of a primary-then-tiebreak sort chain.
type SortCriterion struct {
	Key        SortKey `json:"key"`
	Descending bool    `json:"descending"`
}

// DefaultSort orders newest first.
func DefaultSort() []SortCriterion {
	return []SortCriterion{{Key: SortByCreatedAt, Descending: true}}
}

// Compare orders a and b by the criterion's key and direction.
// Unknown keys order by creation time.
func (c SortCriterion) Compare(a, b TodoItem) int {
	var result int
	switch c.Key {
	case SortByPriority:
		result = cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
	case SortByStatus:
		result = cmp.Compare(a.Status.Rank(), b.Status.Rank())
	default:
		result = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c.Descending {
		return -result
	}
	return result
}

func (c SortCriterion) String() string {
	dir := "asc"
	if c.Descending {
		dir = "desc"
	}
	return string(c.Key) + ":" + dir
}

// ParseSortCriterion parses "key" or "key:asc|desc", e.g. "priority:desc".
func ParseSortCriterion(s string) (SortCriterion, error) {
	name, dir, _ := strings.Cut(strings.TrimSpace(s), ":")
	var c SortCriterion
	switch enumKey(name) {
	case "createdat", "created", "":
		c.Key = SortByCreatedAt
	case "priority":
		c.Key = SortByPriority
	case "status":
		c.Key = SortByStatus
	default:
		return SortCriterion{}, fmt.Errorf("unknown sort key %q", name)
	}
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "", "asc":
	case "desc":
		c.Descending = true
	default:
		return SortCriterion{}, fmt.Errorf("unknown sort direction %q", dir)
	}
	return c, nil
}

// TodoFilterCriteria describes which todos to show and in what order.
// Empty priority or status sets disable that filter.
type TodoFilterCriteria struct {
	SearchText string          `json:"searchText"`
	Priorities []Priority      `json:"priorities"`
	Statuses   []Status        `json:"statuses"`
	Sort       []SortCriterion `json:"sort"`
}

// HasActiveFilters reports whether any filter (not sort) is set.
func (c TodoFilterCriteria) HasActiveFilters() bool {
	return strings.TrimSpace(c.SearchText) != "" || len(c.Priorities) > 0 || len(c.Statuses) > 0
}

// Clear resets every filter. The sort chain is kept.
func (c *TodoFilterCriteria) Clear() {
	c.SearchText = ""
	c.Priorities = nil
	c.Statuses = nil
}

// TogglePriority adds p to the priority set, or removes it if present.
func (c *TodoFilterCriteria) TogglePriority(p Priority) {
	if i := slices.Index(c.Priorities, p); i >= 0 {
		c.Priorities = slices.Delete(c.Priorities, i, i+1)
		return
	}
	c.Priorities = append(c.Priorities, p)
}

// ToggleStatus adds s to the status set, or removes it if present.
func (c *TodoFilterCriteria) ToggleStatus(s Status) {
	if i := slices.Index(c.Statuses, s); i >= 0 {
		c.Statuses = slices.Delete(c.Statuses, i, i+1)
		return
	}
	c.Statuses = append(c.Statuses, s)
}

// SortChain returns the configured sort criteria, or DefaultSort when none are set.
func (c TodoFilterCriteria) SortChain() []SortCriterion {
	if len(c.Sort) == 0 {
		return DefaultSort()
	}
	return c.Sort
}
