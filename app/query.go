package app

import (
	"slices"
	"strings"

	"todolist/model"
)

// applyCriteria filters todos by project, search text, priority set and
// status set, in that order, then sorts the survivors by the criteria's
// sort chain. todos is sorted in place and returned.
func applyCriteria(todos []model.TodoItem, c model.TodoFilterCriteria, projectID string) []model.TodoItem {
	needle := strings.ToLower(strings.TrimSpace(c.SearchText))

	out := todos[:0]
	for _, t := range todos {
		if projectID != "" && t.ProjectID != projectID {
			continue
		}
		if needle != "" && !matchesSearch(t, needle) {
			continue
		}
		if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, t.Priority) {
			continue
		}
		if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}

	sortTodos(out, c.SortChain())
	return out
}

func matchesSearch(t model.TodoItem, needle string) bool {
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}

// sortTodos applies chain as primary order plus tie-breaks. Items equal
// under every criterion keep their relative order.
func sortTodos(todos []model.TodoItem, chain []model.SortCriterion) {
	slices.SortStableFunc(todos, func(a, b model.TodoItem) int {
		for _, c := range chain {
			if r := c.Compare(a, b); r != 0 {
				return r
			}
		}
		return 0
	})
}

func inProject(t model.TodoItem, projectID string) bool {
	return projectID == "" || t.ProjectID == projectID
}
