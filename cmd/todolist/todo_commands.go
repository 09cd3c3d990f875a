package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"todolist/app"
	"todolist/model"
)

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a todo",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var (
	addDescription string
	addPriority    string
	addProject     string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Long: `List todos, newest first unless --sort says otherwise.

--sort takes key[:asc|desc] and may be repeated; the first one is the
primary order and the rest break ties. Keys are createdAt, priority and
status.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listProject    string
	listSearch     string
	listPriorities []string
	listStatuses   []string
	listSort       []string
)

var showCmd = &cobra.Command{
	Use:   "show <id>...",
	Short: "Show todo details",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShow,
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change the status of a todo",
	Long: `Change the status of a todo.

Statuses are none, new, in_progress, done, abandoned and archived. The
start time is recorded the first time a todo enters in_progress, the
completion time the first time it enters done.`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete one or more todos",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every todo, or every todo of one project",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

var clearProject string

func init() {
	rootCmd.AddCommand(addCmd, listCmd, showCmd, statusCmd, deleteCmd, clearCmd)

	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "todo description (required)")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "low", "priority: low, medium, high or emergency")
	addCmd.Flags().StringVar(&addProject, "project", "", "project id, id prefix or name")
	addDescriptionFlagAliases(addCmd)

	listCmd.Flags().StringVar(&listProject, "project", "", "only todos of this project")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "case-insensitive text in title or description")
	listCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "only these priorities (repeatable)")
	listCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "only these statuses (repeatable)")
	listCmd.Flags().StringSliceVar(&listSort, "sort", nil, "sort criterion key[:asc|desc] (repeatable)")

	clearCmd.Flags().StringVar(&clearProject, "project", "", "only todos of this project")
}

func runAdd(cmd *cobra.Command, args []string) error {
	priority, err := model.ParsePriority(addPriority)
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *app.Session) error {
		projectID, err := resolveProjectID(s, addProject)
		if err != nil {
			return err
		}
		todo, err := s.Todos.CreateTodo(cmd.Context(), args[0], addDescription, priority, projectID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created todo %s: %s\n", shortID(todo.ID), todo.Title)
		return nil
	})
}

func runList(cmd *cobra.Command, _ []string) error {
	criteria, err := listCriteria()
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *app.Session) error {
		projectID, err := resolveProjectID(s, listProject)
		if err != nil {
			return err
		}
		names := projectNames(s)

		var rows [][]string
		for t := range s.Todos.FilteredAndSorted(criteria, projectID) {
			rows = append(rows, []string{
				shortID(t.ID),
				t.Status.Label(),
				t.Priority.Label(),
				orDash(names[t.ProjectID]),
				t.Title,
			})
		}

		out := cmd.OutOrStdout()
		if len(rows) == 0 {
			fmt.Fprintln(out, "No todos found.")
		} else {
			fmt.Fprint(out, formatTable([]string{"ID", "STATUS", "PRIORITY", "PROJECT", "TITLE"}, rows))
		}
		fmt.Fprintf(out, "\n%d active, %d completed\n", s.Todos.ActiveCount(projectID), s.Todos.CompletedCount(projectID))
		return nil
	})
}

func listCriteria() (model.TodoFilterCriteria, error) {
	c := model.TodoFilterCriteria{SearchText: listSearch}
	for _, v := range listPriorities {
		p, err := model.ParsePriority(v)
		if err != nil {
			return c, err
		}
		if !slices.Contains(c.Priorities, p) {
			c.TogglePriority(p)
		}
	}
	for _, v := range listStatuses {
		st, err := model.ParseStatus(v)
		if err != nil {
			return c, err
		}
		if !slices.Contains(c.Statuses, st) {
			c.ToggleStatus(st)
		}
	}
	for _, v := range listSort {
		sc, err := model.ParseSortCriterion(v)
		if err != nil {
			return c, err
		}
		c.Sort = append(c.Sort, sc)
	}
	return c, nil
}

const detailLineWidth = 80

func runShow(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		names := projectNames(s)
		out := cmd.OutOrStdout()
		for i, ref := range args {
			t, err := lookupTodo(s, ref)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "ID:        %s\n", t.ID)
			fmt.Fprintf(out, "Title:     %s\n", t.Title)
			fmt.Fprintf(out, "Status:    %s\n", t.Status.Label())
			fmt.Fprintf(out, "Priority:  %s\n", t.Priority.Label())
			fmt.Fprintf(out, "Project:   %s\n", orDash(names[t.ProjectID]))
			fmt.Fprintf(out, "Created:   %s\n", formatTime(t.CreatedAt))
			if t.StartedAt != nil {
				fmt.Fprintf(out, "Started:   %s\n", formatTime(*t.StartedAt))
			}
			if t.CompletedAt != nil {
				fmt.Fprintf(out, "Completed: %s\n", formatTime(*t.CompletedAt))
			}
			fmt.Fprintf(out, "\nDescription:\n%s\n", renderMarkdown(t.Description, detailLineWidth))
		}
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	status, err := model.ParseStatus(args[1])
	if err != nil {
		return err
	}

	return withSession(cmd, func(s *app.Session) error {
		t, err := lookupTodo(s, args[0])
		if err != nil {
			return err
		}
		updated, err := s.Todos.UpdateStatus(cmd.Context(), t, status)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", shortID(updated.ID), updated.Title, updated.Status.Label())
		return nil
	})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		for _, ref := range args {
			t, err := lookupTodo(s, ref)
			if err != nil {
				return err
			}
			if err := s.Todos.DeleteTodo(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted todo %s: %s\n", shortID(t.ID), t.Title)
		}
		return nil
	})
}

func runClear(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(s *app.Session) error {
		projectID, err := resolveProjectID(s, clearProject)
		if err != nil {
			return err
		}
		n := s.Todos.ActiveCount(projectID) + s.Todos.CompletedCount(projectID)
		if err := s.Todos.ClearAll(cmd.Context(), projectID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d todos\n", n)
		return nil
	})
}

func lookupTodo(s *app.Session, ref string) (model.TodoItem, error) {
	t, err := s.Todos.Todo(ref)
	if err != nil {
		return model.TodoItem{}, fmt.Errorf("%w: %s", err, ref)
	}
	return t, nil
}

// resolveProjectID maps a project reference to its ID. Empty stays empty.
func resolveProjectID(s *app.Session, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	p, err := lookupProject(s, ref)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func projectNames(s *app.Session) map[string]string {
	names := make(map[string]string)
	for _, p := range s.Projects.Projects() {
		names[p.ID] = p.Name
	}
	return names
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
