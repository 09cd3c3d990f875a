package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"todolist/app"
	"todolist/model"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectAdd,
}

var (
	projectAddDescription string
	projectAddColor       string
	projectAddDefault     bool
)

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects in creation order",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project",
	Long: `Delete a project by id, id prefix or name.

Its todos are kept and left pointing at the deleted project unless
--with-todos is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectDelete,
}

var projectDeleteWithTodos bool

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectListCmd, projectDeleteCmd)

	projectAddCmd.Flags().StringVarP(&projectAddDescription, "description", "d", "", "project description")
	projectAddCmd.Flags().StringVar(&projectAddColor, "color", "", "display color, e.g. #0d6efd (default "+model.DefaultProjectColor+")")
	projectAddCmd.Flags().BoolVar(&projectAddDefault, "default", false, "select this project on startup")
	addDescriptionFlagAliases(projectAddCmd)

	projectDeleteCmd.Flags().BoolVar(&projectDeleteWithTodos, "with-todos", false, "also delete the project's todos")
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		p, err := s.Projects.CreateProject(cmd.Context(), args[0], projectAddDescription, projectAddColor)
		if err != nil {
			return err
		}
		if projectAddDefault {
			p.IsDefault = true
			if err := s.Projects.SaveProject(cmd.Context(), p); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s: %s\n", shortID(p.ID), p.Name)
		return nil
	})
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(s *app.Session) error {
		projects := s.Projects.Projects()
		out := cmd.OutOrStdout()
		if len(projects) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}

		todos := s.Todos.Todos()
		rows := make([][]string, 0, len(projects))
		for _, p := range projects {
			isDefault := ""
			if p.IsDefault {
				isDefault = "yes"
			}
			rows = append(rows, []string{
				shortID(p.ID),
				p.Name,
				strconv.Itoa(s.Projects.TodoCount(p.ID, todos)),
				orDash(isDefault),
				orDash(p.Description),
			})
		}
		fmt.Fprint(out, formatTable([]string{"ID", "NAME", "TODOS", "DEFAULT", "DESCRIPTION"}, rows))
		return nil
	})
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	return withSession(cmd, func(s *app.Session) error {
		p, err := lookupProject(s, args[0])
		if err != nil {
			return err
		}
		if projectDeleteWithTodos {
			n := s.Projects.TodoCount(p.ID, s.Todos.Todos())
			if err := s.DeleteProjectWithTodos(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s and %d todos\n", p.Name, n)
			return nil
		}
		if err := s.Projects.DeleteProject(cmd.Context(), p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", p.Name)
		return nil
	})
}

func lookupProject(s *app.Session, ref string) (model.Project, error) {
	p, err := s.Projects.Project(ref)
	if err != nil {
		return model.Project{}, fmt.Errorf("%w: %s", err, ref)
	}
	return p, nil
}
