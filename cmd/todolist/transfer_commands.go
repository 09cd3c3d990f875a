package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"todolist/app"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every todo as a JSON document",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var exportOutput string

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load todos from an exported JSON document",
	Long: `Load todos from an exported JSON document.

Todos whose id already exists are skipped, as are todos that fail
validation. With --replace every existing todo is deleted first. Use -
to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importReplace bool

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to this file instead of stdout")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "delete existing todos before importing")
}

func runExport(cmd *cobra.Command, _ []string) error {
	return withSession(cmd, func(s *app.Session) error {
		payload, err := s.Transfer.Export(cmd.Context())
		if err != nil {
			return err
		}
		if exportOutput == "" {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\n", payload)
			return err
		}
		if err := os.WriteFile(exportOutput, append(payload, '\n'), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d todos to %s\n", len(s.Todos.Todos()), exportOutput)
		return nil
	})
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		payload []byte
		err     error
	)
	if args[0] == "-" {
		payload, err = io.ReadAll(cmd.InOrStdin())
	} else {
		payload, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	return withSession(cmd, func(s *app.Session) error {
		result := s.Transfer.Import(cmd.Context(), payload, importReplace)
		if !result.Success {
			if result.ImportedCount > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d todos before the failure\n", result.ImportedCount)
			}
			return errors.New(result.ErrorMessage)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d todos, skipped %d\n", result.ImportedCount, result.SkippedCount)
		return nil
	})
}
