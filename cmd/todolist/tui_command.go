package main

import (
	"errors"

	"github.com/spf13/cobra"

	"todolist/app"
	"todolist/store"
	"todolist/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive two-pane interface",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if !interactiveTerminal() {
		return errors.New("tui requires an interactive terminal")
	}
	return withSession(cmd, func(s *app.Session) error {
		status := ""
		if f, ok := s.Store.(*store.File); ok {
			status = f.RecoveryMessage()
		}
		return tui.Run(cmd.Context(), s, status)
	})
}
