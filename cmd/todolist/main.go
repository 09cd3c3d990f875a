// Package main implements the todolist CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "todolist",
	Short:        "Track todos grouped into projects",
	SilenceUsage: true,
}

var (
	rootConfigPath  string
	rootStorePath   string
	rootLogLevel    string
	rootMetricsFile string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootConfigPath, "config", "", "config file (default $HOME/.config/todolist/config.toml)")
	flags.StringVar(&rootStorePath, "store", "", "path of the file store (overrides config and TODOLIST_STORE)")
	flags.StringVar(&rootLogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&rootMetricsFile, "metrics-file", "", "write repository metrics in Prometheus text format to this file on exit")
}
