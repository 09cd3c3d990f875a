package main

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"todolist/app"
	"todolist/config"
	"todolist/logging"
)

// withSession opens the configured store, runs fn against a loaded
// session and releases everything afterwards.
func withSession(cmd *cobra.Command, fn func(*app.Session) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		_ = logging.Sync(log)
		err = errors.Join(err, closeLog())
	}()

	opts := app.SessionOptions{Logger: log}
	var registry *prometheus.Registry
	if rootMetricsFile != "" {
		registry = prometheus.NewRegistry()
		opts.Registry = registry
	}

	session, err := app.OpenSession(cmd.Context(), cfg.Storage, opts)
	if err != nil {
		return err
	}
	log.Debug("session opened",
		zap.String("command", cmd.CommandPath()),
		zap.String("backend", cfg.Storage.Backend))

	err = fn(session)
	err = errors.Join(err, session.Close())
	if registry != nil {
		if writeErr := prometheus.WriteToTextfile(rootMetricsFile, registry); writeErr != nil {
			err = errors.Join(err, fmt.Errorf("write metrics: %w", writeErr))
		}
	}
	return err
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, err
	}
	if rootStorePath != "" {
		cfg.Storage.Path = rootStorePath
	}
	if rootLogLevel != "" {
		cfg.Log.Level = rootLogLevel
	}
	return cfg, nil
}
