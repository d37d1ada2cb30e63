package main

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ANTOSOJAN/task-management-system/config"
	"github.com/ANTOSOJAN/task-management-system/logging"
)

var envFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Shared task boards with owners, members and tasks",
		Long: `taskboard serves shared task boards over HTTP.

Running it without a subcommand starts the server. Configuration is read from
the environment, optionally seeded from a .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.AddCommand(newServeCmd(), newInitStorageCmd())
	return root
}

// setup reads the configuration and configures the standard logger, which
// every package logs through.
func setup() (*config.Config, *log.Logger, io.Closer, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := log.StandardLogger()
	closer, err := logging.Setup(logger, logging.Options{
		Debug:      cfg.Debug,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}
