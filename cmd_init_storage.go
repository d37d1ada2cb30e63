package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ANTOSOJAN/task-management-system/config"
	"github.com/ANTOSOJAN/task-management-system/events"
	"github.com/ANTOSOJAN/task-management-system/storage/mongostore"
	"github.com/ANTOSOJAN/task-management-system/storage/tables"
)

func newInitStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-storage",
		Short: "Create tables, indexes and the events queue",
		Long: `init-storage prepares the configured backend: the users, boards and tasks
tables for Azure Table Storage, or the lookup indexes for MongoDB. With
EVENTS_BACKEND=queue it also creates the activity queue. Existing tables and
queues are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInitStorage(cmd.Context())
		},
	}
}

func runInitStorage(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()
	logger.WithField("store", cfg.StoreBackend).Info("storage init starting")

	switch cfg.StoreBackend {
	case config.BackendTables:
		svc, err := tables.ServiceClient(cfg.StorageConn)
		if err != nil {
			return err
		}
		if err := tables.CreateTables(ctx, svc, tableNames(cfg)); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	case config.BackendMongo:
		s, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer s.Close(context.Background())
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("create indexes: %w", err)
		}
	default:
		logger.Info("in-memory store needs no initialisation")
	}

	if cfg.EventsBackend == config.EventsQueue {
		if err := events.CreateQueue(ctx, cfg.StorageConn, cfg.EventsQueue); err != nil {
			return fmt.Errorf("create queue: %w", err)
		}
	}

	logger.Info("storage init complete")
	return nil
}
