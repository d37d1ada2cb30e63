package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ANTOSOJAN/task-management-system/api"
	"github.com/ANTOSOJAN/task-management-system/config"
	"github.com/ANTOSOJAN/task-management-system/domain"
	"github.com/ANTOSOJAN/task-management-system/events"
	"github.com/ANTOSOJAN/task-management-system/storage"
	"github.com/ANTOSOJAN/task-management-system/storage/memory"
	"github.com/ANTOSOJAN/task-management-system/storage/mongostore"
	"github.com/ANTOSOJAN/task-management-system/storage/tables"
	"github.com/ANTOSOJAN/task-management-system/tracing"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, logger, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Install(logger)
	defer shutdownTracing(context.Background())

	base, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer closeStore()

	var store domain.Store = storage.NewBreaker(base, storage.BreakerSettings{
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, logger)

	var opts []domain.Option
	if cfg.RedisConn != "" {
		rc := redis.NewClient(config.RedisOptions(cfg.RedisConn))
		defer rc.Close()
		store = storage.NewCache(store, rc, cfg.CacheTTL, logger)
		if cfg.TitleClaimTTL > 0 {
			opts = append(opts, domain.WithTitleClaims(storage.NewTitleClaims(rc, cfg.TitleClaimTTL)))
		}
	} else {
		logger.Info("redis not configured; creator lookups are uncached and title claims are off")
	}

	pub, closePub, err := openPublisher(cfg)
	if err != nil {
		return fmt.Errorf("events: %w", err)
	}
	defer closePub()
	if pub != nil {
		d := events.NewDispatcher(pub, events.Config{
			Workers: cfg.EventsWorkers,
			Buffer:  cfg.EventsBuffer,
			Timeout: cfg.EventsTimeout,
		}, logger)
		defer d.Close()
		opts = append(opts, domain.WithActivityEmitter(d))
	}

	svc := domain.NewService(store, logger, opts...)

	verifier, closeVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}
	defer closeVerifier()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	health := func(ctx context.Context) error { return storage.Ping(ctx, store) }
	page := api.PageConfig{
		FirebaseAPIKey:     cfg.FirebaseAPIKey,
		FirebaseAuthDomain: cfg.FirebaseAuthDomain,
		FirebaseProjectID:  cfg.FirebaseProjectID,
	}
	if err := api.Register(e, svc, verifier, health, page, logger); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- e.Start(":" + cfg.Port) }()
	logger.WithFields(log.Fields{"port": cfg.Port, "store": cfg.StoreBackend, "events": cfg.EventsBackend}).Info("taskboard listening")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (domain.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using the in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil
	case config.BackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		s, err := mongostore.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				log.WithError(err).Warn("mongo disconnect failed")
			}
		}
		return s, closeFn, nil
	default:
		s, err := tables.New(cfg.StorageConn, tableNames(cfg))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

func tableNames(cfg *config.Config) tables.Tables {
	return tables.Tables{Users: cfg.UsersTable, Boards: cfg.BoardsTable, Tasks: cfg.TasksTable}
}

// openPublisher returns a nil publisher when activity events are disabled.
func openPublisher(cfg *config.Config) (events.Publisher, func(), error) {
	switch cfg.EventsBackend {
	case config.EventsQueue:
		p, err := events.NewQueuePublisher(cfg.StorageConn, cfg.EventsQueue)
		if err != nil {
			return nil, func() {}, err
		}
		return p, func() {}, nil
	case config.EventsNATS:
		p, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, func() {}, err
		}
		return p, p.Close, nil
	default:
		return nil, func() {}, nil
	}
}

func newVerifier(cfg *config.Config, logger *log.Logger) (api.Verifier, func(), error) {
	if cfg.LocalAuth() {
		logger.Warn("LOCAL_AUTH_MODE=hs256: accepting locally signed tokens")
		return api.NewLocalAuth([]byte(cfg.LocalAuthSecret)), func() {}, nil
	}
	jwks, err := keyfunc.Get(api.FirebaseJWKSURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.WithError(err).Warn("jwks refresh failed")
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return api.NewAuth(jwks, cfg.FirebaseProjectID, cfg.JWKSCacheTTL), jwks.EndBackground, nil
}
