package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	demandservice "subroflow/contexts/subrogation/demand-service"
	"subroflow/contexts/subrogation/demand-service/adapters/memory"
	"subroflow/contexts/subrogation/demand-service/adapters/pdf"
	postgresadapter "subroflow/contexts/subrogation/demand-service/adapters/postgres"
	"subroflow/contexts/subrogation/demand-service/ports"
	"subroflow/internal/platform/blobstore"
	"subroflow/internal/platform/config"
	"subroflow/internal/platform/db"
	"subroflow/internal/platform/email"
	"subroflow/internal/platform/httpserver"
	"subroflow/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres   *db.Postgres
	module     demandservice.Module
	subscriber ports.QueueSubscriber
	logger     *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	pg, module, err := buildModule(cfg, logger)
	if err != nil {
		return nil, err
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")

	pg, module, err := buildModule(cfg, logger)
	if err != nil {
		return nil, err
	}

	subscriber, err := buildSubscriber(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		postgres:   pg,
		module:     module,
		subscriber: subscriber,
		logger:     logger,
	}, nil
}

func buildModule(cfg config.Config, logger *slog.Logger) (*db.Postgres, demandservice.Module, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, demandservice.Module{}, errors.New("POSTGRES_DSN is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, demandservice.Module{}, err
	}
	repo := postgresadapter.NewRepository(pg.DB, logger)

	objects, err := buildObjectStore(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, demandservice.Module{}, err
	}
	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		_ = pg.Close()
		return nil, demandservice.Module{}, err
	}

	module := demandservice.NewModule(demandservice.Dependencies{
		Cases:          repo,
		Packages:       repo,
		Communications: repo,
		Objects:        objects,
		Queue:          publisher,
		Email:          buildEmailSender(cfg, logger),
		Renderer:       pdf.NewCoverRenderer(),
		Clock:          postgresadapter.SystemClock{},
		IDGenerator:    postgresadapter.UUIDGenerator{},
		FromAddress:    cfg.FromAddress,
		FromName:       cfg.FromName,
		Logger:         logger,
	})
	return pg, module, nil
}

func buildObjectStore(cfg config.Config, logger *slog.Logger) (ports.ObjectStore, error) {
	if strings.TrimSpace(cfg.StorageBucket) == "" {
		logger.Warn("storage bucket not configured, using in-memory object store",
			"event", "bootstrap_memory_object_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return memory.NewBlobStore(), nil
	}
	return blobstore.NewGCS(context.Background(), cfg.StorageBucket, logger)
}

func buildPublisher(cfg config.Config, logger *slog.Logger) (ports.QueuePublisher, error) {
	switch cfg.QueueTransport {
	case config.QueueTransportKafka:
		return messaging.NewKafka(cfg.KafkaBrokers, cfg.MaxRedeliveries, logger)
	case config.QueueTransportDisabled:
		logger.Warn("queue transport disabled, sends will be dropped",
			"event", "bootstrap_queue_disabled",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return messaging.DisabledPublisher{Logger: logger}, nil
	default:
		return messaging.NewBus(cfg.MaxRedeliveries, logger), nil
	}
}

func buildSubscriber(cfg config.Config, logger *slog.Logger) (ports.QueueSubscriber, error) {
	switch cfg.QueueTransport {
	case config.QueueTransportKafka:
		return messaging.NewKafka(cfg.KafkaBrokers, cfg.MaxRedeliveries, logger)
	case config.QueueTransportDisabled:
		return nil, errors.New("worker requires a queue transport, QUEUE_TRANSPORT is disabled")
	default:
		// The in-process bus only pairs with a publisher in the same
		// process; a standalone worker needs kafka.
		logger.Warn("worker using in-process queue, only same-process sends arrive",
			"event", "bootstrap_worker_memory_queue",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		return messaging.NewBus(cfg.MaxRedeliveries, logger), nil
	}
}

func buildEmailSender(cfg config.Config, logger *slog.Logger) ports.EmailSender {
	if strings.TrimSpace(cfg.SMTPHost) == "" {
		return email.NoopSender{Logger: logger}
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, logger)
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.module.PDFConsumer.Start(ctx, w.subscriber); err != nil {
		return err
	}
	if err := w.module.EmailConsumer.Start(ctx, w.subscriber); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)

	<-ctx.Done()
	return nil
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
