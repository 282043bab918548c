package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gartstein/hr/internal/hr/config"
	"github.com/gartstein/hr/internal/hr/controller"
	"github.com/gartstein/hr/internal/hr/db"
	"github.com/gartstein/hr/internal/hr/db/bulk"
	"github.com/gartstein/hr/internal/hr/dispatch"
	"github.com/gartstein/hr/internal/hr/events"
	"github.com/gartstein/hr/internal/hr/filestore"
	"github.com/gartstein/hr/internal/hr/handlers"
	"github.com/gartstein/hr/internal/hr/importer"
	"github.com/gartstein/hr/internal/hr/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// eventPartitions is used when the events topic has to be created.
const eventPartitions = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger := initLogger("info")
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger := initLogger(cfg.LogLevel)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	repo, err := db.NewRepository(cfg.Database())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	publisher, closePublisher := initPublisher(cfg, logger)
	defer closePublisher()

	files, err := filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		logger.Fatal("failed to initialize upload store", zap.Error(err))
	}

	var writer importer.BatchWriter = repo
	if cfg.BulkCopy {
		bw, err := bulk.Connect(context.Background(), cfg.Database().DSN())
		if err != nil {
			logger.Fatal("failed to initialize bulk writer", zap.Error(err))
		}
		defer bw.Close()
		writer = bw
	}

	runner := importer.NewRunner(
		importer.Config{BatchSize: cfg.ImportBatchSize, RetryDelay: cfg.ImportRetryDelay},
		repo, repo, writer, files, publisher, m, logger,
	)
	dispatcher := initDispatcher(cfg, runner, m, logger)

	importSvc := controller.NewImportService(repo, files, dispatcher, logger)
	if cfg.Dispatcher == config.DispatcherMemory {
		if _, err := importSvc.ResumePending(context.Background()); err != nil {
			logger.Error("failed to resume pending imports", zap.Error(err))
		}
	}

	h := handlers.NewHandler(handlers.Controllers{
		Companies: controller.NewCompanyService(repo, publisher, logger),
		Users:     controller.NewUserService(repo, publisher, logger),
		Employees: controller.NewEmployeeService(repo, publisher, logger),
		Imports:   importSvc,
		Auth:      controller.NewAuthService(repo, cfg.JWTSecret, cfg.JWTTTL, logger),
	}, cfg.MaxUploadKB<<10, logger)

	httpHandler, err := handlers.NewHTTPHandler(h, handlers.Options{
		JWTSecret:      cfg.JWTSecret,
		Metrics:        m,
		Ready:          repo.Ping,
		MetricsHandler: m.Handler(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to register HTTP routes", zap.Error(err))
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger)
	server.RegisterHTTPHandler(httpHandler)

	healthCtx, stopHealth := context.WithCancel(context.Background())
	defer stopHealth()
	go server.WatchHealth(healthCtx, repo.Ping, cfg.HealthInterval)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Failed to start servers", zap.Error(err))
		}
	}()

	waitForShutdown(server, dispatcher, cfg.ShutdownTimeout, logger)
}

// initLogger initializes a Zap production logger at level.
func initLogger(level string) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zcfg.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

// initPublisher returns the Kafka event producer, or a no-op one when
// events are disabled.
func initPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, func()) {
	if !cfg.EventsEnabled {
		logger.Info("event publishing disabled")
		return events.NopPublisher{}, func() {}
	}
	if err := events.EnsureTopic(cfg.KafkaBrokers, cfg.Topic, eventPartitions, logger); err != nil {
		logger.Warn("failed to ensure events topic", zap.Error(err))
	}
	producer := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	return producer, producer.Close
}

func initDispatcher(cfg *config.Config, exec dispatch.Executor, m *metrics.Metrics, logger *zap.Logger) dispatch.Dispatcher {
	if cfg.Dispatcher == config.DispatcherKafka {
		if err := events.EnsureTopic(cfg.KafkaBrokers, cfg.ImportTopic, cfg.ImportWorkers, logger); err != nil {
			logger.Warn("failed to ensure import topic", zap.Error(err))
		}
		q := dispatch.NewKafkaQueue(cfg.KafkaBrokers, cfg.ImportTopic, cfg.ImportGroup, exec, logger)
		q.Start()
		return q
	}
	return dispatch.NewPool(exec, cfg.ImportWorkers, cfg.ImportQueueSize, m, logger)
}

// waitForShutdown blocks until an interrupt or SIGTERM is received, then
// stops the servers and lets running imports finish within timeout.
func waitForShutdown(server *handlers.Server, dispatcher dispatch.Dispatcher, timeout time.Duration, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	server.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	switch err := dispatcher.Stop(ctx); {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("import jobs cancelled at shutdown")
	case err != nil:
		logger.Error("failed to stop import dispatcher", zap.Error(err))
	}
	logger.Info("Servers stopped properly")
}
