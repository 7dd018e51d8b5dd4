package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/deskhive/deskhive/internal/ai"
	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/persistence"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
	"github.com/deskhive/deskhive/internal/service"
	"github.com/deskhive/deskhive/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	assignmentRepo := repository.NewAssignmentRepository(pool)

	ticketCache := cache.NewTicketCache(redis.Client, time.Duration(cfg.Queue.TicketCacheTTLSec)*time.Second)
	publisher := queue.NewPublisher(redis.Client)
	dispatcher := events.NewRedisDispatcher(redis.Client, logger)
	gateway := ai.NewGatewayClient(cfg.AI)

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		AssignmentRepo: assignmentRepo,
		Cache:          ticketCache,
		Dispatcher:     dispatcher,
		Logger:         logger,
		Metrics:        metrics,
	})
	routingService := service.NewRoutingService(service.RoutingDependencies{
		TicketRepo:  ticketRepo,
		Assignments: assignmentService,
		Cache:       ticketCache,
		Publisher:   publisher,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	classificationService := service.NewClassificationService(service.ClassificationDependencies{
		TicketRepo:   ticketRepo,
		CategoryRepo: categoryRepo,
		Classifier:   gateway,
		Router:       routingService,
		Cache:        ticketCache,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})
	autoResolutionService := service.NewAutoResolutionService(service.AutoResolutionDependencies{
		TicketRepo:   ticketRepo,
		MessageRepo:  messageRepo,
		CategoryRepo: categoryRepo,
		Resolver:     gateway,
		Enhancer:     gateway,
		Assignments:  assignmentService,
		Cache:        ticketCache,
		Publisher:    publisher,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
	})

	analysisService := service.NewAnalysisService(service.AnalysisDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		Analyzer:    gateway,
		Logger:      logger,
	})

	consumer := queue.NewConsumer(redis.Client, logger, metrics, cfg.Queue)
	replies := worker.NewChannelNotifier(ticketRepo, customerRepo, cfg.Notification, logger)
	pipeline := worker.NewPipeline(worker.PipelineDependencies{
		Consumer:       consumer,
		Classification: classificationService,
		AutoResolution: autoResolutionService,
		Assignments:    assignmentService,
		Analysis:       analysisService,
		Replies:        replies,
		Logger:         logger,
	})
	pipeline.Register()

	sweeper := worker.NewSweeper(worker.SweeperDependencies{
		TicketRepo: ticketRepo,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Config:     cfg.SLA,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("failed to start sweeper", zap.Error(err))
	}

	go pipeline.Run(ctx)
	logger.Info("worker started")

	waitForShutdown(logger)
	cancel()
	sweeper.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
