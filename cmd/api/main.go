package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httptransport "github.com/deskhive/deskhive/internal/api/http"
	"github.com/deskhive/deskhive/internal/api/http/handlers"
	"github.com/deskhive/deskhive/internal/auth"
	"github.com/deskhive/deskhive/internal/cache"
	"github.com/deskhive/deskhive/internal/config"
	"github.com/deskhive/deskhive/internal/events"
	"github.com/deskhive/deskhive/internal/observability"
	"github.com/deskhive/deskhive/internal/persistence"
	"github.com/deskhive/deskhive/internal/queue"
	"github.com/deskhive/deskhive/internal/repository"
	"github.com/deskhive/deskhive/internal/service"
	"github.com/deskhive/deskhive/internal/ws"
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	orgRepo := repository.NewOrganizationRepository(pool)

	ticketCache := cache.NewTicketCache(redis.Client, time.Duration(cfg.Queue.TicketCacheTTLSec)*time.Second)
	publisher := queue.NewPublisher(redis.Client)
	dispatcher := events.NewRedisDispatcher(redis.Client, logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		OrgRepo:  orgRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, customerRepo)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   ticketRepo,
		MessageRepo:  messageRepo,
		CustomerRepo: customerRepo,
		CategoryRepo: categoryRepo,
		OrgRepo:      orgRepo,
		Cache:        ticketCache,
		Publisher:    publisher,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	categoryService := service.NewCategoryService(categoryRepo)
	memberService := service.NewMemberService(*cfg, service.MemberDependencies{
		UserRepo:     userRepo,
		OrgRepo:      orgRepo,
		CategoryRepo: categoryRepo,
	})

	hub := ws.NewHub(logger, metrics)
	notificationService := service.NewNotificationService(dispatcher, hub, logger)
	notificationService.RegisterHandlers()
	// Worker-side events (assignments, SLA breaches) arrive over the
	// redis channel and fan out to the hub from here.
	go dispatcher.Listen(ctx)

	wsServer := ws.NewServer(cfg.App.WSAddr(), hub, authService.TokenManager(), logger)
	go func() {
		logger.Info("websocket listener started", zap.String("addr", cfg.App.WSAddr()))
		if err := wsServer.ListenAndServe(); err != nil {
			logger.Warn("websocket listener stopped", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, authService.TokenManager()),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Members:        handlers.NewMembersHandler(memberService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		logger.Info("http listener started", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.Shutdown()
	_ = wsServer.Shutdown(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
