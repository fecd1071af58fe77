package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jasperfordesq-ai/nexus-broker/internal/config"
	"github.com/jasperfordesq-ai/nexus-broker/internal/db"
	httpRouter "github.com/jasperfordesq-ai/nexus-broker/internal/http/router"
	"github.com/jasperfordesq-ai/nexus-broker/internal/infrastructure/events"
	"github.com/jasperfordesq-ai/nexus-broker/internal/infrastructure/persistence"
	"github.com/jasperfordesq-ai/nexus-broker/internal/interface/http/handler"
	"github.com/jasperfordesq-ai/nexus-broker/internal/logger"
	"github.com/jasperfordesq-ai/nexus-broker/internal/service"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/brokerconfig"
	"github.com/jasperfordesq-ai/nexus-broker/internal/usecase/moderation"
	"github.com/jasperfordesq-ai/nexus-broker/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}
	lg := logger.Get()

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(dbConn, cfg.MigrationsPath); err != nil {
		lg.Fatalf("main: ошибка миграций: %v", err)
	}

	// Сервер только проверяет токены, выпускает их основное приложение.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, 15*time.Minute)
	cache := service.NewCacheService(time.Minute)
	defer cache.Close()

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run(ctx)

	// События модерации: брокерам в вебсокет и, если настроено, в Kafka.
	dispatcher := events.NewDispatcher().Add("ws", events.NewHubPublisher(hub))
	var kafkaPublisher *events.KafkaPublisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = events.NewKafkaPublisher(
			events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic),
			events.BreakerSettings{MaxFailures: cfg.BreakerMaxFailures, Timeout: cfg.BreakerTimeout},
		)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				lg.WithError(err).Warn("main: ошибка закрытия kafka writer")
			}
		}()
		dispatcher.Add("kafka", kafkaPublisher)
		lg.WithField("topic", cfg.KafkaTopic).Info("main: публикация событий в Kafka включена")
	}

	// Репозитории.
	copyRepo := persistence.NewMessageCopyRepositoryAdapter(dbConn)
	threadRepo := persistence.NewThreadRepositoryAdapter(dbConn)
	archiveRepo := persistence.NewArchiveRepositoryAdapter(dbConn)
	configRepo := persistence.NewBrokerConfigRepositoryAdapter(dbConn)
	uow := persistence.NewUnitOfWork(dbConn)

	// Use cases.
	getConfigUC := brokerconfig.NewGetBrokerConfigUseCase(configRepo, cache, cfg.ConfigCacheTTL)
	updateConfigUC := brokerconfig.NewUpdateBrokerConfigUseCase(configRepo, getConfigUC, cache)

	// HTTP хэндлеры.
	handlers := httpRouter.Handlers{
		Health: handler.NewHealthHandler(dbConn, breakerReporter(kafkaPublisher)),
		WS:     handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Messages: handler.NewBrokerMessageHandler(
			moderation.NewListCopiesUseCase(copyRepo),
			moderation.NewGetCopyUseCase(copyRepo, threadRepo),
			moderation.NewCopyStatsUseCase(copyRepo),
			moderation.NewMarkReviewedUseCase(uow, getConfigUC, dispatcher),
			moderation.NewFlagCopyUseCase(uow, getConfigUC, dispatcher),
			moderation.NewApproveAndArchiveUseCase(uow, getConfigUC, dispatcher),
		),
		Archives: handler.NewBrokerArchiveHandler(
			moderation.NewListArchivesUseCase(archiveRepo),
			moderation.NewGetArchiveUseCase(archiveRepo),
		),
		Config: handler.NewBrokerConfigHandler(getConfigUC, updateConfigUC),
	}

	engine := httpRouter.SetupRouter(cfg, handlers, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	lg.Infof("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lg.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// breakerReporter не даёт nil указателю превратиться в непустой интерфейс.
func breakerReporter(p *events.KafkaPublisher) handler.BreakerReporter {
	if p == nil {
		return nil
	}
	return p
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
