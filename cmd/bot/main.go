package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/lesson_bot/internal/api"
	"github.com/Freeeeeet/lesson_bot/internal/app"
	"github.com/Freeeeeet/lesson_bot/internal/config"
	"github.com/Freeeeeet/lesson_bot/internal/controller"
	"github.com/Freeeeeet/lesson_bot/internal/meet"
	"github.com/Freeeeeet/lesson_bot/internal/notify"
	"github.com/Freeeeeet/lesson_bot/internal/repository"
	"github.com/Freeeeeet/lesson_bot/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting lesson bot",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Location.String()),
		zap.String("meet_provider", cfg.MeetProvider))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Lesson bot stopped with error", zap.Error(err))
	}
	logger.Info("Lesson bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("Failed to close migrator", zap.Error(err))
	}

	// Репозитории
	lessonRepo := repository.NewLessonRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	userRepo := repository.NewUserRepository(pool)

	// Интеграции
	var provider meet.Provider = meet.DisabledProvider{}
	if cfg.MeetProvider == config.MeetProviderStub {
		provider = meet.NewStubProvider(logger.Named("meet"))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(cfg.Location, logger.Named("notify"))
	if cfg.SendgridAPIKey != "" {
		notifier = notify.NewSendgridNotifier(cfg.SendgridAPIKey, cfg.MailFrom, cfg.Location, logger.Named("notify"))
	}

	// Сервисы
	lookup := service.NewLookupService(studentRepo, userRepo)
	lessonService := service.NewLessonService(service.LessonServiceOptions{
		Lessons:       lessonRepo,
		Students:      studentRepo,
		Users:         userRepo,
		Lookup:        lookup,
		Meet:          provider,
		Notifier:      notifier,
		Location:      cfg.Location,
		WhiteboardURL: cfg.WhiteboardURL,
		Logger:        logger.Named("lessons"),
	})
	userService := service.NewUserService(userRepo, logger)
	studentService := service.NewStudentService(studentRepo, userRepo, logger)
	calendarService := service.NewCalendarService(lessonRepo, studentRepo, userRepo, logger)

	// HTTP API
	server := api.NewServer(api.Options{
		Address:  cfg.HTTPAddr,
		Location: cfg.Location,
		Lessons:  lessonService,
		Students: studentService,
		Calendar: calendarService,
		Lookup:   lookup,
		Meet:     provider,
		Logger:   logger,
	})
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Фоновые задачи
	scheduler := app.NewScheduler(lessonService, cfg.AutoCompleteInterval, logger.Named("scheduler"))
	scheduler.Start(ctx)

	// Telegram бот
	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		scheduler.Stop()
		shutdown(server, logger)
		return err
	}

	botController := controller.NewBotController(b, controller.Services{
		Users:    userService,
		Lessons:  lessonService,
		Students: studentService,
		Calendar: calendarService,
		Lookup:   lookup,
	}, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Warn("Bot commands menu was not set", zap.Error(err))
	}

	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		botController.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
		err = nil
	case err = <-serverErr:
		logger.Error("HTTP API stopped", zap.Error(err))
	}

	scheduler.Stop()
	shutdown(server, logger)
	if ctx.Err() != nil {
		<-botDone
	}

	return err
}

func shutdown(server *api.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logger.Error("Failed to stop HTTP API", zap.Error(err))
	}
}
