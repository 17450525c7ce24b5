package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"kada-commute/internal/commuteapi"
	"kada-commute/internal/config"
	"kada-commute/internal/handler"
	"kada-commute/internal/repository"
	"kada-commute/internal/service"
	"kada-commute/internal/session"
	"kada-commute/pkg/telegram"
)

func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Запустить Telegram бота",
		Run: func(cmd *cobra.Command, args []string) {
			runBot()
		},
	}
}

func runBot() {
	logrus.Info("Initializing config...")
	cfg := config.GetBotConfig()
	cfg.ApplyLogLevel()
	logrus.Info("Config initialized...")

	// Инициализируем SQLite базу данных
	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logrus.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		logrus.Fatal("Failed to get database instance:", err)
	}

	consoleRepo, err := repository.NewGormConsoleRepository(db)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create console repository")
	}

	api := commuteapi.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)

	sessionService := service.NewSessionService(api, session.NewStore())
	attendanceService := service.NewAttendanceService(api)
	historyService := service.NewHistoryService(api)
	consoleService := service.NewConsoleService(consoleRepo)
	if lines, err := consoleService.Lines(); err != nil {
		logrus.WithError(err).Warn("Failed to count console lines")
	} else {
		logrus.Infof("Console history: %d lines", lines)
	}

	// Создаем клиент Telegram
	client, err := telegram.NewClient(cfg.TelegramToken, cfg.BotDebug)
	if err != nil {
		logrus.Fatal("Failed to create Telegram client:", err)
	}

	logrus.Infof("Authorized on account %s", client.Bot.Self.UserName)

	botHandler := handler.NewHandler(
		client.Bot,
		sessionService,
		attendanceService,
		historyService,
		consoleService,
		cfg,
	)

	// Обработка сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Поток логов один на процесс, от входа пользователей не зависит
	go consoleService.Run(ctx, api)
	go botHandler.RunConsole(ctx, handler.ConsoleRefresh)

	updates := client.Updates()
	updatesDone := make(chan struct{})
	go func() {
		defer close(updatesDone)
		botHandler.HandleUpdates(ctx, updates)
	}()

	logrus.Info("Bot started. Press Ctrl+C to stop.")
	<-ctx.Done()

	client.Stop()
	// новые обработчики больше не запускаются, дожидаемся начатых
	<-updatesDone
	botHandler.Wait()

	// Закрываем соединение с БД
	if err := sqlDB.Close(); err != nil {
		logrus.Infof("Error closing database: %v", err)
	}

	logrus.Info("Bot stopped gracefully")
}
