package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"whatsapp-chat-parser/cmd/bot/config"
	"whatsapp-chat-parser/internal/bot"
	"whatsapp-chat-parser/internal/log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// Загрузка конфигурации бота
	cfg, err := config.LoadBotConfig("bot_config.yml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load bot config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to validate bot config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с маскировкой секретов и настройками из конфига
	logger := log.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// Внутренние сообщения библиотеки telegram-bot-api тоже идут через маскировщик
	if err := tgbotapi.SetLogger(&log.TGBotAPIAdapter{Logger: logger.With(slog.String("component", "tgbotapi"))}); err != nil {
		slog.Warn("failed to set tgbotapi logger", slog.String("error", err.Error()))
	}

	// Инициализация компонентов
	taskStore := bot.NewTaskStore()
	serverClient := bot.NewServerClient(cfg.BackendURL, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second)

	b, err := bot.NewBot(*cfg, serverClient, taskStore, logger.With(slog.String("component", "bot")))
	if err != nil {
		slog.Error("failed to create bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("Bot created successfully, starting...")

	// Ожидание сигналов для graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Запуск бота в отдельной goroutine, чтобы не блокировать graceful shutdown
	go b.Start(ctx)

	<-ctx.Done() // Ожидаем сигнал завершения

	slog.Info("Bot stopped gracefully")
}
