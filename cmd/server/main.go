package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"whatsapp-chat-parser/internal/adapters/parser"
	"whatsapp-chat-parser/internal/cache"
	"whatsapp-chat-parser/internal/core/services"
	"whatsapp-chat-parser/internal/log"
	"whatsapp-chat-parser/internal/pkg/config"
	"whatsapp-chat-parser/internal/pkg/term"
	"whatsapp-chat-parser/internal/server"
	"whatsapp-chat-parser/internal/server/usecase"

	daemon "github.com/sevlyar/go-daemon"
)

func main() {
	daemonize := flag.Bool("daemon", false, "запустить сервер в фоновом режиме")
	flag.Parse()

	if *daemonize {
		dctx := &daemon.Context{
			PidFileName: "whatsapp-chat-parser.pid",
			PidFilePerm: 0644,
			LogFileName: "whatsapp-chat-parser.log",
			LogFilePerm: 0640,
			WorkDir:     "./",
			Umask:       027,
		}

		child, err := dctx.Reborn()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to daemonize: %v\n", err)
			os.Exit(1)
		}
		if child != nil {
			// Родительский процесс: потомок запущен, выходим.
			return
		}
		defer func() {
			if err := dctx.Release(); err != nil {
				slog.Error("failed to release daemon context", "error", err)
			}
		}()
	}

	if err := run(*daemonize); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}

// run инкапсулирует всю логику инициализации и запуска приложения.
func run(daemonized bool) error {
	// 1. Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		// Логгер еще не инициализирован, выводим в stderr
		_, _ = fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализация логгера
	logger := log.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	// 3. Валидация конфигурации (после инициализации логгера)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// 4. Токен администратора: из окружения или интерактивно.
	// В режиме демона терминала нет, остается только переменная окружения.
	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" && cfg.Admin.PromptToken && !daemonized {
		adminToken, err = term.NewTerminal().ReadSecret("Admin token: ")
		if err != nil {
			return fmt.Errorf("failed to read admin token: %w", err)
		}
	}

	// 5. Инициализация зависимостей и фоновых чистильщиков
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	taskStore := server.NewTaskStore()
	cacheStore := cache.NewCacheStore()
	taskStore.StartCleanupTicker(appCtx, cfg.Processing.CleanupInterval.Duration())
	cacheStore.StartCleanupTicker(appCtx, cfg.Processing.CleanupInterval.Duration())

	parserSvc := parser.NewChatLogParser(services.NewClassificationService(), services.NewAttachmentService())
	processor := usecase.NewProcessChatUseCase(cfg, parserSvc, cacheStore,
		usecase.WithPoolSize(cfg.Processing.PoolSize),
		usecase.WithLogger(logger.With(slog.String("component", "usecase"))),
	)

	// 6. Создание HTTP-сервера
	srv, err := server.New(cfg, processor, taskStore, cacheStore, server.WithAdminToken(adminToken))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// 7. Запуск сервера и graceful shutdown
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		slog.Info("Starting server", "addr", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Signal received, shutting down...")

	// Сначала отменяем контекст приложения, чтобы остановить фоновые чистильщики
	appCancel()

	// Затем останавливаем HTTP-сервер
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	<-serverDone
	slog.Info("HTTP server stopped")

	slog.Info("Application exited gracefully")
	return nil
}
