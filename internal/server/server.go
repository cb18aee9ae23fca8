package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"whatsapp-chat-parser/internal/cache"
	"whatsapp-chat-parser/internal/core/services"
	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/pkg/config"
	"whatsapp-chat-parser/internal/ports"
)

// ChatProcessor определяет интерфейс для варианта использования,
// который обрабатывает загруженные экспорты переписки.
type ChatProcessor interface {
	ProcessChat(ctx context.Context, uploads domain.FileMap) ([]domain.Message, domain.FileMap, error)
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	processor  ChatProcessor
	formatter  ports.Formatter
	adminToken string
}

// Option настраивает Server
type Option func(*Server)

// WithFormatter заменяет форматтер, применяемый при format=html
func WithFormatter(f ports.Formatter) Option {
	return func(s *Server) {
		s.formatter = f
	}
}

// WithAdminToken задает токен, открывающий административные конечные точки
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor ChatProcessor, taskStore *TaskStore, cacheStore *cache.CacheStore, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		processor:  processor,
		formatter:  services.NewFormattingService(),
	}
	for _, opt := range opts {
		opt(s)
	}

	chiRouter := chi.NewRouter()

	// Промежуточное ПО
	chiRouter.Use(middleware.Logger)
	chiRouter.Use(middleware.Recoverer)

	// Конечная точка для проверки работоспособности
	chiRouter.Get("/health", s.handleHealth)

	// Маршруты API
	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Post("/process", s.handleProcess)
		r.Post("/process-by-hash", s.handleProcessByHash)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
		r.Get("/tasks/{taskID}/attachments/{filename}", s.handleTaskAttachment)
		r.Delete("/cache", s.handleCacheFlush)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// handleProcess принимает multipart-загрузку экспорта (поле "files": один
// .zip либо .txt с файлами вложений) и запускает асинхронную обработку
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes()); err != nil {
		http.Error(w, "Не удалось разобрать форму", http.StatusBadRequest)
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		http.Error(w, "Требуется хотя бы один файл в поле 'files'", http.StatusBadRequest)
		return
	}

	uploads := make(domain.FileMap, len(parts))
	for _, part := range parts {
		file, err := part.Open()
		if err != nil {
			http.Error(w, "Не удалось получить файл из формы", http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			http.Error(w, "Не удалось прочитать загруженный файл", http.StatusInternalServerError)
			return
		}
		uploads[filepath.Base(part.Filename)] = data
	}

	// Генерация уникального идентификатора задачи
	taskID := uuid.NewString()
	slog.Info("Принят экспорт переписки", "task_id", taskID, "files", len(uploads))

	// Создание задачи в хранилище
	s.taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

	// Запуск обработки в горутине
	go s.runProcessing(taskID, uploads)

	// Возврат идентификатора задачи
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
}

// runProcessing выполняет обработку экспорта в фоне и записывает результат в задачу
func (s *Server) runProcessing(taskID string, uploads domain.FileMap) {
	s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

	// Контекст задачи с таймаутом из конфигурации
	taskCtx := context.Background()
	if timeout := s.cfg.Processing.TaskTimeout.Duration(); timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(context.Background(), timeout)
		defer cancel()
	}

	messages, files, err := s.processor.ProcessChat(taskCtx, uploads)
	if err != nil {
		s.taskStore.UpdateTaskError(taskID, err.Error())
		return
	}

	s.taskStore.UpdateTaskResult(taskID, messages, files)
}

// handleProcessByHash создает задачу из ранее закэшированного результата по его хешу
func (s *Server) handleProcessByHash(w http.ResponseWriter, r *http.Request) {
	// Разбор тела запроса
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Не удалось декодировать тело запроса", http.StatusBadRequest)
		return
	}

	if req.Hash == "" {
		http.Error(w, "Требуется хеш", http.StatusBadRequest)
		return
	}

	taskID := uuid.NewString()
	s.taskStore.CreateTask(taskID, 24*time.Hour) // TTL для записи о задаче

	go func() {
		s.taskStore.UpdateTaskStatus(taskID, TaskStatusProcessing)

		if cachedItem, found := s.cacheStore.Get(req.Hash); found {
			s.taskStore.UpdateTaskResult(taskID, cachedItem.Messages, cachedItem.Files)
			slog.Info("Попадание в кеш для хеша", "hash", req.Hash, "task_id", taskID)
			return
		}

		// Без содержимого экспорта задачу по промахнувшемуся хешу выполнить нечем
		s.taskStore.UpdateTaskError(taskID, "Результат не найден в кеше для данного хеша")
		slog.Info("Промах кеша для хеша", "hash", req.Hash, "task_id", taskID)
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"task_id": taskID})
}

// handleTaskStatus возвращает текущий статус задачи
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := s.taskStore.GetTask(taskID)
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"task_id":       task.ID,
		"status":        task.Status,
		"error_message": task.ErrorMessage,
	})
}

// paginationMeta описывает метаданные пагинации в ответе
type paginationMeta struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// resultResponse - одна страница сообщений завершенной задачи
type resultResponse struct {
	Pagination paginationMeta   `json:"pagination"`
	Data       []domain.Message `json:"data"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// handleTaskResult возвращает страницу разобранных сообщений завершенной задачи.
// Параметр format=html заменяет тела сообщений их HTML-представлением.
func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	task, err := s.taskStore.GetTask(taskID)
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusBadRequest)
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	totalItems := len(task.Messages)
	totalPages := (totalItems + pageSize - 1) / pageSize

	startIndex := (page - 1) * pageSize
	endIndex := startIndex + pageSize
	if startIndex > totalItems {
		startIndex = totalItems
	}
	if endIndex > totalItems {
		endIndex = totalItems
	}

	// Страница копируется: при format=html тела заменяются, оригинал не трогаем
	data := make([]domain.Message, endIndex-startIndex)
	copy(data, task.Messages[startIndex:endIndex])

	if r.URL.Query().Get("format") == "html" {
		for i := range data {
			data[i].Body = s.formatter.Format(data[i].Body)
		}
	}

	response := resultResponse{
		Pagination: paginationMeta{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  totalItems,
			TotalPages:  totalPages,
		},
		Data: data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// handleTaskAttachment отдает содержимое файла вложения завершенной задачи
func (s *Server) handleTaskAttachment(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	filename := chi.URLParam(r, "filename")

	task, err := s.taskStore.GetTask(taskID)
	if err != nil {
		http.Error(w, "Задача не найдена", http.StatusNotFound)
		return
	}

	if task.Status != TaskStatusCompleted {
		http.Error(w, "Задача не завершена", http.StatusBadRequest)
		return
	}

	content, ok := task.Files[filename]
	if !ok {
		http.Error(w, "Вложение не найдено", http.StatusNotFound)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// handleCacheFlush сбрасывает кэш результатов. Конечная точка доступна
// только при настроенном административном токене.
func (s *Server) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	if s.adminToken == "" {
		http.Error(w, "Административный токен не настроен", http.StatusForbidden)
		return
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
		slog.Warn("Отклонен запрос на сброс кэша с неверным токеном")
		http.Error(w, "Неверный токен", http.StatusUnauthorized)
		return
	}

	s.cacheStore.Flush()
	slog.Info("Кэш результатов сброшен")
	w.WriteHeader(http.StatusNoContent)
}

// queryInt разбирает целочисленный параметр запроса со значением по умолчанию
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Завершение работы HTTP-сервера")
	return s.HTTPServer.Shutdown(ctx)
}
