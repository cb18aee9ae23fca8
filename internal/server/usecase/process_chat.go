package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"whatsapp-chat-parser/internal/archive"
	"whatsapp-chat-parser/internal/cache"
	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/pkg/config"
	"whatsapp-chat-parser/internal/ports"
)

// ProcessChatUseCase инкапсулирует бизнес-логику обработки экспорта переписки:
// распаковку архивов, кэширование по хешу содержимого и разбор транскриптов.
type ProcessChatUseCase struct {
	cfg        *config.Config
	parser     ports.Parser
	cacheStore *cache.CacheStore
	poolSize   int
	log        *slog.Logger
}

// Option — функциональная опция для настройки ProcessChatUseCase.
type Option func(*ProcessChatUseCase)

// WithPoolSize устанавливает количество одновременных воркеров разбора.
func WithPoolSize(n int) Option {
	return func(uc *ProcessChatUseCase) {
		if n > 0 {
			uc.poolSize = n
		}
	}
}

// WithLogger устанавливает логгер для варианта использования.
func WithLogger(l *slog.Logger) Option {
	return func(uc *ProcessChatUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// NewProcessChatUseCase создает новый экземпляр ProcessChatUseCase.
func NewProcessChatUseCase(cfg *config.Config, parser ports.Parser, cacheStore *cache.CacheStore, opts ...Option) *ProcessChatUseCase {
	uc := &ProcessChatUseCase{
		cfg:        cfg,
		parser:     parser,
		cacheStore: cacheStore,
		poolSize:   2,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ProcessChat обрабатывает загруженный экспорт: раскрывает zip-архивы,
// отделяет транскрипты переписки от файлов вложений, разбирает каждый
// транскрипт и объединяет сообщения. Результат кэшируется по хешу
// содержимого загрузки.
func (uc *ProcessChatUseCase) ProcessChat(ctx context.Context, uploads domain.FileMap) ([]domain.Message, domain.FileMap, error) {
	if len(uploads) == 0 {
		return nil, nil, fmt.Errorf("пустая загрузка: нет файлов для обработки")
	}

	// Хеш считается по сырому содержимому до распаковки: для загрузки из
	// одного файла он совпадает с обычным sha256 этого файла, и клиент
	// может вычислить его самостоятельно для process-by-hash.
	combinedHash := uploadsHash(uploads)

	if cachedItem, found := uc.cacheStore.Get(combinedHash); found {
		uc.log.InfoContext(ctx, "Попадание в кеш для экспорта", "hash", combinedHash)
		return cachedItem.Messages, cachedItem.Files, nil
	}

	transcripts, files, err := uc.collectInputs(uploads)
	if err != nil {
		return nil, nil, err
	}

	messages, err := uc.parseAll(ctx, transcripts, files)
	if err != nil {
		return nil, nil, err
	}

	// Кеширование окончательного результата
	ttl := uc.cfg.Processing.CacheTTL.Duration()
	uc.cacheStore.Put(combinedHash, messages, files, ttl)
	uc.log.InfoContext(ctx, "Результат кеширован", "hash", combinedHash, "ttl", ttl.String())

	return messages, files, nil
}

// uploadsHash вычисляет единый хеш для набора загруженных файлов.
// Имена сортируются, чтобы хеш не зависел от порядка обхода мапы.
func uploadsHash(uploads domain.FileMap) string {
	names := make([]string, 0, len(uploads))
	for name := range uploads {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	for _, name := range names {
		buf.Write(uploads[name])
	}
	return cache.CalculateHashFromBytes(buf.Bytes())
}

// collectInputs раскрывает архивы и разделяет загрузку на транскрипты
// переписки (.txt) и таблицу файлов вложений.
func (uc *ProcessChatUseCase) collectInputs(uploads domain.FileMap) (map[string][]byte, domain.FileMap, error) {
	transcripts := make(map[string][]byte)
	files := make(domain.FileMap)

	maxEntry := uc.cfg.Processing.MaxArchiveEntryBytes()

	for name, data := range uploads {
		switch {
		case archive.IsArchive(data):
			chat, extracted, err := archive.ExtractExport(data, maxEntry)
			if err != nil {
				return nil, nil, fmt.Errorf("не удалось распаковать архив %s: %w", name, err)
			}
			transcripts[name] = chat
			for fname, content := range extracted {
				files[fname] = content
			}
		case strings.HasSuffix(strings.ToLower(name), ".txt"):
			transcripts[name] = data
		default:
			files[name] = data
		}
	}

	if len(transcripts) == 0 {
		return nil, nil, fmt.Errorf("в загрузке нет текста переписки (.txt или .zip)")
	}

	return transcripts, files, nil
}

// parseResult — результат разбора одного транскрипта.
type parseResult struct {
	name     string
	messages []domain.Message
	err      error
}

// parseAll разбирает все транскрипты пулом воркеров и объединяет сообщения
// в детерминированном порядке (по имени транскрипта).
func (uc *ProcessChatUseCase) parseAll(ctx context.Context, transcripts map[string][]byte, files domain.FileMap) ([]domain.Message, error) {
	names := make([]string, 0, len(transcripts))
	for name := range transcripts {
		names = append(names, name)
	}
	sort.Strings(names)

	workers := uc.poolSize
	if workers > len(names) {
		workers = len(names)
	}

	uc.log.InfoContext(ctx, "Разбор транскриптов", "count", len(names), "pool_size", workers)

	tasks := make(chan string, len(names))
	results := make(chan parseResult, len(names))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range tasks {
				if err := ctx.Err(); err != nil {
					results <- parseResult{name: name, err: err}
					continue
				}
				messages, err := uc.parser.Parse(transcripts[name], files)
				results <- parseResult{name: name, messages: messages, err: err}
			}
		}()
	}

	for _, name := range names {
		tasks <- name
	}
	close(tasks)

	wg.Wait()
	close(results)

	byName := make(map[string]parseResult, len(names))
	var parseErrors []error
	for res := range results {
		if res.err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("не удалось разобрать %s: %w", res.name, res.err))
			continue
		}
		byName[res.name] = res
	}
	if len(parseErrors) > 0 {
		return nil, errors.Join(parseErrors...)
	}

	var merged []domain.Message
	for _, name := range names {
		merged = append(merged, byName[name].messages...)
	}

	// Сквозная перенумерация после объединения нескольких транскриптов
	for i := range merged {
		merged[i].ID = i
	}

	uc.log.InfoContext(ctx, "Разбор завершен", "message_count", len(merged))
	return merged, nil
}
