package bot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/xuri/excelize/v2"

	"whatsapp-chat-parser/cmd/bot/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand  = "start"
	statusCommand = "status"
)

// ServerAPI описывает операции бэкенд-сервера, которые использует бот.
type ServerAPI interface {
	StartTask(ctx context.Context, files []DocumentFile) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	GetTaskResult(ctx context.Context, taskID string, page, pageSize int) (*TaskResultResponse, error)
}

// fileBatch — пачка документов одного чата, ожидающая обработки.
type fileBatch struct {
	docs  []*tgbotapi.Document
	timer *time.Timer
}

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	logger       *slog.Logger

	// pendingFiles накапливает документы, присланные одной пачкой,
	// пока не истечет окно ожидания или не будет достигнут лимит файлов.
	pendingFiles      map[int64]*fileBatch
	pendingFilesMutex sync.Mutex

	// httpClient скачивает содержимое документов с серверов Telegram.
	httpClient *http.Client

	// Точки подмены для тестов; в боевом режиме указывают на методы api.
	sendMessageFunc      func(msg tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := &Bot{
		api:          api,
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		logger:       logger,
		pendingFiles: make(map[int64]*fileBatch),
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
	}
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL
	return b, nil
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	// Ответ на любые другие сообщения
	reply := tgbotapi.NewMessage(msg.Chat.ID, "Пожалуйста, отправьте мне экспорт переписки WhatsApp: файл _chat.txt или ZIP-архив выгрузки.")
	b.sendMessage(reply)
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		replyText := "Добро пожаловать! Я бот для разбора экспорта переписки WhatsApp.\n\n" +
			"Отправьте мне файл _chat.txt или ZIP-архив выгрузки, и я пришлю разобранную переписку.\n\n" +
			"Пожалуйста, обратите внимание:\n" +
			fmt.Sprintf("• В одной пачке я принимаю не более %d файлов.\n", b.cfg.MaxFilesPerMessage) +
			"• Файлы не сохраняются на сервере и обрабатываются на лету."
		reply := tgbotapi.NewMessage(msg.Chat.ID, replyText)
		b.sendMessage(reply)
	case statusCommand:
		if taskID, ok := b.taskStore.Get(msg.Chat.ID); ok {
			reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Задача %s еще обрабатывается. Я пришлю результат, как только она завершится.", taskID))
			b.sendMessage(reply)
		} else {
			reply := tgbotapi.NewMessage(msg.Chat.ID, "Активных задач нет. Отправьте мне файлы экспорта, чтобы начать.")
			b.sendMessage(reply)
		}
	default:
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Я не знаю такой команды.")
		b.sendMessage(reply)
	}
}

// handleDocument добавляет присланный документ в пачку его чата.
// Пачка уходит на обработку, когда истекает окно ожидания или набирается
// максимальное количество файлов.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	// 1. Проверяем, нет ли уже активной задачи.
	if _, ok := b.taskStore.Get(chatID); ok {
		logger.Warn("user tried to start a new task while another is active")
		reply := tgbotapi.NewMessage(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую.")
		b.sendMessage(reply)
		return
	}

	// 2. Принимаем только форматы, которые понимает сервер.
	doc := msg.Document
	if !allowedDocument(doc.FileName) {
		logger.Warn("unsupported document type", slog.String("file_name", doc.FileName))
		reply := tgbotapi.NewMessage(chatID, "Я понимаю только файлы .txt и .zip из экспорта WhatsApp.")
		b.sendMessage(reply)
		return
	}

	// 3. Добавляем документ в пачку чата.
	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	if ok && len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		if batch.timer != nil {
			batch.timer.Stop()
		}
		delete(b.pendingFiles, chatID)
		b.pendingFilesMutex.Unlock()

		logger.Warn("file limit per batch exceeded", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Превышен лимит файлов в одном сообщении: максимум %d файлов. Пачка отменена, отправьте файлы заново.", b.cfg.MaxFilesPerMessage))
		b.sendMessage(reply)
		return
	}
	if !ok {
		batch = &fileBatch{}
		b.pendingFiles[chatID] = batch
	}
	batch.docs = append(batch.docs, doc)

	if len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		// Лимит набран, ждать окончания окна нет смысла.
		if batch.timer != nil {
			batch.timer.Stop()
		}
		b.pendingFilesMutex.Unlock()

		logger.Debug("file limit reached, processing batch immediately")
		go b.processFileBatch(ctx, chatID)
		return
	}

	window := time.Duration(b.cfg.FileBatchTimeoutSecs) * time.Second
	if batch.timer == nil {
		batch.timer = time.AfterFunc(window, func() {
			b.processFileBatch(ctx, chatID)
		})
	} else {
		// Каждый новый файл продлевает окно ожидания.
		batch.timer.Reset(window)
	}
	b.pendingFilesMutex.Unlock()
}

// processFileBatch скачивает накопленные документы и запускает задачу на бэкенде.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	if ok {
		delete(b.pendingFiles, chatID)
		if batch.timer != nil {
			batch.timer.Stop()
		}
	}
	b.pendingFilesMutex.Unlock()

	if !ok || len(batch.docs) == 0 {
		return
	}

	files := make([]DocumentFile, 0, len(batch.docs))
	for _, doc := range batch.docs {
		fileURL, err := b.getFileDirectURLFunc(doc.FileID)
		if err != nil {
			logger.Error("failed to get file direct url", slog.String("error", err.Error()))
			reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Не удалось получить доступ к файлу %s. Попробуйте отправить его еще раз.", doc.FileName))
			b.sendMessage(reply)
			return
		}

		data, err := b.downloadFile(ctx, fileURL)
		if err != nil {
			logger.Error("failed to download file", slog.String("file_name", doc.FileName), slog.String("error", err.Error()))
			reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Не удалось скачать файл %s. Попробуйте отправить его еще раз.", doc.FileName))
			b.sendMessage(reply)
			return
		}

		files = append(files, DocumentFile{Name: doc.FileName, Content: bytes.NewReader(data)})
	}

	// Файлы отправляются в алфавитном порядке имен: в этом же порядке
	// сервер объединяет расшифровки из нескольких файлов.
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	startResp, err := b.serverClient.StartTask(ctx, files)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось начать обработку файлов на сервере. Пожалуйста, попробуйте позже.")
		b.sendMessage(reply)
		return
	}

	taskID := startResp.TaskID
	logger = logger.With(slog.String("task_id", taskID))
	logger.Info("task started on backend", slog.Int("file_count", len(files)))

	// Сохраняем task_id и запускаем опрос.
	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID) // Используем новый контекст для фоновой задачи

	reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Получено файлов: %d. Задача поставлена в очередь на обработку, ожидайте результата.", len(files)))
	b.sendMessage(reply)
}

// downloadFile скачивает файл по прямой ссылке Telegram.
func (b *Bot) downloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}

// pollTaskStatus асинхронно опрашивает статус задачи на бэкенд-сервере.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID) // Гарантированно удаляем задачу по завершении.

	ticker := time.NewTicker(time.Duration(b.cfg.PollingIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Warn("polling cancelled by context")
			return
		case <-ticker.C:
			logger.Debug("polling task status")
			status, err := b.serverClient.GetTaskStatus(ctx, taskID)
			if err != nil {
				logger.Error("failed to get task status", slog.String("error", err.Error()))
				// Можно добавить логику ретраев или просто прекратить опрос
				continue
			}

			switch status.Status {
			case "completed":
				logger.Info("task completed")
				b.processCompletedTask(ctx, chatID, taskID)
				return // Завершаем опрос
			case "failed":
				logger.Warn("task failed", slog.String("reason", status.ErrorMessage))
				reply := tgbotapi.NewMessage(chatID, fmt.Sprintf("Произошла ошибка при обработке файлов: %s", status.ErrorMessage))
				b.sendMessage(reply)
				return // Завершаем опрос
			case "pending", "processing":
				logger.Debug("task is in progress", slog.String("status", status.Status))
				// Продолжаем опрос
			default:
				logger.Warn("unknown task status", slog.String("status", status.Status))
			}
		}
	}
}

// processCompletedTask обрабатывает успешно завершенную задачу.
func (b *Bot) processCompletedTask(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	logger.Info("fetching results for completed task")

	messages, err := b.fetchAllResults(ctx, taskID)
	if err != nil {
		logger.Error("failed to fetch all results", slog.String("error", err.Error()))
		reply := tgbotapi.NewMessage(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже.")
		b.sendMessage(reply)
		return
	}

	logger.Info("successfully fetched all results", slog.Int("message_count", len(messages)))

	if len(messages) == 0 {
		reply := tgbotapi.NewMessage(chatID, "Не удалось найти сообщения в предоставленных файлах.")
		b.sendMessage(reply)
		return
	}

	// Логика ветвления в зависимости от количества сообщений
	if len(messages) >= b.cfg.ExcelThreshold {
		logger.Info("message count is over threshold, sending excel file")
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Найдено %d сообщений. Формирую Excel-файл...", len(messages))))
		b.sendExcelResult(chatID, messages)
	} else {
		logger.Info("message count is under threshold, sending text message")
		b.sendTextResult(chatID, messages)
	}
}

// fetchAllResults собирает все страницы с результатами для данной задачи.
func (b *Bot) fetchAllResults(ctx context.Context, taskID string) ([]MessageDTO, error) {
	var allMessages []MessageDTO
	page := 1
	pageSize := 100 // Запрашиваем по 100, чтобы уменьшить количество запросов

	for {
		result, err := b.serverClient.GetTaskResult(ctx, taskID, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get task result page %d: %w", page, err)
		}

		allMessages = append(allMessages, result.Data...)

		if page >= result.Pagination.TotalPages {
			break // Все страницы собраны
		}
		page++
	}

	return allMessages, nil
}

func (b *Bot) sendExcelResult(chatID int64, messages []MessageDTO) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			b.logger.Error("failed to close excel file", slog.String("error", err.Error()))
		}
	}()

	sheetName := "Сообщения"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)

	// Заголовки
	headers := []string{"Дата", "Время", "Отправитель", "Сообщение"}
	showAttachment := hasAttachmentData(messages)
	if showAttachment {
		headers = append(headers, "Вложение")
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// Данные
	for i, m := range messages {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), m.Date)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), m.Time)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), m.Sender)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), m.Body)
		if showAttachment {
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), attachmentLabel(m))
		}
	}

	// Запись в буфер
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось сгенерировать Excel-файл."))
		return
	}

	// Отправка файла
	fileName := fmt.Sprintf("chat_messages_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Обработка завершена. Найдено %d сообщений.", len(messages))
	b.sendMessage(msg)
}

// sendTextResult форматирует и отправляет результат в виде текстового сообщения HTML.
func (b *Bot) sendTextResult(chatID int64, messages []MessageDTO) {
	if len(messages) == 0 {
		reply := tgbotapi.NewMessage(chatID, "Не найдено ни одного сообщения.")
		b.sendMessage(reply)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Найдено %d сообщений. Вот переписка:\n", len(messages)))
	sb.WriteString("<pre><code>") // Используем HTML для надежного форматирования

	// Получаем ширину колонок из конфигурации
	dateColWidth := b.cfg.Render.Date
	timeColWidth := b.cfg.Render.Time
	senderColWidth := b.cfg.Render.Sender
	messageColWidth := b.cfg.Render.Message
	attachColWidth := b.cfg.Render.Attachment

	showAttachment := hasAttachmentData(messages)

	// Формируем заголовок
	headerDate := "Date"
	headerTime := "Time"
	headerSender := "Sender"
	headerMessage := "Message"
	headerAttach := "Attachment"

	headerLine := fmt.Sprintf("| %s%s | %s%s | %s%s | %s%s ",
		headerDate, strings.Repeat(" ", dateColWidth-len(headerDate)),
		headerTime, strings.Repeat(" ", timeColWidth-len(headerTime)),
		headerSender, strings.Repeat(" ", senderColWidth-len(headerSender)),
		headerMessage, strings.Repeat(" ", messageColWidth-len(headerMessage)),
	)
	if showAttachment {
		headerLine += fmt.Sprintf("| %s%s ", headerAttach, strings.Repeat(" ", attachColWidth-len(headerAttach)))
	}
	headerLine += "|\n"
	sb.WriteString(headerLine)

	// Формируем разделитель
	separatorLine := fmt.Sprintf("|%s|%s|%s|%s",
		strings.Repeat("-", dateColWidth+2),
		strings.Repeat("-", timeColWidth+2),
		strings.Repeat("-", senderColWidth+2),
		strings.Repeat("-", messageColWidth+2),
	)
	if showAttachment {
		separatorLine += fmt.Sprintf("|%s", strings.Repeat("-", attachColWidth+2))
	}
	separatorLine += "|\n"
	sb.WriteString(separatorLine)

	for _, m := range messages {
		// 1. Очищаем данные
		cleanSender := strings.ToValidUTF8(m.Sender, "")
		cleanBody := strings.ToValidUTF8(m.Body, "")

		// 2. Экранируем и убираем исходные переносы
		sender := html.EscapeString(cleanSender)
		sender = strings.ReplaceAll(sender, "\n", " ")
		body := html.EscapeString(cleanBody)
		body = strings.ReplaceAll(body, "\n", " ")

		// 3. Разбиваем строки на несколько с переносом слов
		dateLines := wrapString(m.Date, dateColWidth)
		timeLines := wrapString(m.Time, timeColWidth)
		senderLines := wrapString(sender, senderColWidth)
		bodyLines := wrapString(body, messageColWidth)
		var attachLines []string
		if showAttachment {
			attach := html.EscapeString(strings.ToValidUTF8(attachmentLabel(m), ""))
			attachLines = wrapString(attach, attachColWidth)
		}

		maxLines := len(dateLines)
		if len(timeLines) > maxLines {
			maxLines = len(timeLines)
		}
		if len(senderLines) > maxLines {
			maxLines = len(senderLines)
		}
		if len(bodyLines) > maxLines {
			maxLines = len(bodyLines)
		}
		if len(attachLines) > maxLines {
			maxLines = len(attachLines)
		}

		// 4. Печатаем строки для текущего сообщения
		for i := 0; i < maxLines; i++ {
			datePart := ""
			if i < len(dateLines) {
				datePart = dateLines[i]
			}

			timePart := ""
			if i < len(timeLines) {
				timePart = timeLines[i]
			}

			senderPart := ""
			if i < len(senderLines) {
				senderPart = senderLines[i]
			}

			bodyPart := ""
			if i < len(bodyLines) {
				bodyPart = bodyLines[i]
			}

			attachPart := ""
			if i < len(attachLines) {
				attachPart = attachLines[i]
			}

			// Добиваем пробелами до нужной ширины
			padDate := generatePadding(datePart, dateColWidth)
			padTime := generatePadding(timePart, timeColWidth)
			padSender := generatePadding(senderPart, senderColWidth)
			padBody := generatePadding(bodyPart, messageColWidth)

			line := fmt.Sprintf("| %s%s | %s%s | %s%s | %s%s ",
				datePart, padDate, timePart, padTime, senderPart, padSender, bodyPart, padBody)
			if showAttachment {
				padAttach := generatePadding(attachPart, attachColWidth)
				line += fmt.Sprintf("| %s%s ", attachPart, padAttach)
			}
			line += "|\n"
			sb.WriteString(line)
		}
	}
	sb.WriteString("</code></pre>")

	text := sb.String()
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML

	// Проверка на максимальную длину сообщения в Telegram (4096 символов)
	if len(text) > 4096 {
		b.logger.Warn("сгенерированный текст слишком длинный, отправка в виде файла", "length", len(text))
		b.sendResultAsTextFile(chatID, messages)
		return
	}

	b.sendMessage(reply)
}

// generatePadding вычисляет отступ для строки с учетом поправки на CJK-символы.
func generatePadding(s string, colWidth int) string {
	paddingNeeded := colWidth - runewidth.StringWidth(s)

	// Прагматическая поправка: если в строке есть CJK-символы, добавляем один пробел,
	// чтобы компенсировать ошибку рендеринга в некоторых клиентах.
	hasCJK := false
	for _, r := range s {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) {
			hasCJK = true
			break
		}
	}

	if hasCJK && paddingNeeded >= 0 {
		paddingNeeded++
	}

	if paddingNeeded > 0 {
		return strings.Repeat(" ", paddingNeeded)
	}
	return ""
}

// wrapString wraps a given string to a specified width using runewidth.
// It prioritizes wrapping on word boundaries (spaces). If a single word is
// longer than the width, it will be broken mid-word.
func wrapString(s string, width int) []string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	words := strings.Fields(s)

	if len(words) == 0 { // Handles strings with only spaces or empty strings
		runes := []rune(s)
		for len(runes) > 0 {
			i := 0
			currentWidth := 0
			for i < len(runes) {
				runeWidth := runewidth.RuneWidth(runes[i])
				if currentWidth+runeWidth > width {
					break
				}
				currentWidth += runeWidth
				i++
			}
			lines = append(lines, string(runes[:i]))
			runes = runes[i:]
		}
		if len(lines) == 0 {
			return []string{""}
		}
		return lines
	}

	var currentLine strings.Builder
	for _, word := range words {
		wordWidth := runewidth.StringWidth(word)

		// Handle words longer than the entire width
		if wordWidth > width {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}

			runes := []rune(word)
			for len(runes) > 0 {
				i := 0
				currentWidth := 0
				for i < len(runes) {
					runeWidth := runewidth.RuneWidth(runes[i])
					if currentWidth+runeWidth > width {
						break
					}
					currentWidth += runeWidth
					i++
				}
				lines = append(lines, string(runes[:i]))
				runes = runes[i:]
			}
			continue
		}

		// If the word doesn't fit on the current line, start a new one
		lineLen := runewidth.StringWidth(currentLine.String())
		if lineLen > 0 && lineLen+1+wordWidth > width {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
		}

		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return lines
}

// hasAttachmentData проверяет, есть ли в срезе сообщений хотя бы одно с вложением.
func hasAttachmentData(messages []MessageDTO) bool {
	for _, m := range messages {
		if m.Attachment != nil {
			return true
		}
	}
	return false
}

// attachmentLabel возвращает отображаемое имя вложения сообщения.
func attachmentLabel(m MessageDTO) string {
	if m.Attachment == nil {
		return ""
	}
	return m.Attachment.Filename
}

// allowedDocument сообщает, принимает ли бот файл с таким именем.
// Сервер понимает только текст переписки и ZIP-архивы выгрузки.
func allowedDocument(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".zip")
}

// sendResultAsTextFile отправляет переписку в виде текстового файла.
func (b *Bot) sendResultAsTextFile(chatID int64, messages []MessageDTO) {
	var buf bytes.Buffer
	showAttachment := hasAttachmentData(messages)

	// Заголовки для файла
	headers := []string{"Date", "Time", "Sender", "Message"}
	if showAttachment {
		headers = append(headers, "Attachment")
	}
	buf.WriteString(strings.Join(headers, ","))
	buf.WriteString("\n")

	for _, m := range messages {
		// Форматируем как CSV для простоты
		record := []string{
			fmt.Sprintf("\"%s\"", m.Date),
			fmt.Sprintf("\"%s\"", m.Time),
			fmt.Sprintf("\"%s\"", strings.ReplaceAll(m.Sender, "\"", "\"\"")),
			fmt.Sprintf("\"%s\"", strings.ReplaceAll(m.Body, "\"", "\"\"")),
		}
		if showAttachment {
			record = append(record, fmt.Sprintf("\"%s\"", strings.ReplaceAll(attachmentLabel(m), "\"", "\"\"")))
		}
		buf.WriteString(strings.Join(record, ","))
		buf.WriteString("\n")
	}

	fileName := fmt.Sprintf("chat_messages_%s.txt", time.Now().Format("2006-01-02_15-04-05"))
	fileBytes := tgbotapi.FileBytes{
		Name:  fileName,
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Обработка завершена. Найдено %d сообщений. Переписка слишком большая для одного сообщения, поэтому она прикреплена в виде файла.", len(messages))
	b.sendMessage(msg)
}
