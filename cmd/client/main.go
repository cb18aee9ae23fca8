package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"html"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"whatsapp-chat-parser/internal/adapters/exporter"
	"whatsapp-chat-parser/internal/adapters/parser"
	"whatsapp-chat-parser/internal/adapters/source"
	"whatsapp-chat-parser/internal/archive"
	"whatsapp-chat-parser/internal/core/services"
	"whatsapp-chat-parser/internal/domain"
)

type taskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type taskResultResponse struct {
	Pagination struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"pagination"`
	Data []domain.Message `json:"data"`
}

func main() {
	var (
		serverAddr string
		htmlOut    bool
		pollsOut   bool
		width      int
	)
	flag.StringVar(&serverAddr, "server", "", "адрес сервера; если пуст, файлы разбираются локально")
	flag.BoolVar(&htmlOut, "html", false, "вывести переписку в виде HTML-документа (локальный режим)")
	flag.BoolVar(&pollsOut, "polls", false, "вывести только извлеченные опросы (локальный режим)")
	flag.IntVar(&width, "width", 0, "ширина вывода в колонках; 0 — по ширине терминала")
	flag.Parse()

	filePaths := flag.Args()
	if len(filePaths) == 0 {
		log.Fatal("Нужен хотя бы один файл экспорта. Использование: client [флаги] <файл1> <файл2> ...")
	}

	if serverAddr != "" {
		runRemote(serverAddr, filePaths, width)
		return
	}

	runLocal(filePaths, htmlOut, pollsOut, width)
}

// runLocal разбирает файлы экспорта локально, без обращения к серверу.
func runLocal(filePaths []string, htmlOut, pollsOut bool, width int) {
	transcripts := make(map[string][]byte)
	files := make(domain.FileMap)

	for _, path := range filePaths {
		data, err := source.NewFileSource(path).Fetch()
		if err != nil {
			log.Fatalf("Не удалось прочитать файл %s: %v", path, err)
		}

		name := filepath.Base(path)
		switch {
		case archive.IsArchive(data):
			chat, extracted, err := archive.ExtractExport(data, 0)
			if err != nil {
				log.Fatalf("Не удалось распаковать архив %s: %v", path, err)
			}
			transcripts[name] = chat
			for fname, content := range extracted {
				files[fname] = content
			}
		case strings.HasSuffix(strings.ToLower(name), ".txt"):
			transcripts[name] = data
		default:
			// Остальные файлы считаются вложениями экспорта
			files[name] = data
		}
	}

	if len(transcripts) == 0 {
		log.Fatal("Среди переданных файлов нет текста переписки (.txt или .zip)")
	}

	chatParser := parser.NewChatLogParser(services.NewClassificationService(), services.NewAttachmentService())

	// Расшифровки объединяются в алфавитном порядке имен, как на сервере
	names := make([]string, 0, len(transcripts))
	for name := range transcripts {
		names = append(names, name)
	}
	sort.Strings(names)

	var messages []domain.Message
	for _, name := range names {
		parsed, err := chatParser.Parse(transcripts[name], files)
		if err != nil {
			log.Fatalf("Не удалось разобрать %s: %v", name, err)
		}
		messages = append(messages, parsed...)
	}
	for i := range messages {
		messages[i].ID = i
	}

	switch {
	case pollsOut:
		printPolls(messages)
	case htmlOut:
		printHTML(messages)
	default:
		var opts []exporter.Option
		if width > 0 {
			opts = append(opts, exporter.WithWidth(width))
		}
		if err := exporter.NewConsoleExporter(opts...).Export(messages); err != nil {
			log.Fatalf("Не удалось вывести переписку: %v", err)
		}
	}
}

// printPolls выводит все опросы переписки с гистограммой голосов.
func printPolls(messages []domain.Message) {
	extractor := services.NewPollService()

	found := 0
	for _, msg := range messages {
		poll := extractor.Extract(msg.Body)
		if poll == nil {
			continue
		}
		found++

		fmt.Printf("%s (%s, %s)\n", poll.Title, msg.Date, msg.Time)
		for _, opt := range poll.Options {
			// MaxVotes не бывает меньше 1, деление безопасно
			bar := strings.Repeat("#", opt.Votes*20/poll.MaxVotes)
			fmt.Printf("  %-40s %-20s %d\n", opt.Text, bar, opt.Votes)
		}
		fmt.Printf("  Всего голосов: %d\n\n", poll.TotalVotes)
	}

	if found == 0 {
		fmt.Println("Опросов в переписке не найдено.")
	}
}

// printHTML выводит переписку как самостоятельный HTML-документ.
func printHTML(messages []domain.Message) {
	formatter := services.NewFormattingService()

	fmt.Println("<!DOCTYPE html>")
	fmt.Println(`<html><head><meta charset="utf-8"><title>WhatsApp Chat</title></head><body>`)
	for _, msg := range messages {
		header := html.EscapeString(fmt.Sprintf("[%s, %s] %s:", msg.Date, msg.Time, msg.Sender))
		fmt.Printf("<p><b>%s</b> %s</p>\n", header, formatter.Format(msg.Body))
	}
	fmt.Println("</body></html>")
}

// runRemote отправляет файлы на сервер и ждет результата обработки.
func runRemote(serverAddr string, filePaths []string, width int) {
	// Создание многочастной формы для загрузки файлов
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, path := range filePaths {
		file, err := os.Open(path)
		if err != nil {
			log.Fatalf("Не удалось открыть файл %s: %v", path, err)
		}

		part, err := writer.CreateFormFile("files", filepath.Base(path))
		if err != nil {
			_ = file.Close()
			log.Fatalf("Не удалось создать файл формы для %s: %v", path, err)
		}

		if _, err = io.Copy(part, file); err != nil {
			_ = file.Close()
			log.Fatalf("Не удалось записать данные файла %s: %v", path, err)
		}
		// Закрываем файл после успешного копирования
		if err := file.Close(); err != nil {
			// Не фатально, но стоит залогировать
			log.Printf("Warning: failed to close file %s: %v", path, err)
		}
	}

	// Важно закрыть writer, чтобы записать завершающую границу
	if err := writer.Close(); err != nil {
		log.Fatalf("Не удалось закрыть multipart writer: %v", err)
	}

	// Отправка файлов на сервер
	resp, err := http.Post(serverAddr+"/api/v1/process", writer.FormDataContentType(), &body)
	if err != nil {
		log.Fatalf("Не удалось отправить запрос: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("Сервер вернул статус: %d", resp.StatusCode)
	}

	// Разбор идентификатора задачи из ответа
	var taskResp map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&taskResp); err != nil {
		log.Fatalf("Не удалось декодировать ответ: %v", err)
	}
	taskID := taskResp["task_id"]
	if taskID == "" {
		log.Fatal("Идентификатор задачи не найден в ответе")
	}

	fmt.Printf("Задача создана с идентификатором: %s\n", taskID)

	// Опрос о статусе задачи
	for {
		time.Sleep(2 * time.Second) // Пауза перед следующим опросом

		status := fetchStatus(serverAddr, taskID)
		fmt.Printf("Статус задачи: %s\n", status.Status)

		switch status.Status {
		case "completed":
			messages := fetchAllPages(serverAddr, taskID)
			var opts []exporter.Option
			if width > 0 {
				opts = append(opts, exporter.WithWidth(width))
			}
			if err := exporter.NewConsoleExporter(opts...).Export(messages); err != nil {
				log.Fatalf("Не удалось вывести переписку: %v", err)
			}
			return
		case "failed":
			fmt.Printf("Задача не выполнена: %s\n", status.ErrorMessage)
			os.Exit(1)
		case "pending", "processing":
			// Продолжение опроса
			continue
		default:
			log.Fatalf("Неизвестный статус задачи: %s", status.Status)
		}
	}
}

// fetchStatus запрашивает статус задачи.
func fetchStatus(serverAddr, taskID string) taskStatusResponse {
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/tasks/%s", serverAddr, taskID))
	if err != nil {
		log.Fatalf("Не удалось опросить статус задачи: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Сервер вернул статус: %d", resp.StatusCode)
	}

	var status taskStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		log.Fatalf("Не удалось декодировать ответ статуса: %v", err)
	}
	return status
}

// fetchAllPages собирает все страницы результата задачи.
func fetchAllPages(serverAddr, taskID string) []domain.Message {
	var messages []domain.Message
	page := 1

	for {
		url := fmt.Sprintf("%s/api/v1/tasks/%s/result?page=%d&page_size=100", serverAddr, taskID, page)
		resp, err := http.Get(url)
		if err != nil {
			log.Fatalf("Не удалось получить результат: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			log.Fatalf("Сервер вернул статус для результата: %d", resp.StatusCode)
		}

		var result taskResultResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			log.Fatalf("Не удалось декодировать результат: %v", err)
		}
		resp.Body.Close()

		messages = append(messages, result.Data...)

		if page >= result.Pagination.TotalPages {
			break
		}
		page++
	}

	return messages
}
