package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"whatsapp-chat-parser/internal/domain"
)

// zipMagic — сигнатура локального заголовка zip-архива.
var zipMagic = []byte("PK\x03\x04")

// IsArchive сообщает, начинаются ли данные с сигнатуры zip-архива.
func IsArchive(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ExtractExport распаковывает zip-архив экспорта WhatsApp в памяти.
//
// Текстом переписки считается запись с расширением .txt; при нескольких
// кандидатах предпочитается имя со словом "chat" (стандартное "_chat.txt"),
// иначе берется первая. Остальные записи попадают в таблицу файлов под
// базовым именем — именно так на них ссылаются маркеры вложений.
// Записи крупнее maxEntrySize пропускаются (защита от распухающих архивов);
// maxEntrySize <= 0 отключает ограничение.
func ExtractExport(data []byte, maxEntrySize int64) ([]byte, domain.FileMap, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось открыть архив экспорта: %w", err)
	}

	var chat []byte
	chatName := ""
	files := make(domain.FileMap)

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := path.Base(entry.Name)
		// Служебные каталоги macOS попадают в архив при ручной упаковке.
		if strings.HasPrefix(entry.Name, "__MACOSX/") || strings.HasPrefix(name, ".") {
			continue
		}
		if maxEntrySize > 0 && entry.UncompressedSize64 > uint64(maxEntrySize) {
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("не удалось прочитать запись %q: %w", entry.Name, err)
		}

		if strings.EqualFold(path.Ext(name), ".txt") && betterChatCandidate(chatName, name) {
			if chatName != "" {
				// Прежний кандидат оказался обычным текстовым вложением.
				files[chatName] = chat
			}
			chat = content
			chatName = name
			continue
		}

		files[name] = content
	}

	if chatName == "" {
		return nil, nil, fmt.Errorf("в архиве нет текста переписки (.txt)")
	}

	return chat, files, nil
}

// betterChatCandidate решает, вытесняет ли новое имя текущего кандидата
// на текст переписки.
func betterChatCandidate(current, candidate string) bool {
	if current == "" {
		return true
	}
	return !strings.Contains(strings.ToLower(current), "chat") &&
		strings.Contains(strings.ToLower(candidate), "chat")
}

// readEntry читает содержимое записи архива целиком.
func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
