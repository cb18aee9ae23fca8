package source

import (
	"fmt"
	"os"

	"whatsapp-chat-parser/internal/ports"
)

// FileSource реализует интерфейс DataSource для чтения экспорта с диска.
// Подходит и для текста переписки (.txt), и для архива экспорта (.zip).
type FileSource struct {
	filePath string
}

// NewFileSource создает новый экземпляр FileSource.
func NewFileSource(filePath string) ports.DataSource {
	return &FileSource{filePath: filePath}
}

// Fetch читает файл экспорта целиком и возвращает его содержимое.
func (s *FileSource) Fetch() ([]byte, error) {
	if s.filePath == "" {
		return nil, fmt.Errorf("не указан путь к файлу экспорта")
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file %s: %w", s.filePath, err)
	}

	return data, nil
}
