package source

import (
	"fmt"

	"whatsapp-chat-parser/internal/ports"
)

// MemorySource реализует интерфейс DataSource для данных, уже находящихся
// в памяти, например тела загруженного по HTTP файла.
type MemorySource struct {
	data []byte
}

// NewMemorySource создает новый экземпляр MemorySource.
func NewMemorySource(data []byte) ports.DataSource {
	return &MemorySource{data: data}
}

// Fetch возвращает данные из памяти.
func (s *MemorySource) Fetch() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("данные не установлены")
	}

	// Возвращается копия, чтобы вызывающий не мог изменить оригинал.
	dataCopy := make([]byte, len(s.data))
	copy(dataCopy, s.data)

	return dataCopy, nil
}
