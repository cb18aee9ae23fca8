package ports

import (
	"whatsapp-chat-parser/internal/domain"
)

// DataSource определяет интерфейс для получения исходных данных чата.
type DataSource interface {
	// Fetch загружает данные из источника и возвращает их в виде байтового среза.
	Fetch() ([]byte, error)
}

// Parser определяет интерфейс для разбора текстового экспорта чата.
type Parser interface {
	// Parse преобразует сырой текст экспорта в упорядоченный список сообщений.
	// files — таблица файлов экспорта для сопоставления вложений.
	// Ошибка возвращается только для некорректно закодированного входа.
	Parse(raw []byte, files domain.FileMap) ([]domain.Message, error)
}

// Classifier определяет интерфейс для классификации служебных сообщений.
type Classifier interface {
	// Classify относит текст служебного сообщения к одной из фиксированных категорий.
	Classify(text string) domain.SystemCategory
}

// AttachmentResolver определяет интерфейс для поиска вложений в тексте сообщения.
type AttachmentResolver interface {
	// Resolve ищет в тексте маркер вложения и сопоставляет его с файлом экспорта.
	// Возвращает описание вложения (nil, если не найдено) и текст с вырезанным
	// маркером; при неудаче текст возвращается без изменений.
	Resolve(body string, files domain.FileMap) (*domain.Attachment, string)
}

// PollExtractor определяет интерфейс для извлечения опросов из текста сообщения.
type PollExtractor interface {
	// Extract пытается разобрать текст сообщения как опрос.
	// Возвращает nil, если текст не похож на опрос.
	Extract(body string) *domain.Poll
}

// Formatter определяет интерфейс для преобразования разметки WhatsApp в HTML.
type Formatter interface {
	Format(body string) string
}

// Exporter определяет интерфейс для вывода результата.
type Exporter interface {
	// Export принимает финальный список сообщений и выводит их.
	Export(messages []domain.Message) error
}
