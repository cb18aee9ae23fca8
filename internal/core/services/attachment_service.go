package services

import (
	"regexp"
	"strings"

	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/ports"
)

// Шаблоны маркеров вложений. Проверяются строго в этом порядке,
// перестановка меняет результат для неоднозначных текстов.
var (
	// markerExplicitRe — явный маркер вида "<attached: IMG-20240101-WA0001.jpg>".
	// Экспорт iOS вставляет внутрь скобок невидимый знак направления текста.
	markerExplicitRe = regexp.MustCompile(`<\x{200e}?attached:\s*([^>]+?)\s*>`)

	// markerParentheticalRe — имя файла, за которым следует пометка
	// "(file attached)" или "(image attached)" в конце строки.
	markerParentheticalRe = regexp.MustCompile(`(?m)^\s*(.+?)\s*\((?:file|image) attached\)\s*$`)

	// markerCameraRe — имена файлов камеры и экспорта WhatsApp,
	// например IMG-20240101-WA0001.jpg или PTT-20240101-WA0002.opus.
	markerCameraRe = regexp.MustCompile(`(?i)\b(?:IMG|VID|AUD|PTT|STK|DOC)-\d{8}-WA\d{4,}\.[a-z0-9]{2,4}\b`)

	// markerDocumentRe — одиночное имя файла с известным документным
	// или аудио расширением.
	markerDocumentRe = regexp.MustCompile(`(?i)\b[\w\-.]+\.(?:pdf|docx?|xlsx?|pptx?|txt|csv|rtf|mp3|wav|ogg|m4a|opus|aac)\b`)
)

// AttachmentServiceImpl реализует интерфейс AttachmentResolver.
type AttachmentServiceImpl struct{}

// NewAttachmentService создает новый экземпляр AttachmentServiceImpl.
func NewAttachmentService() ports.AttachmentResolver {
	return &AttachmentServiceImpl{}
}

// Resolve ищет в тексте маркер вложения и сопоставляет найденное имя с
// таблицей файлов экспорта. Таблица не изменяется, содержимое файла не
// копируется. Маркер вырезается из текста только при успешном сопоставлении;
// во всех остальных случаях текст возвращается без изменений.
func (s *AttachmentServiceImpl) Resolve(body string, files domain.FileMap) (*domain.Attachment, string) {
	// Явный маркер однозначно называет файл: если его нет в таблице,
	// остальные шаблоны не проверяются и маркер остается в тексте.
	if m := markerExplicitRe.FindStringSubmatch(body); m != nil {
		name := trimInvisible(m[1])
		if content, ok := files[name]; ok {
			return newAttachment(name, m[0], content), stripMarker(body, m[0])
		}
		return nil, body
	}

	if m := markerParentheticalRe.FindStringSubmatch(body); m != nil {
		name := trimInvisible(m[1])
		if content, ok := files[name]; ok {
			marker := strings.TrimSpace(m[0])
			return newAttachment(name, marker, content), stripMarker(body, marker)
		}
		// Кандидат не нашелся в таблице — даем шанс голым именам файлов.
	}

	for _, re := range []*regexp.Regexp{markerCameraRe, markerDocumentRe} {
		for _, name := range re.FindAllString(body, -1) {
			if content, ok := files[name]; ok {
				return newAttachment(name, name, content), stripMarker(body, name)
			}
		}
	}

	return nil, body
}

// newAttachment собирает описание вложения; категория выводится из расширения.
func newAttachment(name, marker string, content []byte) *domain.Attachment {
	return &domain.Attachment{
		Filename:     name,
		Category:     domain.CategoryForFilename(name),
		SourceMarker: marker,
		Content:      content,
	}
}

// trimInvisible убирает пробелы и невидимые знаки направления текста
// по краям имени файла.
func trimInvisible(name string) string {
	return strings.Trim(name, " ‎‏")
}

// stripMarker удаляет первое вхождение маркера и пробелы по краям результата.
func stripMarker(body, marker string) string {
	return strings.TrimSpace(strings.Replace(body, marker, "", 1))
}
