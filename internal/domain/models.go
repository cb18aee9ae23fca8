package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// MessageKind определяет вид сообщения: авторское или служебное.
type MessageKind string

const (
	// KindAuthored — обычное сообщение с отправителем.
	KindAuthored MessageKind = "authored"
	// KindSystem — служебное сообщение группы (без автора).
	KindSystem MessageKind = "system"
)

// SenderSystem — имя отправителя, которое подставляется служебным сообщениям.
const SenderSystem = "System"

// SystemCategory классифицирует служебное сообщение группы.
type SystemCategory string

const (
	SystemJoined             SystemCategory = "joined"
	SystemLeft               SystemCategory = "left"
	SystemCreated            SystemCategory = "created"
	SystemNameChanged        SystemCategory = "name_changed"
	SystemDescriptionChanged SystemCategory = "description_changed"
	SystemIconChanged        SystemCategory = "icon_changed"
	SystemEncryption         SystemCategory = "encryption"
	SystemEnded              SystemCategory = "ended"
	SystemOther              SystemCategory = "other"
)

// FileCategory определяет категорию вложения по расширению файла.
type FileCategory string

const (
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
	CategoryAudio    FileCategory = "audio"
	CategoryDocument FileCategory = "document"
	CategoryUnknown  FileCategory = "unknown"
)

// FileMap сопоставляет имена файлов из экспорта их содержимому.
type FileMap map[string][]byte

// Attachment описывает вложение, упомянутое в тексте сообщения и
// найденное среди файлов экспорта.
type Attachment struct {
	Filename string       `json:"filename"`
	Category FileCategory `json:"category"`
	// SourceMarker — точный фрагмент текста, по которому вложение было распознано.
	SourceMarker string `json:"source_marker"`
	// Content ссылается на данные файла из FileMap, копия не создается.
	Content []byte `json:"-"`
}

// Message представляет одно сообщение чата.
type Message struct {
	ID   int    `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
	// Timestamp выводится из Date и Time; нулевое значение означает,
	// что дату разобрать не удалось.
	Timestamp      time.Time      `json:"timestamp"`
	Sender         string         `json:"sender"`
	Body           string         `json:"body"`
	Kind           MessageKind    `json:"kind"`
	SystemCategory SystemCategory `json:"system_category,omitempty"`
	Attachment     *Attachment    `json:"attachment,omitempty"`
}

// PollOption представляет один вариант ответа опроса.
type PollOption struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll представляет опрос, извлеченный из текста сообщения.
type Poll struct {
	Title      string       `json:"title"`
	Options    []PollOption `json:"options"`
	TotalVotes int          `json:"total_votes"`
	// MaxVotes не бывает меньше 1, чтобы его можно было использовать
	// как делитель при отрисовке гистограммы голосов.
	MaxVotes int `json:"max_votes"`
}

// categoryByExt сопоставляет расширение файла (без точки, в нижнем регистре)
// категории вложения.
var categoryByExt = map[string]FileCategory{
	"jpg": CategoryImage, "jpeg": CategoryImage, "png": CategoryImage,
	"gif": CategoryImage, "webp": CategoryImage, "bmp": CategoryImage,

	"mp4": CategoryVideo, "avi": CategoryVideo, "mov": CategoryVideo,
	"mkv": CategoryVideo, "webm": CategoryVideo, "3gp": CategoryVideo,

	"mp3": CategoryAudio, "wav": CategoryAudio, "ogg": CategoryAudio,
	"m4a": CategoryAudio, "opus": CategoryAudio, "aac": CategoryAudio,

	"pdf": CategoryDocument, "doc": CategoryDocument, "docx": CategoryDocument,
	"xls": CategoryDocument, "xlsx": CategoryDocument, "ppt": CategoryDocument,
	"pptx": CategoryDocument, "txt": CategoryDocument, "csv": CategoryDocument,
	"rtf": CategoryDocument,
}

// CategoryForFilename определяет категорию вложения по последнему расширению
// имени файла. Сравнение регистронезависимое, содержимое файла не читается.
func CategoryForFilename(name string) FileCategory {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if c, ok := categoryByExt[ext]; ok {
		return c
	}
	return CategoryUnknown
}

// Icon возвращает пиктограмму категории для текстового вывода.
func (c FileCategory) Icon() string {
	switch c {
	case CategoryImage:
		return "🖼"
	case CategoryVideo:
		return "🎬"
	case CategoryAudio:
		return "🎵"
	case CategoryDocument:
		return "📄"
	default:
		return "📎"
	}
}
