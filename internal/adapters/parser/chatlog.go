package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/ports"
)

// utf8BOM — необязательный маркер порядка байтов в начале экспорта.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerRe распознает строку-заголовок сообщения: "<дата>, <время> - <текст>".
// Дата — числовая в форме M/D/Y с годом из 2–4 цифр, разделители точки,
// дефисы и косые черты в любом сочетании. Время — H:MM с необязательными
// секундами и суффиксом am/pm в любом регистре; перед суффиксом WhatsApp
// ставит обычный, неразрывный или узкий неразрывный пробел.
var headerRe = regexp.MustCompile(
	`^(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}),[\s\x{202f}\x{00a0}]*` +
		`(\d{1,2}:\d{2}(?::\d{2})?(?:[\s\x{202f}\x{00a0}]*[AaPp]\.?[Mm]\.?)?)` +
		`\s+-\s+(.*)$`)

// invisibleReplacer убирает невидимые знаки направления текста,
// которые WhatsApp вставляет вокруг имен файлов и чисел.
var invisibleReplacer = strings.NewReplacer("‎", "", "‏", "", "\uFEFF", "")

// timestampLayouts перебираются по порядку при выводе момента времени из
// заголовка: сначала месяц впереди, затем день впереди, на каждую форму
// даты — 24-часовое и 12-часовое время.
var timestampLayouts = []string{
	"1/2/06 15:04", "1/2/2006 15:04", "2/1/06 15:04", "2/1/2006 15:04",
	"1/2/06 15:04:05", "1/2/2006 15:04:05", "2/1/06 15:04:05", "2/1/2006 15:04:05",
	"1/2/06 3:04 PM", "1/2/2006 3:04 PM", "2/1/06 3:04 PM", "2/1/2006 3:04 PM",
	"1/2/06 3:04:05 PM", "1/2/2006 3:04:05 PM", "2/1/06 3:04:05 PM", "2/1/2006 3:04:05 PM",
}

// dateSeparatorReplacer приводит разделители даты к косой черте.
var dateSeparatorReplacer = strings.NewReplacer(".", "/", "-", "/")

// ampmRe нормализует суффикс am/pm: убирает точки и выравнивает пробел.
var ampmRe = regexp.MustCompile(`(\d)[\s]*([AP])\.?M\.?$`)

// ChatLogParser реализует интерфейс Parser для текстового экспорта WhatsApp.
//
// Разбор построчный, без забегания вперед: строка, совпавшая с шаблоном
// заголовка, всегда начинает новое сообщение, даже если она встретилась
// посреди многострочного текста. Это осознанное упрощение: у формата
// экспорта нет экранирования, отличить такую строку от настоящего
// заголовка невозможно.
type ChatLogParser struct {
	classifier ports.Classifier
	resolver   ports.AttachmentResolver
}

// NewChatLogParser создает новый экземпляр ChatLogParser.
func NewChatLogParser(classifier ports.Classifier, resolver ports.AttachmentResolver) ports.Parser {
	return &ChatLogParser{
		classifier: classifier,
		resolver:   resolver,
	}
}

// Parse преобразует сырой текст экспорта в упорядоченный список сообщений.
//
// Единственная ошибка верхнего уровня — некорректная кодировка входа.
// Все остальные неоднородности поглощаются: строки до первого заголовка
// отбрасываются, строки без заголовка приклеиваются к текущему сообщению,
// неразобранная дата дает нулевой Timestamp при сохраненном литеральном
// тексте даты и времени.
func (p *ChatLogParser) Parse(raw []byte, files domain.FileMap) ([]domain.Message, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("экспорт не является корректным текстом UTF-8")
	}

	messages := []domain.Message{}
	var current *domain.Message

	// finalize завершает накапливаемое сообщение: для авторских сообщений
	// выполняется поиск вложения по полному тексту, включая строки-продолжения.
	finalize := func() {
		if current == nil {
			return
		}
		if current.Kind == domain.KindAuthored {
			if att, stripped := p.resolver.Resolve(current.Body, files); att != nil {
				current.Attachment = att
				current.Body = stripped
			}
		}
		current.ID = len(messages)
		messages = append(messages, *current)
		current = nil
	}

	lines := strings.Split(string(raw), "\n")
	// Завершающий перевод строки — терминатор последней строки,
	// а не пустая строка-продолжение.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	for _, rawLine := range lines {
		line := strings.TrimSpace(invisibleReplacer.Replace(rawLine))

		m := headerRe.FindStringSubmatch(line)
		if m == nil {
			// Продолжение многострочного сообщения; пустые строки сохраняются.
			// Строки до первого заголовка выбрасываются.
			if current != nil {
				current.Body += "\n" + line
			}
			continue
		}

		finalize()
		current = p.startMessage(m[1], m[2], m[3])
	}
	finalize()

	return messages, nil
}

// startMessage начинает новое сообщение из частей заголовка. Первое
// двоеточие в тексте с непустой левой частью отделяет отправителя от тела;
// без него вся строка — служебное сообщение с отправителем-заглушкой.
func (p *ChatLogParser) startMessage(date, timeText, rest string) *domain.Message {
	msg := &domain.Message{
		Date:      date,
		Time:      timeText,
		Timestamp: deriveTimestamp(date, timeText),
	}

	if idx := strings.Index(rest, ":"); idx > 0 {
		msg.Sender = strings.TrimSpace(rest[:idx])
		msg.Body = strings.TrimSpace(rest[idx+1:])
		msg.Kind = domain.KindAuthored
		return msg
	}

	msg.Sender = domain.SenderSystem
	msg.Body = rest
	msg.Kind = domain.KindSystem
	msg.SystemCategory = p.classifier.Classify(rest)
	return msg
}

// deriveTimestamp собирает момент времени из литеральных частей заголовка.
// Часовой пояс экспорта неизвестен, используется локальный. При полной
// неудаче возвращается нулевое время.
func deriveTimestamp(date, timeText string) time.Time {
	d := dateSeparatorReplacer.Replace(strings.TrimSpace(date))
	t := normalizeTime(timeText)

	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, d+" "+t, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// normalizeTime приводит суффикс am/pm к виду " AM"/" PM" и заменяет
// неразрывные пробелы обычными.
func normalizeTime(raw string) string {
	t := strings.Map(func(r rune) rune {
		if r == ' ' || r == ' ' {
			return ' '
		}
		return r
	}, raw)
	t = strings.ToUpper(strings.TrimSpace(t))
	return ampmRe.ReplaceAllString(t, "$1 ${2}M")
}
