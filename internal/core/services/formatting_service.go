package services

import (
	"html"
	"regexp"
	"strings"

	"whatsapp-chat-parser/internal/ports"
)

// Подстановки применяются строго в порядке: жирный → курсив → зачеркнутый →
// моноширинный → ссылки → переводы строк. Более поздние проходы не должны
// совпадать внутри уже подставленной разметки, поэтому порядок менять нельзя.
var (
	// Парные маркеры WhatsApp действуют в пределах одной строки и не бывают пустыми.
	boldRe   = regexp.MustCompile(`\*([^*\n]+)\*`)
	italicRe = regexp.MustCompile(`_([^_\n]+)_`)
	strikeRe = regexp.MustCompile(`~([^~\n]+)~`)

	// Тройные обратные кавычки могут охватывать несколько строк, одиночные — нет.
	monoBlockRe  = regexp.MustCompile("```([^`]+)```")
	monoInlineRe = regexp.MustCompile("`([^`\n]+)`")

	// Ссылки обрабатываются одним проходом, чтобы адрес, подставленный в href,
	// не совпал повторно с шаблоном "www.".
	linkRe = regexp.MustCompile(`\b(?:https?://|www\.)[^\s<]+`)
)

// FormattingServiceImpl реализует интерфейс Formatter.
type FormattingServiceImpl struct{}

// NewFormattingService создает новый экземпляр FormattingServiceImpl.
func NewFormattingService() ports.Formatter {
	return &FormattingServiceImpl{}
}

// Format преобразует разметку WhatsApp в HTML. Спецсимволы HTML экранируются
// до подстановок. Функция чистая и детерминированная, но не идемпотентная:
// повторный вызов на уже отформатированном тексте обернет разметку еще раз.
func (s *FormattingServiceImpl) Format(body string) string {
	out := html.EscapeString(body)

	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicRe.ReplaceAllString(out, "<em>$1</em>")
	out = strikeRe.ReplaceAllString(out, "<del>$1</del>")
	out = monoBlockRe.ReplaceAllString(out, "<code>$1</code>")
	out = monoInlineRe.ReplaceAllString(out, "<code>$1</code>")

	out = linkRe.ReplaceAllStringFunc(out, func(match string) string {
		href := match
		// Адресам без протокола он синтезируется только внутри href,
		// видимый текст ссылки остается как в сообщении.
		if strings.HasPrefix(match, "www.") {
			href = "https://" + match
		}
		return `<a href="` + href + `">` + match + `</a>`
	})

	return strings.ReplaceAll(out, "\n", "<br>")
}
