package exporter

import (
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"whatsapp-chat-parser/internal/domain"
	trm "whatsapp-chat-parser/internal/pkg/term"
	"whatsapp-chat-parser/internal/ports"
)

// senderPalette — цвета имен отправителей. Цвет выбирается по хешу имени,
// поэтому не меняется от сообщения к сообщению.
var senderPalette = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgMagenta),
	color.New(color.FgBlue),
	color.New(color.FgHiCyan),
	color.New(color.FgHiGreen),
	color.New(color.FgHiMagenta),
}

var (
	systemColor     = color.New(color.FgHiBlack)
	attachmentColor = color.New(color.FgHiBlue)
)

// ConsoleExporter реализует интерфейс Exporter для вывода переписки в терминал.
type ConsoleExporter struct {
	out   io.Writer
	width int
}

// Option определяет функциональную опцию для конфигурации экспортера.
type Option func(*ConsoleExporter)

// WithWriter направляет вывод в произвольный io.Writer вместо stdout.
func WithWriter(w io.Writer) Option {
	return func(e *ConsoleExporter) {
		if w != nil {
			e.out = w
		}
	}
}

// WithWidth задает ширину вывода в колонках вместо ширины терминала.
func WithWidth(width int) Option {
	return func(e *ConsoleExporter) {
		if width > 0 {
			e.width = width
		}
	}
}

// NewConsoleExporter создает новый экземпляр ConsoleExporter.
func NewConsoleExporter(opts ...Option) ports.Exporter {
	e := &ConsoleExporter{
		out:   os.Stdout,
		width: trm.Width(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export выводит переписку в терминал: авторские сообщения с раскрашенным
// отправителем и переносом тела по словам, служебные — приглушенной строкой
// с категорией, вложения — отдельной строкой с пиктограммой категории.
func (e *ConsoleExporter) Export(messages []domain.Message) error {
	fmt.Fprintln(e.out, "--- Chat History ---")
	if len(messages) == 0 {
		fmt.Fprintln(e.out, "No messages found.")
		return nil
	}

	for _, msg := range messages {
		if err := e.writeMessage(msg); err != nil {
			return fmt.Errorf("не удалось вывести сообщение %d: %w", msg.ID, err)
		}
	}
	return nil
}

func (e *ConsoleExporter) writeMessage(msg domain.Message) error {
	stamp := fmt.Sprintf("[%s, %s]", msg.Date, msg.Time)

	if msg.Kind == domain.KindSystem {
		_, err := fmt.Fprintln(e.out, systemColor.Sprintf("%s %s [%s]", stamp, msg.Body, msg.SystemCategory))
		return err
	}

	// Ширина отступа считается по неокрашенному префиксу:
	// управляющие последовательности цвета ширины не имеют.
	plainPrefix := fmt.Sprintf("%s %s: ", stamp, msg.Sender)
	indent := strings.Repeat(" ", runewidth.StringWidth(plainPrefix))
	coloredPrefix := fmt.Sprintf("%s %s: ", stamp, senderColor(msg.Sender).Sprint(msg.Sender))

	for i, line := range bodyLines(msg.Body, e.width-runewidth.StringWidth(plainPrefix)) {
		prefix := indent
		if i == 0 {
			prefix = coloredPrefix
		}
		if _, err := fmt.Fprintln(e.out, prefix+line); err != nil {
			return err
		}
	}

	if att := msg.Attachment; att != nil {
		tag := fmt.Sprintf("%s %s (%s, %d bytes)", att.Category.Icon(), att.Filename, att.Category, len(att.Content))
		if _, err := fmt.Fprintln(e.out, indent+attachmentColor.Sprint(tag)); err != nil {
			return err
		}
	}
	return nil
}

// senderColor выбирает постоянный цвет для отправителя по хешу имени.
func senderColor(sender string) *color.Color {
	h := fnv.New32a()
	h.Write([]byte(sender))
	return senderPalette[h.Sum32()%uint32(len(senderPalette))]
}

// bodyLines разбивает тело сообщения на строки вывода,
// перенося каждую исходную строку по словам.
func bodyLines(body string, width int) []string {
	if width < 10 {
		width = 10
	}

	var lines []string
	for _, part := range strings.Split(body, "\n") {
		lines = append(lines, wrapLine(part, width)...)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// wrapLine переносит строку по словам, не превышая заданную ширину.
// Слово длиннее всей ширины остается на своей строке целиком.
func wrapLine(s string, width int) []string {
	if runewidth.StringWidth(s) <= width {
		return []string{s}
	}

	var lines []string
	var current strings.Builder
	for _, word := range strings.Fields(s) {
		lineWidth := runewidth.StringWidth(current.String())
		if current.Len() > 0 && lineWidth+1+runewidth.StringWidth(word) > width {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}

	if len(lines) == 0 {
		return []string{s}
	}
	return lines
}
