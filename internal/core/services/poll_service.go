package services

import (
	"regexp"
	"strconv"
	"strings"

	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/ports"
)

var (
	// pollIndicatorRe — признак опроса в первой строке: префикс "POLL:" или символ 📊.
	pollIndicatorRe = regexp.MustCompile(`(?i)poll:|📊`)

	// optionPrefixRe — помеченный вариант ответа: префикс "OPTION:" или маркер списка.
	optionPrefixRe = regexp.MustCompile(`(?i)^(?:option:|[-•▪*]\s)\s*(.+)$`)

	// voteCountRe — счетчик голосов в конце строки: "(3)", "(3 votes)", "(1 vote)".
	voteCountRe = regexp.MustCompile(`(?i)\s*\((\d+)(?:\s*votes?)?\)$`)

	// pollTitleRe — заголовок после префикса "POLL:" в первой строке.
	pollTitleRe = regexp.MustCompile(`(?i)poll:\s*(.*)$`)
)

// PollServiceImpl реализует интерфейс PollExtractor.
type PollServiceImpl struct{}

// NewPollService создает новый экземпляр PollServiceImpl.
func NewPollService() ports.PollExtractor {
	return &PollServiceImpl{}
}

// Extract пытается разобрать текст сообщения как опрос. Это эвристика,
// а не строгая грамматика: текст признается опросом, только если в первой
// строке есть признак опроса, дальше нашлись хотя бы два варианта ответа
// и хотя бы одна строка помечена как вариант.
func (s *PollServiceImpl) Extract(body string) *domain.Poll {
	lines := trimmedLines(body)
	if len(lines) < 3 {
		return nil
	}

	if !pollIndicatorRe.MatchString(lines[0]) {
		return nil
	}

	if !hasOptionIndicator(lines[1:]) {
		return nil
	}

	title, optionStart := pollTitle(lines)

	var options []domain.PollOption
	for _, line := range lines[optionStart:] {
		if opt, ok := parseOption(line); ok {
			options = append(options, opt)
		}
	}
	if len(options) < 2 {
		return nil
	}

	total, max := 0, 0
	for _, opt := range options {
		total += opt.Votes
		if opt.Votes > max {
			max = opt.Votes
		}
	}
	// Нижняя граница 1, чтобы долю голосов можно было считать делением.
	if max < 1 {
		max = 1
	}

	return &domain.Poll{
		Title:      title,
		Options:    options,
		TotalVotes: total,
		MaxVotes:   max,
	}
}

// trimmedLines разбивает текст на строки, отбрасывая пустые.
func trimmedLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// hasOptionIndicator сообщает, помечена ли хотя бы одна строка как вариант ответа.
func hasOptionIndicator(lines []string) bool {
	for _, line := range lines {
		if optionPrefixRe.MatchString(line) || voteCountRe.MatchString(line) {
			return true
		}
	}
	return false
}

// pollTitle выбирает заголовок опроса и возвращает индекс строки,
// с которой начинаются варианты ответов. Непустой остаток первой строки
// после "POLL:" становится заголовком; иначе заголовок — вторая строка,
// и она не участвует в разборе вариантов.
func pollTitle(lines []string) (string, int) {
	if m := pollTitleRe.FindStringSubmatch(lines[0]); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, 1
		}
	}
	return lines[1], 2
}

// parseOption пытается разобрать строку как вариант ответа.
// Сначала помеченная форма "OPTION: текст (N)", затем голая "текст (N)";
// у голой формы счетчик голосов обязателен.
func parseOption(line string) (domain.PollOption, bool) {
	if m := optionPrefixRe.FindStringSubmatch(line); m != nil {
		text := strings.TrimSpace(m[1])
		votes := 0
		if v := voteCountRe.FindStringSubmatch(text); v != nil {
			votes, _ = strconv.Atoi(v[1])
			text = strings.TrimSpace(strings.TrimSuffix(text, v[0]))
		}
		if text == "" {
			return domain.PollOption{}, false
		}
		return domain.PollOption{Text: text, Votes: votes}, true
	}

	if v := voteCountRe.FindStringSubmatch(line); v != nil {
		text := strings.TrimSpace(strings.TrimSuffix(line, v[0]))
		if text == "" {
			return domain.PollOption{}, false
		}
		votes, _ := strconv.Atoi(v[1])
		return domain.PollOption{Text: text, Votes: votes}, true
	}

	return domain.PollOption{}, false
}
