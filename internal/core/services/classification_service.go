package services

import (
	"strings"

	"whatsapp-chat-parser/internal/domain"
	"whatsapp-chat-parser/internal/ports"
)

// classificationRule связывает категорию служебного сообщения со списком
// характерных фраз экспорта WhatsApp.
type classificationRule struct {
	category domain.SystemCategory
	phrases  []string
}

// classificationRules перебираются строго по порядку: первая совпавшая фраза
// определяет категорию. Перестановка правил меняет результат для сообщений,
// в которых встречается несколько фраз.
var classificationRules = []classificationRule{
	{domain.SystemJoined, []string{"joined", "was added", "were added", "added you", " added "}},
	{domain.SystemLeft, []string{"removed", " left"}},
	{domain.SystemCreated, []string{"created group", "created this group", "created the group"}},
	{domain.SystemNameChanged, []string{"changed the subject", "changed the group name"}},
	{domain.SystemDescriptionChanged, []string{"changed the group description", "group description"}},
	{domain.SystemIconChanged, []string{"changed this group's icon", "changed the group icon", "group's icon"}},
	{domain.SystemEncryption, []string{"end-to-end encrypted", "encryption"}},
	{domain.SystemEnded, []string{"ended", "deleted this group"}},
}

// ClassificationServiceImpl реализует интерфейс Classifier.
type ClassificationServiceImpl struct{}

// NewClassificationService создает новый экземпляр ClassificationServiceImpl.
func NewClassificationService() ports.Classifier {
	return &ClassificationServiceImpl{}
}

// Classify относит текст служебного сообщения к одной из фиксированных категорий.
// Поиск фраз регистронезависимый, функция чистая и всегда возвращает категорию:
// если ни одна фраза не найдена — domain.SystemOther.
func (s *ClassificationServiceImpl) Classify(text string) domain.SystemCategory {
	lower := strings.ToLower(text)

	for _, rule := range classificationRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.category
			}
		}
	}

	return domain.SystemOther
}
