package services

import (
	"testing"

	"whatsapp-chat-parser/internal/domain"
)

func TestClassificationService(t *testing.T) {
	t.Run("NewClassificationService создает корректный экземпляр", func(t *testing.T) {
		service := NewClassificationService()
		if service == nil {
			t.Error("Ожидался экземпляр Classifier, получен nil")
		}
	})

	service := NewClassificationService()

	t.Run("Классифицирует типовые служебные сообщения", func(t *testing.T) {
		cases := []struct {
			name string
			text string
			want domain.SystemCategory
		}{
			{"вступление по ссылке", "Bob joined using this group's invite link", domain.SystemJoined},
			{"добавление участника", "Alice added Bob", domain.SystemJoined},
			{"добавление текущего пользователя", "Alice added you", domain.SystemJoined},
			{"пассивное добавление", "You were added", domain.SystemJoined},
			{"удаление участника", "Alice removed Bob", domain.SystemLeft},
			{"выход из группы", "Bob left", domain.SystemLeft},
			{"создание группы", "Alice created group \"Weekend plans\"", domain.SystemCreated},
			{"смена названия", "Alice changed the subject from \"A\" to \"B\"", domain.SystemNameChanged},
			{"смена описания", "Bob changed the group description", domain.SystemDescriptionChanged},
			{"смена иконки", "Carol changed this group's icon", domain.SystemIconChanged},
			{"уведомление о шифровании", "Messages and calls are end-to-end encrypted. No one outside of this chat can read or listen to them.", domain.SystemEncryption},
			{"удаление группы", "Alice deleted this group", domain.SystemEnded},
			{"нераспознанный текст", "Some completely unrelated notice", domain.SystemOther},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got := service.Classify(tc.text)
				if got != tc.want {
					t.Errorf("Classify(%q): ожидалось %q, получено %q", tc.text, tc.want, got)
				}
			})
		}
	})

	t.Run("Поиск фраз регистронезависимый", func(t *testing.T) {
		got := service.Classify("BOB JOINED USING THIS GROUP'S INVITE LINK")
		if got != domain.SystemJoined {
			t.Errorf("Ожидалась категория %q, получено %q", domain.SystemJoined, got)
		}
	})

	t.Run("Порядок правил решает при нескольких совпадениях", func(t *testing.T) {
		// Фразы категорий joined и removed встречаются одновременно,
		// выиграть должна категория с большим приоритетом.
		got := service.Classify("Alice added Bob and removed Carol")
		if got != domain.SystemJoined {
			t.Errorf("Ожидалась категория %q, получено %q", domain.SystemJoined, got)
		}
	})

	t.Run("Шифрование имеет приоритет над завершением", func(t *testing.T) {
		// "end-to-end encrypted" проверяется раньше, чем "ended".
		got := service.Classify("This chat is end-to-end encrypted")
		if got != domain.SystemEncryption {
			t.Errorf("Ожидалась категория %q, получено %q", domain.SystemEncryption, got)
		}
	})

	t.Run("Функция чистая: повторный вызов дает тот же результат", func(t *testing.T) {
		text := "Bob joined using this group's invite link"
		first := service.Classify(text)
		second := service.Classify(text)
		if first != second {
			t.Errorf("Ожидался одинаковый результат, получено %q и %q", first, second)
		}
	})

	t.Run("Пустой текст дает категорию other", func(t *testing.T) {
		if got := service.Classify(""); got != domain.SystemOther {
			t.Errorf("Ожидалась категория %q, получено %q", domain.SystemOther, got)
		}
	})
}
