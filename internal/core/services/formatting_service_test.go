package services

import (
	"strings"
	"testing"
)

func TestFormattingService(t *testing.T) {
	t.Run("NewFormattingService создает корректный экземпляр", func(t *testing.T) {
		service := NewFormattingService()
		if service == nil {
			t.Error("Ожидался экземпляр Formatter, получен nil")
		}
	})

	service := NewFormattingService()

	t.Run("Подстановки разметки", func(t *testing.T) {
		cases := []struct {
			name string
			in   string
			want string
		}{
			{"жирный", "*bold*", "<strong>bold</strong>"},
			{"курсив", "_italic_", "<em>italic</em>"},
			{"зачеркнутый", "~strike~", "<del>strike</del>"},
			{"моноширинный блок", "```code```", "<code>code</code>"},
			{"моноширинный однострочный", "`mono`", "<code>mono</code>"},
			{"перевод строки", "a\nb", "a<br>b"},
			{"ссылка с протоколом", "see https://example.com now", `see <a href="https://example.com">https://example.com</a> now`},
			{"ссылка без протокола", "www.example.com", `<a href="https://www.example.com">www.example.com</a>`},
			{"обычный текст без изменений", "hello world", "hello world"},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got := service.Format(tc.in)
				if got != tc.want {
					t.Errorf("Format(%q):\nожидалось %q\nполучено  %q", tc.in, tc.want, got)
				}
			})
		}
	})

	t.Run("HTML экранируется до подстановок", func(t *testing.T) {
		got := service.Format("<script>alert(1)</script> *x*")

		if strings.Contains(got, "<script>") {
			t.Errorf("Ожидалось экранирование HTML, получено %q", got)
		}
		if !strings.Contains(got, "<strong>x</strong>") {
			t.Errorf("Ожидалась разметка жирного текста, получено %q", got)
		}
	})

	t.Run("Пустые пары маркеров не подставляются", func(t *testing.T) {
		got := service.Format("** __ ~~")

		if got != "** __ ~~" {
			t.Errorf("Ожидался неизменный текст, получено %q", got)
		}
	})

	t.Run("Маркер не действует через перевод строки", func(t *testing.T) {
		got := service.Format("a *b\nc* d")

		if strings.Contains(got, "<strong>") {
			t.Errorf("Ожидалось отсутствие разметки через перевод строки, получено %q", got)
		}
	})

	t.Run("Тройные кавычки охватывают несколько строк", func(t *testing.T) {
		got := service.Format("```line1\nline2```")

		if !strings.HasPrefix(got, "<code>") {
			t.Errorf("Ожидался моноширинный блок, получено %q", got)
		}
		// Переводы строк внутри блока заменяются последним проходом.
		if !strings.Contains(got, "line1<br>line2") {
			t.Errorf("Ожидался перенос внутри блока, получено %q", got)
		}
	})

	t.Run("Адрес в href не оборачивается повторно", func(t *testing.T) {
		got := service.Format("https://www.example.com")

		want := `<a href="https://www.example.com">https://www.example.com</a>`
		if got != want {
			t.Errorf("Ожидалось %q, получено %q", want, got)
		}
	})

	t.Run("Вложенная разметка внутри жирного", func(t *testing.T) {
		got := service.Format("*see https://example.com*")

		want := `<strong>see <a href="https://example.com">https://example.com</a></strong>`
		if got != want {
			t.Errorf("Ожидалось %q, получено %q", want, got)
		}
	})

	t.Run("Результат детерминированный", func(t *testing.T) {
		in := "*a* _b_ ~c~ `d` https://e.fg\nhi"
		if service.Format(in) != service.Format(in) {
			t.Error("Ожидался одинаковый результат повторных вызовов")
		}
	})
}
