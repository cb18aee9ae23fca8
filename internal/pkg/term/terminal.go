package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

// Terminal обеспечивает интерактивный ввод в терминале.
type Terminal struct {
	in      *bufio.Reader
	out     io.Writer
	stdinfd int
}

// NewTerminal создает новый экземпляр Terminal.
func NewTerminal() *Terminal {
	return &Terminal{
		in:      bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		stdinfd: int(os.Stdin.Fd()),
	}
}

// ReadSecret запрашивает секрет без эха ввода. Вне терминала (например,
// при передаче через конвейер) секрет читается обычной строкой.
func (t *Terminal) ReadSecret(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)

	if !term.IsTerminal(t.stdinfd) {
		line, err := t.in.ReadString('\n')
		if err != nil {
			return "", xerrors.Errorf("failed to read secret: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	bytePwd, err := term.ReadPassword(t.stdinfd)
	if err != nil {
		return "", xerrors.Errorf("failed to read secret: %w", err)
	}
	fmt.Fprintln(t.out) // Новая строка после скрытого ввода
	return string(bytePwd), nil
}

// Width возвращает ширину терминала в колонках; вне терминала — 80.
func Width() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
