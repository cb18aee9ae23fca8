package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	t.Run("NewFileSource создает корректный экземпляр", func(t *testing.T) {
		source := NewFileSource("export.txt")

		assert.NotNil(t, source)
	})

	t.Run("Fetch читает содержимое файла", func(t *testing.T) {
		content := []byte("1/2/24, 10:30 - Alice: hi")
		path := filepath.Join(t.TempDir(), "export.txt")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		source := NewFileSource(path)
		data, err := source.Fetch()

		assert.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("Fetch возвращает ошибку для пустого пути", func(t *testing.T) {
		source := NewFileSource("")

		data, err := source.Fetch()

		assert.Error(t, err)
		assert.Nil(t, data)
	})

	t.Run("Fetch возвращает ошибку для несуществующего файла", func(t *testing.T) {
		source := NewFileSource(filepath.Join(t.TempDir(), "missing.txt"))

		data, err := source.Fetch()

		assert.Error(t, err)
		assert.Nil(t, data)
	})
}
