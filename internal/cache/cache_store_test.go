package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-chat-parser/internal/domain"
)

func sampleMessages() []domain.Message {
	return []domain.Message{
		{ID: 0, Sender: "Alice", Body: "hi", Kind: domain.KindAuthored},
	}
}

func TestCacheStore(t *testing.T) {
	t.Run("Создание нового хранилища кэша", func(t *testing.T) {
		cs := NewCacheStore()
		assert.NotNil(t, cs)
		assert.NotNil(t, cs.cache)
	})

	t.Run("Запись и чтение из кэша", func(t *testing.T) {
		cs := NewCacheStore()
		key := "test_key"
		messages := sampleMessages()
		files := domain.FileMap{"photo.jpg": []byte{1}}
		ttl := 1 * time.Minute

		cs.Put(key, messages, files, ttl)

		item, found := cs.Get(key)
		require.True(t, found)
		require.NotNil(t, item)
		assert.Equal(t, messages, item.Messages)
		assert.Equal(t, files, item.Files)
		assert.WithinDuration(t, time.Now().Add(ttl), item.ExpiresAt, 1*time.Second)
	})

	t.Run("Чтение несуществующего ключа", func(t *testing.T) {
		cs := NewCacheStore()
		_, found := cs.Get("non_existent_key")
		assert.False(t, found)
	})

	t.Run("Чтение просроченного ключа", func(t *testing.T) {
		cs := NewCacheStore()
		key := "expired_key"
		ttl := -1 * time.Second // Просрочено в прошлом

		cs.Put(key, sampleMessages(), nil, ttl)

		_, found := cs.Get(key)
		assert.False(t, found)
	})

	t.Run("Полная очистка кэша", func(t *testing.T) {
		cs := NewCacheStore()
		cs.Put("a", sampleMessages(), nil, time.Minute)
		cs.Put("b", sampleMessages(), nil, time.Minute)

		cs.Flush()

		_, foundA := cs.Get("a")
		_, foundB := cs.Get("b")
		assert.False(t, foundA)
		assert.False(t, foundB)
	})

	t.Run("Очистка просроченных ключей", func(t *testing.T) {
		cs := NewCacheStore()
		expiredKey := "expired"
		validKey := "valid"

		cs.Put(expiredKey, sampleMessages(), nil, -1*time.Minute)
		cs.Put(validKey, sampleMessages(), nil, 1*time.Minute)

		cs.CleanupExpired()

		_, foundExpired := cs.Get(expiredKey)
		assert.False(t, foundExpired, "Просроченный элемент должен быть удален")

		_, foundValid := cs.Get(validKey)
		assert.True(t, foundValid, "Действительный элемент не должен быть удален")
	})
}

func TestStartCleanupTicker(t *testing.T) {
	cs := NewCacheStore()
	expiredKey := "expired"
	validKey := "valid"

	cs.Put(expiredKey, sampleMessages(), nil, 50*time.Millisecond)
	cs.Put(validKey, sampleMessages(), nil, 1*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs.StartCleanupTicker(ctx, 100*time.Millisecond)

	// Ждем, пока таймер сработает хотя бы раз
	time.Sleep(150 * time.Millisecond)

	_, foundExpired := cs.Get(expiredKey)
	assert.False(t, foundExpired, "Просроченный элемент должен быть удален таймером")

	_, foundValid := cs.Get(validKey)
	assert.True(t, foundValid, "Действительный элемент должен остаться")

	// Убеждаемся, что горутина останавливается
	cancel()
	time.Sleep(50 * time.Millisecond) // Даем время на реакцию на отмену
}

func TestCalculateFileHash(t *testing.T) {
	t.Run("Успешное вычисление хеша", func(t *testing.T) {
		content := []byte("hello world")
		tmpFile, err := os.CreateTemp("", "testhash_*.txt")
		require.NoError(t, err)
		defer os.Remove(tmpFile.Name())

		_, err = tmpFile.Write(content)
		require.NoError(t, err)
		require.NoError(t, tmpFile.Close())

		hash, err := CalculateFileHash(tmpFile.Name())
		require.NoError(t, err)
		// SHA256 для "hello world"
		expectedHash := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
		assert.Equal(t, expectedHash, hash)
	})

	t.Run("Файл не найден", func(t *testing.T) {
		_, err := CalculateFileHash("non_existent_file.txt")
		assert.Error(t, err)
	})

	t.Run("Невозможно прочитать файл", func(t *testing.T) {
		tmpDir, err := os.MkdirTemp("", "testhashdir_*")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		_, err = CalculateFileHash(tmpDir)
		assert.Error(t, err, "Должна быть ошибка при попытке хешировать директорию")
	})
}

func TestCalculateHashFromBytes(t *testing.T) {
	t.Run("Хеш данных в памяти совпадает с хешем файла", func(t *testing.T) {
		hash := CalculateHashFromBytes([]byte("hello world"))
		assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hash)
	})

	t.Run("Разные данные дают разные хеши", func(t *testing.T) {
		assert.NotEqual(t, CalculateHashFromBytes([]byte("a")), CalculateHashFromBytes([]byte("b")))
	})
}
