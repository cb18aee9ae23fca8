// Package config предоставляет управление конфигурацией приложения
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Duration оборачивает time.Duration для разбора значений YAML
// вида "30s" или "15m"; числовое значение трактуется как секунды.
type Duration time.Duration

// UnmarshalYAML реализует yaml.Unmarshaler для Duration
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(n * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("недопустимое значение длительности: %q", raw)
}

// Duration возвращает значение как time.Duration
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Server содержит конфигурацию HTTP-сервера
type Server struct {
	Host            string   `json:"host" yaml:"host"`
	Port            int      `json:"port" yaml:"port"`
	ShutdownTimeout Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxUploadSizeMB int      `json:"max_upload_size_mb" yaml:"max_upload_size_mb"`
}

// MaxUploadBytes возвращает предел размера multipart-загрузки в байтах
func (s Server) MaxUploadBytes() int64 {
	return int64(s.MaxUploadSizeMB) << 20
}

// Processing содержит конфигурацию обработки экспортов
type Processing struct {
	TaskTimeout       Duration `json:"task_timeout" yaml:"task_timeout"` // 0 - без ограничений
	CacheTTL          Duration `json:"cache_ttl" yaml:"cache_ttl"`
	CleanupInterval   Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
	MaxArchiveEntryMB int      `json:"max_archive_entry_mb" yaml:"max_archive_entry_mb"`
	PoolSize          int      `json:"pool_size" yaml:"pool_size"`
}

// MaxArchiveEntryBytes возвращает предел размера одного файла внутри архива в байтах
func (p Processing) MaxArchiveEntryBytes() int64 {
	return int64(p.MaxArchiveEntryMB) << 20
}

// Logging содержит конфигурацию логирования
type Logging struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text, json
}

// Admin содержит настройки администрирования сервера
type Admin struct {
	PromptToken bool `json:"prompt_token" yaml:"prompt_token"`
}

// Config содержит конфигурацию приложения
type Config struct {
	Server     Server     `json:"server" yaml:"server"`
	Processing Processing `json:"processing" yaml:"processing"`
	Logging    Logging    `json:"logging" yaml:"logging"`
	Admin      Admin      `json:"admin" yaml:"admin"`
}

// defaultConfig возвращает конфигурацию со значениями по умолчанию
func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:            DefaultServerHost,
			Port:            DefaultServerPort,
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxUploadSizeMB: DefaultMaxUploadSizeMB,
		},
		Processing: Processing{
			TaskTimeout:       Duration(DefaultTaskTimeout),
			CacheTTL:          Duration(DefaultCacheTTL),
			CleanupInterval:   Duration(DefaultCleanupInterval),
			MaxArchiveEntryMB: DefaultMaxArchiveEntryMB,
			PoolSize:          DefaultPoolSize,
		},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// LoadConfig загружает конфигурацию приложения: значения по умолчанию,
// поверх них config.yml (если он существует), поверх него переменные
// окружения (.env файл поддерживается через godotenv)
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла, если он существует
	_ = godotenv.Load()

	cfg := defaultConfig()

	if err := loadFromYAML("config.yml", cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromYAML накладывает значения из YAML-файла поверх cfg.
// Отсутствие файла ошибкой не считается.
func loadFromYAML(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("не удалось прочитать файл конфигурации %s: %w", filename, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("не удалось разобрать YAML конфигурацию: %w", err)
	}

	return nil
}

// applyEnv накладывает переменные окружения поверх cfg
func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.Server.ShutdownTimeout = Duration(d)
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE_MB"); v != "" {
		mb, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый MAX_UPLOAD_SIZE_MB: %w", err)
		}
		cfg.Server.MaxUploadSizeMB = mb
	}
	if v := os.Getenv("TASK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый TASK_TIMEOUT: %w", err)
		}
		cfg.Processing.TaskTimeout = Duration(d)
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("недопустимый CACHE_TTL: %w", err)
		}
		cfg.Processing.CacheTTL = Duration(d)
	}
	if v := os.Getenv("POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("недопустимый POOL_SIZE: %w", err)
		}
		cfg.Processing.PoolSize = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Address возвращает адрес сервера в формате "host:port"
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate проверяет, являются ли значения конфигурации допустимыми
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port должен быть действительным номером порта (1-65535)")
	}

	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("server.shutdown_timeout должно быть положительным")
	}

	if c.Server.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("server.max_upload_size_mb должно быть положительным")
	}

	if c.Processing.TaskTimeout.Duration() < 0 {
		return fmt.Errorf("processing.task_timeout должно быть неотрицательным (0 для отсутствия ограничений)")
	}

	if c.Processing.CacheTTL.Duration() <= 0 {
		return fmt.Errorf("processing.cache_ttl должно быть положительным")
	}

	if c.Processing.CleanupInterval.Duration() <= 0 {
		return fmt.Errorf("processing.cleanup_interval должно быть положительным")
	}

	if c.Processing.MaxArchiveEntryMB <= 0 {
		return fmt.Errorf("processing.max_archive_entry_mb должно быть положительным целым числом")
	}

	if c.Processing.PoolSize <= 0 {
		return fmt.Errorf("processing.pool_size должно быть положительным")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level должен быть одним из: debug, info, warn, error")
	}

	switch c.Logging.Format {
	case "text", "json":
		// all good
	default:
		return fmt.Errorf("logging.format должен быть одним из: text, json")
	}

	return nil
}
