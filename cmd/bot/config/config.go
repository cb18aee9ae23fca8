package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ColumnWidths определяет ширину колонок для текстового вывода сообщений.
type ColumnWidths struct {
	Date       int `yaml:"date"`
	Time       int `yaml:"time"`
	Sender     int `yaml:"sender"`
	Message    int `yaml:"message"`
	Attachment int `yaml:"attachment"`
}

// LoggingConfig настраивает уровень и формат логов бота.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BotConfig содержит конфигурацию для Telegram-бота
type BotConfig struct {
	Token                  string        `yaml:"token"`
	BackendURL             string        `yaml:"backend_url"`
	PollingIntervalSeconds int           `yaml:"polling_interval_seconds"`
	ExcelThreshold         int           `yaml:"excel_threshold"`
	MaxFilesPerMessage     int           `yaml:"max_files_per_message"`
	FileBatchTimeoutSecs   int           `yaml:"file_batch_timeout_seconds"`
	HTTPTimeoutSeconds     int           `yaml:"http_timeout_seconds"`
	Render                 ColumnWidths  `yaml:"render"`
	Logging                LoggingConfig `yaml:"logging"`
}

// Config является оберткой для соответствия структуре YAML файла.
type Config struct {
	Bot BotConfig `yaml:"bot"`
}

// LoadBotConfig загружает конфигурацию бота из указанного файла.
func LoadBotConfig(filename string) (*BotConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read bot config file %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bot config: %w", err)
	}

	// Устанавливаем значения по умолчанию
	botCfg := &cfg.Bot
	if botCfg.PollingIntervalSeconds == 0 {
		botCfg.PollingIntervalSeconds = DefaultPollingIntervalSeconds
	}
	if botCfg.ExcelThreshold == 0 {
		botCfg.ExcelThreshold = DefaultExcelThreshold
	}
	if botCfg.MaxFilesPerMessage == 0 {
		botCfg.MaxFilesPerMessage = DefaultMaxFilesPerMessage
	}
	if botCfg.FileBatchTimeoutSecs == 0 {
		botCfg.FileBatchTimeoutSecs = DefaultFileBatchTimeoutSecs
	}
	if botCfg.HTTPTimeoutSeconds == 0 {
		botCfg.HTTPTimeoutSeconds = DefaultHTTPTimeoutSeconds
	}
	if botCfg.Render.Date == 0 {
		botCfg.Render.Date = DefaultDateColumnWidth
	}
	if botCfg.Render.Time == 0 {
		botCfg.Render.Time = DefaultTimeColumnWidth
	}
	if botCfg.Render.Sender == 0 {
		botCfg.Render.Sender = DefaultSenderColumnWidth
	}
	if botCfg.Render.Message == 0 {
		botCfg.Render.Message = DefaultMessageColumnWidth
	}
	if botCfg.Render.Attachment == 0 {
		botCfg.Render.Attachment = DefaultAttachmentColumnWidth
	}
	if botCfg.Logging.Level == "" {
		botCfg.Logging.Level = DefaultLogLevel
	}
	if botCfg.Logging.Format == "" {
		botCfg.Logging.Format = DefaultLogFormat
	}

	return botCfg, nil
}

// Validate проверяет корректность конфигурации бота.
func (c *BotConfig) Validate() error {
	if c.Token == "" || c.Token == "YOUR_TELEGRAM_BOT_TOKEN" {
		return fmt.Errorf("bot.token is not configured")
	}
	if c.BackendURL == "" {
		return fmt.Errorf("bot.backend_url cannot be empty")
	}
	if c.PollingIntervalSeconds <= 0 {
		return fmt.Errorf("bot.polling_interval_seconds must be positive")
	}
	if c.ExcelThreshold <= 0 {
		return fmt.Errorf("bot.excel_threshold must be positive")
	}
	if c.MaxFilesPerMessage <= 0 {
		return fmt.Errorf("bot.max_files_per_message must be positive")
	}
	if c.FileBatchTimeoutSecs <= 0 {
		return fmt.Errorf("bot.file_batch_timeout_seconds must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("bot.http_timeout_seconds must be positive")
	}
	return nil
}
