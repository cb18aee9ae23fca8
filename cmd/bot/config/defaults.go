package config

// Значения по умолчанию для настроек бота.
const (
	DefaultPollingIntervalSeconds = 3
	DefaultExcelThreshold         = 40
	DefaultMaxFilesPerMessage     = 10
	DefaultFileBatchTimeoutSecs   = 3
	DefaultHTTPTimeoutSeconds     = 30

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default column widths for text rendering.
const (
	DefaultDateColumnWidth       = 10
	DefaultTimeColumnWidth       = 5
	DefaultSenderColumnWidth     = 16
	DefaultMessageColumnWidth    = 32
	DefaultAttachmentColumnWidth = 22
)
