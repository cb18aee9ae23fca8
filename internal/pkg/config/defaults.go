package config

import "time"

// Default values for configuration.
const (
	// Server defaults
	DefaultServerHost      = "0.0.0.0"
	DefaultServerPort      = 8080
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxUploadSizeMB = 10

	// Processing defaults
	DefaultTaskTimeout       = 600 * time.Second
	DefaultCacheTTL          = 60 * time.Minute
	DefaultCleanupInterval   = 1 * time.Hour
	DefaultMaxArchiveEntryMB = 50
	DefaultPoolSize          = 2

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)
