package config

// Default values for bot configuration.
const (
	DefaultPollingIntervalSeconds = 5
	DefaultPollingTimeoutSeconds  = 1800
	DefaultExcelThreshold         = 50
	DefaultMessageLimit           = 200
	DefaultMaxMessageLimit        = 5000
	DefaultMaxChannelsPerRequest  = 5
	DefaultHTTPTimeoutSeconds     = 30
	DefaultPreviewRows            = 5
	DefaultPreviewColumnWidth     = 24
)
