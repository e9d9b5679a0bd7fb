package constants

// Default server configuration values
const (
	DefaultServerPort          = 8082
	DefaultServerReadTimeout   = 15
	DefaultServerWriteTimeout  = 15
	DefaultServerIdleTimeout   = 60
	DefaultGracefulShutdownSec = 30
	ServerErrorChannelSize     = 1
)

// Default outbound dispatch values
const (
	DefaultMetaAPIBaseURL = "https://graph.facebook.com"
	DefaultMetaAPIVersion = "v21.0"
	DefaultMetaTimeoutSec = 10
	DefaultMetaRetryCount = 1
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default rate limiting for agent send endpoints
const (
	DefaultSendRatePerSec = 5.0
	DefaultSendRateBurst  = 10
)

// Encryption salts for at-rest encryption key derivation
const (
	EncryptionSalt       = "inboxd-db-salt-v1"
	EncryptionLookupSalt = "inboxd-lookup-salt-v1"
)
