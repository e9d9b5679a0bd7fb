package models

// Config holds the application configuration
type Config struct {
	Meta          MetaConfig          `json:"meta"`
	Webhook       WebhookConfig       `json:"webhook"`
	Database      DatabaseConfig      `json:"database"`
	Server        ServerConfig        `json:"server"`
	LoopGuard     LoopGuardConfig     `json:"loopGuard"`
	AutoResponder AutoResponderConfig `json:"autoResponder"`
	Tracing       TracingConfig       `json:"tracing"`
	Retry         RetryConfig         `json:"retry"`
	LogLevel      string              `json:"log_level"`
}

// MetaConfig holds Graph API related configuration
type MetaConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	APIVersion  string `json:"api_version"`
	PageID      string `json:"page_id"`
	AccessToken string `json:"access_token"`
	TimeoutSec  int    `json:"timeoutSec"`
	RetryCount  int    `json:"retry_count"`
	CloseSurvey string `json:"close_survey_message"`
}

// WebhookConfig holds inbound webhook verification settings
type WebhookConfig struct {
	VerifyToken string `json:"verify_token"`
	Secret      string `json:"secret"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int     `json:"port"`
	SendRatePerSec float64 `json:"sendRatePerSec"`
	SendRateBurst  int     `json:"sendRateBurst"`
}

// LoopGuardConfig holds the known auto-reply signatures. An inbound event
// whose text exactly or prefix-matches a signature is dropped before any
// store write happens.
type LoopGuardConfig struct {
	Signatures []string `json:"signatures"`
}

// AutoResponderConfig drives the optional keyword auto-reply on public
// comments.
type AutoResponderConfig struct {
	Enabled      bool     `json:"enabled"`
	Keywords     []string `json:"keywords"`
	CommentReply string   `json:"comment_reply"`
	DMReply      string   `json:"dm_reply"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

// RetryConfig holds retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
