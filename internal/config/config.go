package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"inboxd/internal/constants"
	"inboxd/internal/models"
)

var (
	ErrMissingVerifyToken = models.ConfigError{Message: "missing webhook verify token"}
	ErrMissingAccessToken = models.ConfigError{Message: "missing Meta access token"}
	ErrMissingPageID      = models.ConfigError{Message: "missing Meta page ID"}
	ErrMissingDBPath      = models.ConfigError{Message: "missing database path"}
)

func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Webhook.VerifyToken == "" {
		return ErrMissingVerifyToken
	}
	if c.Meta.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.Meta.PageID == "" {
		return ErrMissingPageID
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}

	if c.Meta.APIBaseURL == "" {
		c.Meta.APIBaseURL = constants.DefaultMetaAPIBaseURL
	}
	if c.Meta.APIVersion == "" {
		c.Meta.APIVersion = constants.DefaultMetaAPIVersion
	}
	if c.Meta.TimeoutSec <= 0 {
		c.Meta.TimeoutSec = constants.DefaultMetaTimeoutSec
	}
	if c.Meta.RetryCount <= 0 {
		c.Meta.RetryCount = constants.DefaultMetaRetryCount
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.SendRatePerSec <= 0 {
		c.Server.SendRatePerSec = constants.DefaultSendRatePerSec
	}
	if c.Server.SendRateBurst <= 0 {
		c.Server.SendRateBurst = constants.DefaultSendRateBurst
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.AutoResponder.Enabled {
		if c.AutoResponder.CommentReply == "" || len(c.AutoResponder.Keywords) == 0 {
			return models.ConfigError{Message: "auto-responder requires keywords and a comment reply text"}
		}
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if token := os.Getenv("INBOXD_VERIFY_TOKEN"); token != "" {
		c.Webhook.VerifyToken = token
	}

	// SECURITY: credentials should be set via environment variables
	if token := os.Getenv("INBOXD_ACCESS_TOKEN"); token != "" {
		c.Meta.AccessToken = token
	}
	if secret := os.Getenv("INBOXD_WEBHOOK_SECRET"); secret != "" {
		c.Webhook.Secret = secret
	}

	if url := os.Getenv("META_API_URL"); url != "" {
		c.Meta.APIBaseURL = url
	}
	if pageID := os.Getenv("META_PAGE_ID"); pageID != "" {
		c.Meta.PageID = pageID
	}
	if path := os.Getenv("DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("INBOXD_ENV") == "production"

	if isProduction {
		// Meta signs deliveries; without a secret any caller can inject events
		if c.Webhook.Secret == "" {
			return models.ConfigError{Message: "webhook secret is required in production (set INBOXD_WEBHOOK_SECRET environment variable)"}
		}
		if len(c.Webhook.Secret) < 32 {
			return models.ConfigError{Message: "webhook secret must be at least 32 characters long"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Webhook.Secret == "" {
			fmt.Fprintf(os.Stderr, "WARNING: webhook secret not set. Set INBOXD_WEBHOOK_SECRET environment variable for security.\n")
		}
	}

	return nil
}
