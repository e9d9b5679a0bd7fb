package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxd/internal/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `{
	"meta": {
		"page_id": "page-1",
		"access_token": "token-123"
	},
	"webhook": {
		"verify_token": "verify-me"
	},
	"database": {
		"path": "/tmp/inboxd.db"
	}
}`

func TestLoadConfig_MinimalWithDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultMetaAPIBaseURL, cfg.Meta.APIBaseURL)
	assert.Equal(t, constants.DefaultMetaAPIVersion, cfg.Meta.APIVersion)
	assert.Equal(t, constants.DefaultMetaTimeoutSec, cfg.Meta.TimeoutSec)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultSendRatePerSec, cfg.Server.SendRatePerSec)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "{not json"))
	assert.Error(t, err)
}

func TestLoadConfig_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name: "missing verify token",
			content: `{
				"meta": {"page_id": "p", "access_token": "t"},
				"database": {"path": "/tmp/db"}
			}`,
			wantErr: ErrMissingVerifyToken,
		},
		{
			name: "missing access token",
			content: `{
				"meta": {"page_id": "p"},
				"webhook": {"verify_token": "v"},
				"database": {"path": "/tmp/db"}
			}`,
			wantErr: ErrMissingAccessToken,
		},
		{
			name: "missing page id",
			content: `{
				"meta": {"access_token": "t"},
				"webhook": {"verify_token": "v"},
				"database": {"path": "/tmp/db"}
			}`,
			wantErr: ErrMissingPageID,
		},
		{
			name: "missing database path",
			content: `{
				"meta": {"page_id": "p", "access_token": "t"},
				"webhook": {"verify_token": "v"}
			}`,
			wantErr: ErrMissingDBPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Equal(t, tt.wantErr, err)
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("INBOXD_ACCESS_TOKEN", "env-token")
	t.Setenv("META_PAGE_ID", "env-page")
	t.Setenv("PORT", "9090")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Meta.AccessToken)
	assert.Equal(t, "env-page", cfg.Meta.PageID)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadConfig_AutoResponderValidation(t *testing.T) {
	content := `{
		"meta": {"page_id": "p", "access_token": "t"},
		"webhook": {"verify_token": "v"},
		"database": {"path": "/tmp/db"},
		"autoResponder": {"enabled": true}
	}`
	_, err := LoadConfig(writeConfig(t, content))
	assert.Error(t, err)

	content = `{
		"meta": {"page_id": "p", "access_token": "t"},
		"webhook": {"verify_token": "v"},
		"database": {"path": "/tmp/db"},
		"autoResponder": {
			"enabled": true,
			"keywords": ["precio"],
			"comment_reply": "Check your DMs!"
		}
	}`
	cfg, err := LoadConfig(writeConfig(t, content))
	require.NoError(t, err)
	assert.True(t, cfg.AutoResponder.Enabled)
}

func TestLoadConfig_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("INBOXD_ENV", "production")

	_, err := LoadConfig(writeConfig(t, minimalConfig))
	assert.Error(t, err)
}

func TestLoadConfig_ProductionSecretLength(t *testing.T) {
	t.Setenv("INBOXD_ENV", "production")
	t.Setenv("INBOXD_WEBHOOK_SECRET", "short")

	_, err := LoadConfig(writeConfig(t, minimalConfig))
	assert.Error(t, err)

	t.Setenv("INBOXD_WEBHOOK_SECRET", "a-webhook-secret-that-is-long-enough-123")
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "a-webhook-secret-that-is-long-enough-123", cfg.Webhook.Secret)
}

func TestLoadConfig_ProductionRejectsDebugLogging(t *testing.T) {
	t.Setenv("INBOXD_ENV", "production")
	t.Setenv("INBOXD_WEBHOOK_SECRET", "a-webhook-secret-that-is-long-enough-123")

	content := `{
		"meta": {"page_id": "p", "access_token": "t"},
		"webhook": {"verify_token": "v"},
		"database": {"path": "/tmp/db"},
		"log_level": "debug"
	}`
	_, err := LoadConfig(writeConfig(t, content))
	assert.Error(t, err)
}
