package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Load(path)

	assert.Equal(t, "ir@romspen.com", cfg.SenderEmail)
	assert.Equal(t, 1, cfg.ExpectedDay)
	assert.Equal(t, 30, cfg.CheckIntervalMinutes)
	assert.Equal(t, "file", cfg.LedgerBackend)

	_, err := os.Stat(path)
	assert.NoError(t, err, "defaults written out for the operator to edit")
}

func TestLoadReadsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `sender_email: reports@example.com
shared_folder_name: Shared Reports
download_folder: /srv/reports
expected_day: 4
notification_email: ops@example.com
smtp_server: smtp.example.com
smtp_port: 465
check_interval_minutes: 15
processed_emails_file: /var/lib/downloader/processed.txt
ledger_backend: redis
redis_url: redis://cache:6379/1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg := Load(path)

	assert.Equal(t, "reports@example.com", cfg.SenderEmail)
	assert.Equal(t, "Shared Reports", cfg.SharedFolderName)
	assert.Equal(t, 4, cfg.ExpectedDay)
	assert.Equal(t, "ops@example.com", cfg.NotificationEmail)
	assert.Equal(t, "smtp.example.com:465", cfg.SMTPAddr())
	assert.Equal(t, 15, cfg.CheckIntervalMinutes)
	assert.Equal(t, "redis", cfg.LedgerBackend)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	// Unspecified keys keep their defaults.
	assert.Equal(t, 993, cfg.IMAPPort)
}

func TestLoadMalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sender_email: [unclosed\n\t{{"), 0o644))

	cfg := Load(path)

	assert.Equal(t, "ir@romspen.com", cfg.SenderEmail)
	assert.Equal(t, 30, cfg.CheckIntervalMinutes)
}

func TestValidateRepairsOutOfRangeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `expected_day: 9
check_interval_minutes: -5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg := Load(path)

	assert.Equal(t, 1, cfg.ExpectedDay)
	assert.Equal(t, 30, cfg.CheckIntervalMinutes)
	assert.Greater(t, cfg.ErrorCooldownMinutes, cfg.CheckIntervalMinutes)
}
