package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "data/threads", cfg.StorePath)
	assert.Equal(t, 500, cfg.SyncIntervalMs)
	assert.Equal(t, 10, cfg.SyncMaxRetries)
	assert.True(t, cfg.RejectDraftsOnDeleted)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9191")
	t.Setenv("DEVICE_ID", "tablet")
	t.Setenv("SYNC_OUTBOX_BACKEND", "Postgres")
	t.Setenv("SYNC_BATCH_SIZE", "25")
	t.Setenv("REJECT_DRAFTS_ON_DELETED", "false")

	cfg := LoadConfig()

	assert.Equal(t, "9191", cfg.AppPort)
	assert.Equal(t, "tablet", cfg.DeviceID)
	assert.Equal(t, OutboxBackendPostgres, cfg.SyncOutboxBackend)
	assert.Equal(t, 25, cfg.SyncBatchSize)
	assert.False(t, cfg.RejectDraftsOnDeleted)
}

func TestLoadConfig_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_MS", "soon")
	t.Setenv("REJECT_DRAFTS_ON_DELETED", "maybe")

	cfg := LoadConfig()

	assert.Equal(t, 500, cfg.SyncIntervalMs)
	assert.True(t, cfg.RejectDraftsOnDeleted)
}
