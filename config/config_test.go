package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DATA_DIR", "TOGGLE_KEYWORD", "OWNER_IDS", "SWITCH_BACKEND", "ONEBOT_RECONNECT_DELAY", "DB_PORT"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "eatwhat", cfg.Bot.ToggleKeyword)
	assert.Equal(t, SwitchBackendFile, cfg.Bot.SwitchBackend)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 5*time.Second, cfg.OneBot.ReconnectDelay)
	assert.Equal(t, filepath.Join("data", "eatwhat", "menu.json"), cfg.Bot.MenuFile())
	assert.Empty(t, cfg.Bot.OwnerIDs)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/bot")
	t.Setenv("OWNER_IDS", " 10001, ,20002 ")
	t.Setenv("SWITCH_BACKEND", "Postgres")
	t.Setenv("ONEBOT_RECONNECT_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"10001", "20002"}, cfg.Bot.OwnerIDs)
	assert.Equal(t, SwitchBackendPostgres, cfg.Bot.SwitchBackend)
	assert.Equal(t, 250*time.Millisecond, cfg.OneBot.ReconnectDelay)
	assert.Equal(t, filepath.Join("/srv/bot", "switch.json"), cfg.Bot.SwitchFile())
}
