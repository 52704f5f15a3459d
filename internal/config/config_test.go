package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	doc := "backend_url: http://backend:5000\nnetwork_poll_interval: 10s\nallowed_origins:\n  - http://kiosk.local\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadFile(path, Defaults())
	require.NoError(t, err)

	assert.Equal(t, "http://backend:5000", cfg.BackendURL)
	assert.Equal(t, 10*time.Second, cfg.NetworkPollInterval)
	assert.Equal(t, []string{"http://kiosk.local"}, cfg.AllowedOrigins)
	assert.Equal(t, 20, cfg.HistoryPageSize)
	assert.Equal(t, "memory", cfg.SessionBackend)
}

func TestLoadFile_Missing(t *testing.T) {
	base := Defaults()
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), base)
	assert.Error(t, err)
	assert.Equal(t, base, cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.internal:5000/")
	t.Setenv("NETWORK_POLL_INTERVAL", "45s")
	t.Setenv("HISTORY_PAGE_SIZE", "50")
	t.Setenv("EXPORT_MAX_PAGES", "5")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")
	t.Setenv("SESSION_TTL", "not-a-duration")

	cfg := applyEnv(Defaults())

	assert.Equal(t, "http://api.internal:5000", cfg.BackendURL)
	assert.Equal(t, 45*time.Second, cfg.NetworkPollInterval)
	assert.Equal(t, 50, cfg.HistoryPageSize)
	assert.Equal(t, 5, cfg.ExportMaxPages)
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
}

func TestProduction(t *testing.T) {
	assert.True(t, App{Env: "prod"}.Production())
	assert.True(t, App{Env: "production"}.Production())
	assert.False(t, App{Env: "dev"}.Production())
}
