package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"BASE_URL", "TIMEOUT", "HEADLESS", "SLOW_MO", "SCREENSHOTS", "SCREENSHOT_DIR", "PLAYWRIGHT_PREINSTALLED"} {
		t.Setenv(k, "")
	}

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5173", cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Headless)
	assert.Zero(t, cfg.SlowMo)
	assert.True(t, cfg.Screenshots)
	assert.False(t, cfg.SkipInstall)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("BASE_URL", "http://pizza.test:8080/")
	t.Setenv("TIMEOUT", "5s")
	t.Setenv("HEADLESS", "false")
	t.Setenv("SLOW_MO", "250")
	t.Setenv("SCREENSHOTS", "false")
	t.Setenv("PLAYWRIGHT_PREINSTALLED", "1")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://pizza.test:8080", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowMo)
	assert.False(t, cfg.Screenshots)
	assert.True(t, cfg.SkipInstall)
	assert.Equal(t, "http://pizza.test:8080/payment/login", cfg.URL("payment/login"))
}

func TestConfigFromEnvRejectsBadDuration(t *testing.T) {
	t.Setenv("SLOW_MO", "slowly")
	_, err := ConfigFromEnv()
	assert.ErrorContains(t, err, "SLOW_MO")
}

func TestPrompts(t *testing.T) {
	assert.Equal(t,
		"Are you sure you want to close the Bacon Sandwich franchise? This will close all associated stores and cannot be restored. All outstanding revenue will not be refunded.",
		CloseFranchisePrompt("Bacon Sandwich"))
	assert.Equal(t,
		"Are you sure you want to close the Bacon Sandwich store Lehi ? This cannot be restored. All outstanding revenue will not be refunded.",
		CloseStorePrompt("Bacon Sandwich", "Lehi"))
}

func TestScreenshotPath(t *testing.T) {
	h := NewHelper(t, &Config{ScreenshotDir: "shots"})
	path := h.screenshotPath()
	assert.Contains(t, path, "shots/TestScreenshotPath_")
	assert.NotNil(t, h.Routes)
}
