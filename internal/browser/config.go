// Package browser drives the JWT Pizza web client in a real browser with
// every backend call answered by a mockroute.Registrar.
package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the browser suite settings, read from the environment.
type Config struct {
	// BaseURL is where the web client is served, e.g. by `npm run dev`.
	BaseURL     string
	Timeout     time.Duration
	Headless    bool
	SlowMo      time.Duration
	Screenshots bool
	// ScreenshotDir receives a screenshot of every failed test.
	ScreenshotDir string
	// SkipInstall skips downloading the Playwright driver and browsers.
	SkipInstall bool
}

// ConfigFromEnv reads BASE_URL, TIMEOUT, HEADLESS, SLOW_MO, SCREENSHOTS,
// SCREENSHOT_DIR and PLAYWRIGHT_PREINSTALLED. SLOW_MO and TIMEOUT accept a
// duration ("250ms") or a bare number of milliseconds.
func ConfigFromEnv() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("BASE_URL", "http://localhost:5173")
	v.SetDefault("TIMEOUT", "30s")
	v.SetDefault("HEADLESS", true)
	v.SetDefault("SLOW_MO", "0")
	v.SetDefault("SCREENSHOTS", true)
	v.SetDefault("SCREENSHOT_DIR", "test-results/screenshots")
	v.SetDefault("PLAYWRIGHT_PREINSTALLED", false)

	timeout, err := parseMillis(v.GetString("TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("TIMEOUT: %w", err)
	}
	slowMo, err := parseMillis(v.GetString("SLOW_MO"))
	if err != nil {
		return nil, fmt.Errorf("SLOW_MO: %w", err)
	}
	return &Config{
		BaseURL:       strings.TrimRight(v.GetString("BASE_URL"), "/"),
		Timeout:       timeout,
		Headless:      v.GetBool("HEADLESS"),
		SlowMo:        slowMo,
		Screenshots:   v.GetBool("SCREENSHOTS"),
		ScreenshotDir: v.GetString("SCREENSHOT_DIR"),
		SkipInstall:   v.GetBool("PLAYWRIGHT_PREINSTALLED"),
	}, nil
}

func parseMillis(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(s + "ms")
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// URL resolves path against BaseURL.
func (c *Config) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
