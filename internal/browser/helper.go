package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/playwright-community/playwright-go"
)

// Helper owns one Playwright browser, context and page for a single test.
// Every request the page makes for a registered pattern is answered from
// Routes; contract mismatches fail the test.
type Helper struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	Routes     *mockroute.Registrar
	Config     *Config
	t          testing.TB
}

// NewHelper creates a Helper with a fresh Registrar.
func NewHelper(t testing.TB, cfg *Config) *Helper {
	return &Helper{Config: cfg, Routes: mockroute.NewRegistrar(), t: t}
}

// Setup starts Playwright, launches Chromium and opens a page whose
// context routes through the Registrar.
func (h *Helper) Setup() error {
	if !h.Config.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return fmt.Errorf("installing playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("starting playwright: %w", err)
	}
	h.Playwright = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.Config.Headless),
		SlowMo:   playwright.Float(ms(h.Config.SlowMo)),
	})
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	h.Browser = browser

	bc, err := browser.NewContext(playwright.BrowserNewContextOptions{
		BaseURL:  playwright.String(h.Config.BaseURL),
		Viewport: &playwright.Size{Width: 1280, Height: 720},
	})
	if err != nil {
		return fmt.Errorf("creating context: %w", err)
	}
	h.Context = bc
	bc.SetDefaultTimeout(ms(h.Config.Timeout))

	if err := mockroute.BindContext(bc, h.Routes, h.t); err != nil {
		return fmt.Errorf("binding routes: %w", err)
	}

	page, err := bc.NewPage()
	if err != nil {
		return fmt.Errorf("creating page: %w", err)
	}
	h.Page = page
	return nil
}

// TearDown saves a screenshot when the test failed, then closes everything.
func (h *Helper) TearDown() {
	if h.t.Failed() && h.Config.Screenshots && h.Page != nil {
		path := h.screenshotPath()
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			if _, err := h.Page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(path)}); err == nil {
				h.t.Logf("screenshot saved to %s", path)
			}
		}
	}
	if h.Page != nil {
		_ = h.Page.Close()
	}
	if h.Context != nil {
		_ = h.Context.Close()
	}
	if h.Browser != nil {
		_ = h.Browser.Close()
	}
	if h.Playwright != nil {
		_ = h.Playwright.Stop()
	}
}

func (h *Helper) screenshotPath() string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(h.t.Name())
	return filepath.Join(h.Config.ScreenshotDir, fmt.Sprintf("%s_%d.png", name, time.Now().Unix()))
}

// Flows returns the UI flows for this helper's page.
func (h *Helper) Flows() *Flows {
	return &Flows{
		Page:   h.Page,
		Routes: h.Routes,
		Config: h.Config,
		expect: playwright.NewPlaywrightAssertions(ms(h.Config.Timeout)),
	}
}
