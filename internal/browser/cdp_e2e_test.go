//go:build e2e

package browser_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/pf274/jwt-pizza/internal/fixtures"
	"github.com/pf274/jwt-pizza/pkg/mockroute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncReporter collects mismatches reported from the CDP listener goroutines.
type syncReporter struct {
	mu     sync.Mutex
	errors []string
}

func (r *syncReporter) Helper() {}

func (r *syncReporter) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, format)
}

func (r *syncReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func newChrome(t *testing.T) context.Context {
	t.Helper()
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	t.Cleanup(func() {
		cancelTimeout()
		cancel()
		cancelAlloc()
	})
	require.NoError(t, chromedp.Run(ctx))
	return ctx
}

func fetchJS(path, method, body string) string {
	return `fetch("` + path + `", {method: "` + method + `", headers: {"Content-Type": "application/json"}, body: JSON.stringify(` + body + `)}).then(r => r.text())`
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func TestCDPBindingAnswersFromRegistrar(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body>pizza</body></html>"))
	}))
	defer page.Close()

	ctx := newChrome(t)
	routes := mockroute.NewRegistrar()
	rep := &syncReporter{}
	require.NoError(t, mockroute.BindCDP(ctx, routes, rep))
	routes.MustRegister(
		fixtures.Menu(fixtures.MenuItems),
		fixtures.VerifyOrder(fixtures.OrderJWT, fixtures.Vendor),
	)

	require.NoError(t, chromedp.Run(ctx, chromedp.Navigate(page.URL)))

	var menu []map[string]any
	require.NoError(t, chromedp.Run(ctx,
		chromedp.Evaluate(`fetch("/api/order/menu").then(r => r.json())`, &menu, awaitPromise),
	))
	require.Len(t, menu, 2)
	assert.Equal(t, "Veggie", menu[0]["title"])

	var verified string
	require.NoError(t, chromedp.Run(ctx,
		chromedp.Evaluate(fetchJS("/api/order/verify", "POST", `{jwt: "eyJpYXQ"}`), &verified, awaitPromise),
	))
	assert.Contains(t, verified, "Peter Fullmer")
	assert.Zero(t, rep.count())

	// a mismatching body is failed, so fetch rejects
	var rejected bool
	require.NoError(t, chromedp.Run(ctx,
		chromedp.Evaluate(fetchJS("/api/order/verify", "POST", `{jwt: "forged"}`)+`.then(() => false, () => true)`, &rejected, awaitPromise),
	))
	assert.True(t, rejected)
	assert.Equal(t, 1, rep.count())
	assert.Equal(t, 1, routes.Hits(fixtures.PatternVerify))
}
