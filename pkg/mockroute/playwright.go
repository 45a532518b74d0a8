package mockroute

import (
	"errors"
	"net/http"

	"github.com/playwright-community/playwright-go"
)

// BindPage installs one Playwright route per registered pattern on page, now
// and for every pattern registered later. Playwright does the URL matching;
// the handler answers from whatever rule the table holds for that pattern at
// the time of the request, so re-registering a pattern swaps behavior without
// adding a second Playwright route.
//
// Mismatching requests are reported to rep and aborted, never continued.
func BindPage(page playwright.Page, routes *Registrar, rep Reporter) error {
	return routes.Watch(func(pattern string) error {
		return page.Route(pattern, routeHandler(routes, rep, pattern))
	})
}

// BindContext is BindPage for every page of a browser context.
func BindContext(bc playwright.BrowserContext, routes *Registrar, rep Reporter) error {
	return routes.Watch(func(pattern string) error {
		return bc.Route(pattern, routeHandler(routes, rep, pattern))
	})
}

func routeHandler(routes *Registrar, rep Reporter, pattern string) func(playwright.Route) {
	return func(route playwright.Route) {
		pr := route.Request()

		headers, err := pr.AllHeaders()
		if err != nil {
			headers = pr.Headers()
		}
		h := make(http.Header, len(headers))
		for k, v := range headers {
			h.Set(k, v)
		}
		body, _ := pr.PostDataBuffer()

		resp, err := routes.DispatchPattern(pattern, &Request{
			Method:  pr.Method(),
			URL:     pr.URL(),
			Headers: h,
			Body:    body,
		})
		if errors.Is(err, ErrNoRoute) {
			// the table was reset after the route was installed
			_ = route.Continue()
			return
		}
		if err != nil {
			if rep != nil {
				rep.Helper()
				rep.Errorf("%v", err)
			}
			_ = route.Abort("failed")
			return
		}

		_ = route.Fulfill(playwright.RouteFulfillOptions{
			Status:      playwright.Int(resp.Status),
			ContentType: playwright.String(resp.ContentType),
			Body:        resp.Body,
		})
	}
}
