package mockroute

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BindCDP enables the DevTools Fetch domain on the chromedp target held by
// ctx and answers paused requests from routes. Requests matching no rule are
// continued to the network; mismatches are reported to rep and failed.
func BindCDP(ctx context.Context, routes *Registrar, rep Reporter) error {
	chromedp.ListenTarget(ctx, func(ev any) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		// Fetch commands cannot be issued from the listener goroutine.
		go answerPaused(ctx, routes, rep, paused)
	})

	err := chromedp.Run(ctx, fetch.Enable().WithPatterns([]*fetch.RequestPattern{
		{URLPattern: "*", RequestStage: fetch.RequestStageRequest},
	}))
	if err != nil {
		return fmt.Errorf("enabling fetch interception: %w", err)
	}
	return nil
}

func answerPaused(ctx context.Context, routes *Registrar, rep Reporter, ev *fetch.EventRequestPaused) {
	c := chromedp.FromContext(ctx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(ctx, c.Target)

	req := cdpRequest(ev)
	resp, err := routes.Dispatch(req)
	switch {
	case errors.Is(err, ErrNoRoute):
		_ = fetch.ContinueRequest(ev.RequestID).Do(execCtx)
		return
	case err != nil:
		if rep != nil {
			rep.Helper()
			rep.Errorf("%v", err)
		}
		_ = fetch.FailRequest(ev.RequestID, network.ErrorReasonFailed).Do(execCtx)
		return
	}

	_ = fetch.FulfillRequest(ev.RequestID, int64(resp.Status)).
		WithResponseHeaders([]*fetch.HeaderEntry{
			{Name: "Content-Type", Value: resp.ContentType},
			{Name: "Access-Control-Allow-Origin", Value: "*"},
		}).
		WithBody(base64.StdEncoding.EncodeToString(resp.Body)).
		Do(execCtx)
}

func cdpRequest(ev *fetch.EventRequestPaused) *Request {
	req := &Request{Headers: make(http.Header)}
	if ev.Request == nil {
		return req
	}
	req.Method = ev.Request.Method
	req.URL = ev.Request.URL
	for k, v := range ev.Request.Headers {
		req.Headers.Set(k, fmt.Sprint(v))
	}

	var body strings.Builder
	for _, entry := range ev.Request.PostDataEntries {
		if entry == nil {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(entry.Bytes)
		if err != nil {
			continue
		}
		body.Write(data)
	}
	if body.Len() > 0 {
		req.Body = []byte(body.String())
	}
	return req
}
