package mockroute

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Transport is an http.RoundTripper that answers requests from a Registrar.
// Requests matching a rule never reach the network.
type Transport struct {
	Routes *Registrar

	// Fallback serves requests that match no rule. When nil they fail with ErrNoRoute.
	Fallback http.RoundTripper

	// Reporter, when set, is told about every contract mismatch.
	Reporter Reporter
}

// NewClient returns an http.Client whose transport is answered entirely by routes.
func NewClient(routes *Registrar, rep Reporter) *http.Client {
	return &http.Client{Transport: &Transport{Routes: routes, Reporter: rep}}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading request body: %w", err)
		}
		body = data
	}

	resp, err := t.Routes.Dispatch(&Request{
		Method:  req.Method,
		URL:     req.URL.String(),
		Headers: req.Header.Clone(),
		Body:    body,
	})
	if errors.Is(err, ErrNoRoute) && t.Fallback != nil {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
		}
		return t.Fallback.RoundTrip(req)
	}
	if err != nil {
		if t.Reporter != nil && errors.Is(err, ErrContractMismatch) {
			t.Reporter.Helper()
			t.Reporter.Errorf("%v", err)
		}
		return nil, err
	}

	header := make(http.Header)
	header.Set("Content-Type", resp.ContentType)
	header.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		StatusCode:    resp.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}
