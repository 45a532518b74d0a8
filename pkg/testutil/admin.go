package testutil

import "strings"

// AdminClient calls the /admin plane of the server its Client points at.
type AdminClient struct {
	*Client
}

// NewAdminClient wraps c.
func NewAdminClient(c *Client) *AdminClient {
	return &AdminClient{c}
}

func (ac *AdminClient) Health() *Response {
	ac.t.Helper()
	return ac.Get("/admin/health")
}

func (ac *AdminClient) Reset() *Response {
	ac.t.Helper()
	return ac.Post("/admin/reset", nil)
}

func (ac *AdminClient) GetState() *Response {
	ac.t.Helper()
	return ac.Get("/admin/state")
}

// LoadState replaces the server state with state, sent as JSON.
func (ac *AdminClient) LoadState(state any) *Response {
	ac.t.Helper()
	return ac.Post("/admin/state", state)
}

func (ac *AdminClient) History() *Response {
	ac.t.Helper()
	return ac.Get("/admin/history")
}

func (ac *AdminClient) GetRequests() *Response {
	ac.t.Helper()
	return ac.Get("/admin/requests")
}

func faultURL(endpoint string) string {
	return "/admin/fault/" + strings.TrimPrefix(endpoint, "/")
}

// InjectFault makes endpoint fail as described by fault, e.g.
// {"status_code": 503, "method": "POST"}.
func (ac *AdminClient) InjectFault(endpoint string, fault any) *Response {
	ac.t.Helper()
	return ac.Post(faultURL(endpoint), fault)
}

func (ac *AdminClient) RemoveFault(endpoint string) *Response {
	ac.t.Helper()
	return ac.Delete(faultURL(endpoint))
}

func (ac *AdminClient) UpdateConfig(updates map[string]any) *Response {
	ac.t.Helper()
	return ac.Patch("/admin/config", updates)
}

// AdvanceTime moves the simulated clock by a Go duration string like "24h".
func (ac *AdminClient) AdvanceTime(duration string) *Response {
	ac.t.Helper()
	return ac.Post("/admin/time/advance", map[string]string{"duration": duration})
}
