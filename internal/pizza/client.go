package pizza

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// APIError is a non-2xx answer from the service. Its text is the same
// {"code":...,"message":...} line the web client renders.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// Client calls the JWT Pizza API the way the web client does.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

// NewClient returns a client for baseURL. hc may be nil.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPut, PathAuth, LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

// Register creates a diner account and keeps the returned token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, PathAuth, RegisterRequest{Name: name, Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.Token = out.Token
	return &out, nil
}

// Logout invalidates the current token.
func (c *Client) Logout(ctx context.Context) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodDelete, PathAuth, nil, &out); err != nil {
		return nil, err
	}
	c.Token = ""
	return &out, nil
}

// Menu lists the pizzas on offer.
func (c *Client) Menu(ctx context.Context) ([]MenuItem, error) {
	var out []MenuItem
	return out, c.do(ctx, http.MethodGet, PathMenu, nil, &out)
}

// Franchises lists every franchise with its stores.
func (c *Client) Franchises(ctx context.Context) ([]Franchise, error) {
	var out []Franchise
	return out, c.do(ctx, http.MethodGet, PathFranchise, nil, &out)
}

// UserFranchises lists the franchises userID administers.
func (c *Client) UserFranchises(ctx context.Context, userID int) ([]Franchise, error) {
	var out []Franchise
	return out, c.do(ctx, http.MethodGet, PathFranchise+"/"+strconv.Itoa(userID), nil, &out)
}

// CreateFranchise creates a franchise managed by the given admin emails.
func (c *Client) CreateFranchise(ctx context.Context, name string, adminEmails ...string) (*Franchise, error) {
	req := CreateFranchiseRequest{Name: name, Admins: make([]Admin, 0, len(adminEmails))}
	for _, e := range adminEmails {
		req.Admins = append(req.Admins, Admin{Email: e})
	}
	var out Franchise
	if err := c.do(ctx, http.MethodPost, PathFranchise, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseFranchise deletes a franchise and its stores.
func (c *Client) CloseFranchise(ctx context.Context, franchiseID int) (*Message, error) {
	var out Message
	if err := c.do(ctx, http.MethodDelete, PathFranchise+"/"+strconv.Itoa(franchiseID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateStore opens a store in a franchise.
func (c *Client) CreateStore(ctx context.Context, franchiseID int, name string) (*Store, error) {
	var out Store
	path := fmt.Sprintf("%s/%d/store", PathFranchise, franchiseID)
	if err := c.do(ctx, http.MethodPost, path, CreateStoreRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CloseStore deletes a store.
func (c *Client) CloseStore(ctx context.Context, franchiseID, storeID int) (*Message, error) {
	var out Message
	path := fmt.Sprintf("%s/%d/store/%d", PathFranchise, franchiseID, storeID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Orders lists the caller's past orders.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	return out, c.do(ctx, http.MethodGet, PathOrder, nil, &out)
}

// PlaceOrder submits an order and returns it with its signed JWT.
func (c *Client) PlaceOrder(ctx context.Context, order Order) (*OrderResponse, error) {
	var out OrderResponse
	if err := c.do(ctx, http.MethodPost, PathOrder, order, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify checks an order JWT.
func (c *Client) Verify(ctx context.Context, jwt string) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, http.MethodPost, PathVerify, VerifyRequest{JWT: jwt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Code: resp.StatusCode}
		var msg Message
		if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
			apiErr.Message = msg.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}
