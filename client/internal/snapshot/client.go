package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/quickbite/quickbite/client/internal/config"
	"github.com/quickbite/quickbite/pkg/types"
)

var (
	// ErrNotFound is returned for a 404 from the API.
	ErrNotFound = errors.New("snapshot: order not found")
	// ErrUnauthorized is returned for a 401 from the API.
	ErrUnauthorized = errors.New("snapshot: unauthorized")
)

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("snapshot: http %d: %s", e.StatusCode, e.Message)
}

// OrderRequest is the body of POST /api/v1/orders.
type OrderRequest struct {
	UserID      string            `json:"userId"`
	UserName    string            `json:"userName"`
	UserEmail   string            `json:"userEmail"`
	Items       []types.OrderItem `json:"items"`
	TotalAmount float64           `json:"totalAmount,omitempty"`
}

// Stats mirrors GET /api/v1/stats.
type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// Client talks to the server's REST API.
type Client struct {
	base string
	http *http.Client
}

// authRoundTripper injects the API key into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key != "" {
		req = req.Clone(req.Context())
		req.Header.Set(t.header, t.key)
	}
	return t.base.RoundTrip(req)
}

// New builds a REST client for cfg.
func New(cfg config.ClientConfig) (*Client, error) {
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: tlsCfg,
	}
	if cfg.Auth.Mode == "apikey" {
		transport = &authRoundTripper{
			base:   transport,
			header: cfg.Auth.EffectiveHeader(),
			key:    cfg.Auth.Key(),
		}
	}

	return &Client{
		base: strings.TrimRight(cfg.ServerURL, "/"),
		http: &http.Client{Transport: transport, Timeout: cfg.RequestTimeout},
	}, nil
}

// ListOrders fetches the snapshot: every order (admin) or one user's orders,
// newest first.
func (c *Client) ListOrders(ctx context.Context, userID string) ([]types.Order, error) {
	path := "/api/v1/orders"
	if userID != "" {
		path += "?userId=" + url.QueryEscape(userID)
	}
	var orders []types.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (*types.Order, error) {
	var o types.Order
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders/"+url.PathEscape(id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder stores a new order and returns it with its assigned id.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*types.Order, error) {
	var o types.Order
	if err := c.do(ctx, http.MethodPost, "/api/v1/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus moves an order to status. estimatedTime may be nil.
func (c *Client) UpdateStatus(ctx context.Context, id string, status types.Status, estimatedTime *int) (*types.Order, error) {
	body := struct {
		Status        types.Status `json:"status"`
		EstimatedTime *int         `json:"estimatedTime,omitempty"`
	}{status, estimatedTime}

	var o types.Order
	if err := c.do(ctx, http.MethodPatch, "/api/v1/orders/"+url.PathEscape(id)+"/status", body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Stats returns the hub's room and connection counts.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &s)
	return s, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("snapshot: encode body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("snapshot: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("snapshot: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("snapshot: decode %s: %w", path, err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	var e struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(raw, &e) != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
}
