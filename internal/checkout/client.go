package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a checkout submission when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// maxResponseSize caps how much of a response body Submit reads.
const maxResponseSize = 1 << 20

// Client submits orders to the checkout API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a client for the API rooted at baseURL (for example
// http://localhost:8080/api). A nil httpClient uses one with DefaultTimeout.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Submit validates r and posts it. It does not retry.
//
// An invalid request returns the validation errors, which match
// ErrInvalidRequest. Any transport or server failure returns an error
// matching ErrCheckoutFailed; show FailureMessage to the shopper.
func (c *Client) Submit(ctx context.Context, r Request) (*Response, error) {
	err := Validate(r)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding request: %w", ErrCheckoutFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("checkout request failed", zap.Error(err))

		return nil, fmt.Errorf("%w: %w", ErrCheckoutFailed, err)
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrCheckoutFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("checkout rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", data))

		return nil, fmt.Errorf("%w: HTTP %d", ErrCheckoutFailed, resp.StatusCode)
	}

	var out Response

	err = json.Unmarshal(data, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrCheckoutFailed, err)
	}

	if !out.Success || out.OrderNumber == "" {
		return nil, fmt.Errorf("%w: server reported failure: %s", ErrCheckoutFailed, out.Error)
	}

	c.logger.Info("order placed", zap.String("order", out.OrderNumber))

	return &out, nil
}

// ListOrders returns every order the server holds, oldest first.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order

	err := c.call(ctx, http.MethodGet, "/orders", &orders)
	if err != nil {
		return nil, err
	}

	return orders, nil
}

// MarkPaid acknowledges payment for an order and returns the updated order.
func (c *Client) MarkPaid(ctx context.Context, number string) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}

	err := c.call(ctx, http.MethodPut, "/orders/"+url.PathEscape(number)+"/payment-done", &out)
	if err != nil {
		return nil, err
	}

	return &out.Order, nil
}

// call sends a bodiless request and decodes a 2xx JSON response into out.
// A 404 matches ErrOrderNotFound; any other failure matches ErrAPI.
func (c *Client) call(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAPI, err)
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response: %w", ErrAPI, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrOrderNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Debug("orders API error", zap.Int("status", resp.StatusCode), zap.ByteString("body", data))

		return fmt.Errorf("%w: HTTP %d", ErrAPI, resp.StatusCode)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("%w: decoding response: %w", ErrAPI, err)
	}

	return nil
}
