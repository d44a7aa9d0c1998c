package paygate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotConfigured is returned before any network call when the gateway
// secret is missing or still a placeholder. Failing fast here prevents an
// unconfigured integration from ever being mistaken for a confirmed payment.
var ErrNotConfigured = errors.New("payment gateway secret is not configured")

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("payment gateway responded %s", e.Status)
}

var placeholderSecrets = map[string]struct{}{
	"":                {},
	"change-me":       {},
	"your-secret-key": {},
}

type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

type VerifyResult struct {
	Status string          `json:"status"`
	Data   TransactionData `json:"data"`
}

type TransactionData struct {
	Status       string   `json:"status"`
	ID           string   `json:"id"`
	Amount       int64    `json:"amount"`
	CurrencyCode string   `json:"currency_code"`
	Metadata     Metadata `json:"metadata"`
}

// Metadata is supplied by the client at checkout time. It is caller-provided
// input and must be validated downstream, never trusted blindly.
type Metadata struct {
	UserID   string `json:"userId"`
	CourseID string `json:"courseId"`
}

func NewClient(baseURL, secret string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secret:     strings.TrimSpace(secret),
		httpClient: httpClient,
	}
}

// Verify fetches the authoritative status of a transaction from the gateway.
func (c *Client) Verify(ctx context.Context, transactionID string) (VerifyResult, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return VerifyResult{}, fmt.Errorf("transaction id is required")
	}
	if _, placeholder := placeholderSecrets[c.secret]; placeholder {
		return VerifyResult{}, ErrNotConfigured
	}

	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(transactionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("create verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("call payment gateway: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return VerifyResult{}, &APIError{
			StatusCode: resp.StatusCode,
			Status:     strings.TrimSpace(resp.Status),
		}
	}

	var result VerifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return VerifyResult{}, fmt.Errorf("decode verify response: %w", err)
	}
	return result, nil
}

// Successful reports whether both the envelope and the gateway's own
// transaction status confirm the payment.
func (r VerifyResult) Successful() bool {
	return strings.EqualFold(r.Status, "success") &&
		strings.EqualFold(r.Data.Status, "successful")
}
