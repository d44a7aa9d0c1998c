package fraudapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type Request struct {
	TransactionID string       `json:"transactionId"`
	Amount        int64        `json:"amount"`
	CourseTitle   string       `json:"courseTitle"`
	User          UserFeatures `json:"user"`
}

type UserFeatures struct {
	ID                  string `json:"id"`
	AccountAgeInSeconds int64  `json:"accountAgeInSeconds"`
	IsFirstTransaction  bool   `json:"isFirstTransaction"`
	EmailDomain         string `json:"emailDomain"`
}

type Verdict struct {
	IsSuspicious bool    `json:"isSuspicious"`
	RiskScore    float64 `json:"riskScore"`
	Reason       string  `json:"reason"`
}

func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: httpClient,
	}
}

// Score classifies a transaction feature vector. It holds no local state;
// failures are the caller's to log and discard.
func (c *Client) Score(ctx context.Context, in Request) (Verdict, error) {
	if c.endpoint == "" {
		return Verdict{}, fmt.Errorf("fraud classifier endpoint is not configured")
	}
	if strings.TrimSpace(in.TransactionID) == "" {
		return Verdict{}, fmt.Errorf("transaction id is required")
	}

	body, err := json.Marshal(in)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("create score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("call fraud classifier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return Verdict{}, fmt.Errorf("fraud classifier responded %s", strings.TrimSpace(resp.Status))
	}

	var verdict Verdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode score response: %w", err)
	}
	return verdict, nil
}
