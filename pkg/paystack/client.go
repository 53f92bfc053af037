package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.paystack.co"

	// StatusSuccess is the transaction status Paystack reports for a settled charge.
	StatusSuccess = "success"
)

var ErrUnexpectedResponse = errors.New("paystack: unexpected response")

type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

// Transaction is the subset of the verify payload the order service reads.
// Amount is in the smallest currency unit.
type Transaction struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	PaidAt    string `json:"paid_at"`
	Customer  struct {
		Email string `json:"email"`
	} `json:"customer"`
}

func (t *Transaction) Succeeded() bool {
	return t != nil && t.Status == StatusSuccess
}

type verifyResponse struct {
	Status  bool         `json:"status"`
	Message string       `json:"message"`
	Data    *Transaction `json:"data"`
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// VerifyTransaction asks Paystack for the authoritative state of a transaction.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	endpoint := fmt.Sprintf("%s/transaction/verify/%s", c.BaseURL, url.PathEscape(reference))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}

	var response verifyResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if !response.Status || response.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedResponse, response.Message)
	}

	return response.Data, nil
}
