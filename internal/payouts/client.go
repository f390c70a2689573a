package payouts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tundeajala/bookhaven-payments/pkg/config"
	pkgerrors "github.com/tundeajala/bookhaven-payments/pkg/errors"
)

const (
	splitPath                  = "v1/payment-splits"
	responseBodyReadLimit int64 = 1024
	defaultTimeout              = 10 * time.Second
)

var (
	errBaseURLRequired = errors.New("payout base url is required")
	errAPIKeyRequired  = errors.New("payout api key is required")
)

// SplitResult is the payout rail's answer to a split initiation.
type SplitResult struct {
	SplitID string
}

// Client wraps the external payout rail's split API. Splits are
// initiated once per fulfilled payment; the rail is idempotent on the
// processor payment id.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the payout client from config.
func NewClient(cfg config.PayoutConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}

	return client, nil
}

type splitRequest struct {
	PaymentID string `json:"payment_id"`
}

type splitResponse struct {
	Success bool   `json:"success"`
	SplitID string `json:"split_id"`
	Message string `json:"message"`
}

// InitiateSplit asks the payout rail to split the settled payment
// between the platform and the vendor.
func (c *Client) InitiateSplit(ctx context.Context, processorPaymentID string) (*SplitResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout client not configured")
	}
	if strings.TrimSpace(processorPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "processor payment id is required")
	}

	payload, err := json.Marshal(splitRequest{PaymentID: processorPaymentID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal split request")
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, splitPath)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build split request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute split request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "split request failed")
	}

	var apiResp splitResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode split response")
	}
	if !apiResp.Success {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payout rail rejected split").
			WithDetails(map[string]any{"message": apiResp.Message})
	}

	return &SplitResult{SplitID: apiResp.SplitID}, nil
}
