/**
 * @description
 * This package provides a client for the card-payment gateway (Stripe's
 * PaymentIntents API). It encapsulates authenticated HTTP requests, form
 * body construction and response parsing.
 *
 * @notes
 * - The HTTP client carries a request timeout; callers must never hold a
 *   local lock across these calls.
 */
package stripeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Payment intent statuses reported by the gateway.
const (
	IntentStatusRequiresPayment = "requires_payment_method"
	IntentStatusProcessing      = "processing"
	IntentStatusSucceeded       = "succeeded"
	IntentStatusCanceled        = "canceled"
)

// Client is a client for the payment gateway API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new gateway client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PaymentIntent is the gateway's payable instrument for a pending fee.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error,omitempty"`
}

// Succeeded reports whether the gateway considers the intent settled.
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == IntentStatusSucceeded
}

// ErrorResponse represents an error returned by the gateway API.
type ErrorResponse struct {
	StatusCode int `json:"-"`
	Err        struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.Err.Message != "" {
		return fmt.Sprintf("gateway error: %s (%s)", e.Err.Message, e.Err.Type)
	}
	return fmt.Sprintf("gateway error: status %d", e.StatusCode)
}

// CreateIntentParams carries the inputs to open a new payment session.
type CreateIntentParams struct {
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
}

// CreatePaymentIntent opens a new payment session for the given amount.
func (c *Client) CreatePaymentIntent(ctx context.Context, p CreateIntentParams) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(p.AmountCents, 10))
	form.Set("currency", p.Currency)
	form.Set("description", p.Description)
	form.Add("payment_method_types[]", "card")
	for k, v := range p.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	return c.doIntent(ctx, http.MethodPost, "/v1/payment_intents", form)
}

// GetPaymentIntent fetches the authoritative status of a payment session.
func (c *Client) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	return c.doIntent(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil)
}

// CancelPaymentIntent voids a session at the gateway. Already-terminal
// intents return a gateway error the caller may ignore.
func (c *Client) CancelPaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	return c.doIntent(ctx, http.MethodPost, "/v1/payment_intents/"+url.PathEscape(intentID)+"/cancel", nil)
}

func (c *Client) doIntent(ctx context.Context, method, path string, form url.Values) (*PaymentIntent, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute gateway request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, errResp); err != nil {
			log.Printf("level=warn component=stripe_client op=%s path=%s status=%d msg=\"non-2xx response (unparsable error body)\"", method, path, resp.StatusCode)
			return nil, fmt.Errorf("failed to decode gateway error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=stripe_client op=%s path=%s status=%d code=%q msg=%q", method, path, resp.StatusCode, errResp.Err.Code, errResp.Err.Message)
		return nil, errResp
	}

	var intent PaymentIntent
	if err := json.Unmarshal(bodyBytes, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &intent, nil
}
