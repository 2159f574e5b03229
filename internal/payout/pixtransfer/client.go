// Package pixtransfer is the HTTP client for the PIX funds-transfer API used
// to pay sellers. It is a collaborator of the payout scheduler; failures here
// never roll back the buyer-facing order.
package pixtransfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the PIX transfer API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new transfer API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type transferRequest struct {
	PixKey      string `json:"pix_key"`
	Amount      int64  `json:"amount"` // centavos
	Description string `json:"description"`
}

type transferResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// Transfer sends funds to a PIX key and returns the provider transfer id.
func (c *Client) Transfer(ctx context.Context, pixKey string, amount int64, description string) (string, error) {
	payload := transferRequest{
		PixKey:      pixKey,
		Amount:      amount,
		Description: description,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/transfers", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transfer response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("transfer API returned status %d: %s", resp.StatusCode, string(body))
	}

	var out transferResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode transfer response: %w", err)
	}
	return out.Data.ID, nil
}
