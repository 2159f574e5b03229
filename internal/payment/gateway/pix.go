package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/modbay/storefront/internal/payment/domain"
)

const defaultChargeTTL = 30 * time.Minute

// PixClient is the HTTP client for the external PIX provider.
type PixClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewPixClient creates a new PIX provider client.
func NewPixClient(baseURL, apiKey string) *PixClient {
	return &PixClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chargeRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	PayerEmail  string `json:"payer_email"`
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

type chargeResponse struct {
	Data struct {
		ID         string    `json:"id"`
		Status     string    `json:"status"`
		PixCode    string    `json:"pix_code"`
		QRCode     string    `json:"qr_code_base64"`
		CreatedAt  time.Time `json:"created_at"`
		ExpiresAt  time.Time `json:"expires_at"`
	} `json:"data"`
}

// ErrorResponse represents an error payload from the provider.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("pix provider error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown pix provider error"
}

// CreateIntent creates a charge with the provider.
func (c *PixClient) CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error) {
	payload := chargeRequest{
		Amount:      req.Amount,
		Description: req.Description,
		PayerEmail:  req.PayerEmail,
		ExpiresIn:   int64(defaultChargeTTL.Seconds()),
	}

	var resp chargeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/charges", payload, &resp); err != nil {
		return nil, err
	}

	expiresAt := resp.Data.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultChargeTTL)
	}

	return &Intent{
		ExternalID: resp.Data.ID,
		PixCode:    resp.Data.PixCode,
		QRCode:     resp.Data.QRCode,
		CreatedAt:  resp.Data.CreatedAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// FetchStatus queries the provider for the current charge status and maps it
// onto the domain statuses.
func (c *PixClient) FetchStatus(ctx context.Context, externalID string) (string, error) {
	var resp chargeResponse
	if err := c.do(ctx, http.MethodGet, "/v1/charges/"+externalID, nil, &resp); err != nil {
		return "", err
	}
	return mapProviderStatus(resp.Data.Status), nil
}

func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "approved", "paid", "confirmed":
		return domain.StatusApproved
	case "rejected", "cancelled", "refused":
		return domain.StatusRejected
	case "expired":
		return domain.StatusExpired
	default:
		return domain.StatusPending
	}
}

func (c *PixClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("pix provider request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr ErrorResponse
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && len(apiErr.Errors) > 0 {
			return &apiErr
		}
		return fmt.Errorf("pix provider returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
