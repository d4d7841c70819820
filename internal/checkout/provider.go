package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PaymentRequest asks the payment gateway to open a hosted payment page.
type PaymentRequest struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	ReturnURL string `json:"return_url"`
}

// PaymentRedirect is where the parent finishes paying.
type PaymentRedirect struct {
	RedirectURL string `json:"redirect_url"`
	ProviderRef string `json:"provider_ref"`
}

// PaymentProvider opens payments with the external gateway.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentRedirect, error)
}

// HTTPPaymentProvider talks to the gateway over its JSON API.
type HTTPPaymentProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewHTTPPaymentProvider constructs a provider with a sane default client.
func NewHTTPPaymentProvider(baseURL, apiKey string) *HTTPPaymentProvider {
	return &HTTPPaymentProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// CreatePayment opens a payment and returns the hosted page URL.
func (p *HTTPPaymentProvider) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentRedirect, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PaymentRedirect{}, fmt.Errorf("checkout: encode payment request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return PaymentRedirect{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return PaymentRedirect{}, fmt.Errorf("checkout: payment gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return PaymentRedirect{}, fmt.Errorf("checkout: payment gateway returned %d", resp.StatusCode)
	}
	var redirect PaymentRedirect
	if err := json.NewDecoder(resp.Body).Decode(&redirect); err != nil {
		return PaymentRedirect{}, fmt.Errorf("checkout: decode gateway response: %w", err)
	}
	return redirect, nil
}

// MockPaymentProvider implements PaymentProvider with a function hook for tests.
type MockPaymentProvider struct {
	CreatePaymentFunc func(ctx context.Context, req PaymentRequest) (PaymentRedirect, error)
}

// CreatePayment delegates to the hook, or returns a deterministic stub.
func (m *MockPaymentProvider) CreatePayment(ctx context.Context, req PaymentRequest) (PaymentRedirect, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	return PaymentRedirect{RedirectURL: "https://pay.test/" + req.Reference, ProviderRef: "mock-" + req.Reference}, nil
}
