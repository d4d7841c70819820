package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SignedURL grants time-limited access to one object in the storage backend.
type SignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignedURLProvider issues signed URLs for uploads and downloads.
type SignedURLProvider interface {
	SignUpload(ctx context.Context, path, contentType string) (SignedURL, error)
	SignDownload(ctx context.Context, path string) (SignedURL, error)
}

// HTTPProvider talks to the storage service's signing endpoint.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	TTL     time.Duration
	Client  *http.Client
}

// NewHTTPProvider constructs a provider with a sane default client.
func NewHTTPProvider(baseURL, apiKey string, ttl time.Duration) *HTTPProvider {
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		TTL:     ttl,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type signRequest struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	ContentType string `json:"content_type,omitempty"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

// SignUpload requests an upload URL for the given object path.
func (p *HTTPProvider) SignUpload(ctx context.Context, path, contentType string) (SignedURL, error) {
	return p.sign(ctx, signRequest{Path: path, Method: http.MethodPut, ContentType: contentType, TTLSeconds: int64(p.TTL.Seconds())})
}

// SignDownload requests a download URL for the given object path.
func (p *HTTPProvider) SignDownload(ctx context.Context, path string) (SignedURL, error) {
	return p.sign(ctx, signRequest{Path: path, Method: http.MethodGet, TTLSeconds: int64(p.TTL.Seconds())})
}

// sign retries transient failures with exponential backoff, three attempts at
// most. Client errors from the signer are not retried.
func (p *HTTPProvider) sign(ctx context.Context, req signRequest) (SignedURL, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return SignedURL{}, fmt.Errorf("media: encode sign request: %w", err)
	}

	var lastErr error
	backoff := 200 * time.Millisecond
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return SignedURL{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		signed, retryable, err := p.signOnce(ctx, body)
		if err == nil {
			return signed, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return SignedURL{}, fmt.Errorf("media: sign url: %w", lastErr)
}

func (p *HTTPProvider) signOnce(ctx context.Context, body []byte) (SignedURL, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/sign", bytes.NewReader(body))
	if err != nil {
		return SignedURL{}, false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return SignedURL{}, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return SignedURL{}, true, fmt.Errorf("signer returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return SignedURL{}, false, fmt.Errorf("signer returned %d", resp.StatusCode)
	}
	var signed SignedURL
	if err := json.NewDecoder(resp.Body).Decode(&signed); err != nil {
		return SignedURL{}, false, fmt.Errorf("decode signer response: %w", err)
	}
	return signed, false, nil
}
