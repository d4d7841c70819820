package media

import (
	"context"
	"time"
)

// MockProvider implements SignedURLProvider with function hooks for tests.
type MockProvider struct {
	SignUploadFunc   func(ctx context.Context, path, contentType string) (SignedURL, error)
	SignDownloadFunc func(ctx context.Context, path string) (SignedURL, error)
}

// SignUpload delegates to the hook, or returns a deterministic stub.
func (m *MockProvider) SignUpload(ctx context.Context, path, contentType string) (SignedURL, error) {
	if m.SignUploadFunc != nil {
		return m.SignUploadFunc(ctx, path, contentType)
	}
	return SignedURL{URL: "https://storage.test/upload/" + path, Method: "PUT", Path: path, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// SignDownload delegates to the hook, or returns a deterministic stub.
func (m *MockProvider) SignDownload(ctx context.Context, path string) (SignedURL, error) {
	if m.SignDownloadFunc != nil {
		return m.SignDownloadFunc(ctx, path)
	}
	return SignedURL{URL: "https://storage.test/get/" + path, Method: "GET", Path: path, ExpiresAt: time.Now().Add(time.Hour)}, nil
}
