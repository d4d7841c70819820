package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T, handler http.HandlerFunc) *HTTPProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	provider := NewHTTPProvider(server.URL, "test-key", time.Hour)
	return provider
}

func TestSignUpload(t *testing.T) {
	provider := newSigner(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/sign", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req signRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, http.MethodPut, req.Method)
		json.NewEncoder(w).Encode(SignedURL{URL: "https://storage.test/u/" + req.Path, Method: req.Method, Path: req.Path})
	})

	signed, err := provider.SignUpload(context.Background(), "kids/photo.jpg", "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, "https://storage.test/u/kids/photo.jpg", signed.URL)
}

func TestSignRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	provider := newSigner(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(SignedURL{URL: "https://storage.test/ok"})
	})

	signed, err := provider.SignDownload(context.Background(), "kids/photo.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://storage.test/ok", signed.URL)
	require.EqualValues(t, 3, calls.Load())
}

func TestSignGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	provider := newSigner(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := provider.SignDownload(context.Background(), "kids/photo.jpg")
	require.Error(t, err)
	require.EqualValues(t, 3, calls.Load())
}

func TestSignDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	provider := newSigner(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := provider.SignDownload(context.Background(), "kids/photo.jpg")
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())
}
