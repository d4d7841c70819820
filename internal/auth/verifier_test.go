package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

var testSecret = []byte("test-secret-0123456789abcdef0123")

func signToken(t *testing.T, mutate func(b *jwt.Builder)) string {
	t.Helper()
	now := time.Now()
	builder := jwt.NewBuilder().
		Subject("acct-42").
		Issuer("https://id.example.org").
		Audience([]string{"portal"}).
		IssuedAt(now).
		Expiration(now.Add(time.Hour))
	if mutate != nil {
		mutate(builder)
	}
	tok, err := builder.Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, testSecret))
	require.NoError(t, err)
	return string(signed)
}

func newTestVerifier() *Verifier {
	return NewVerifier(testSecret, "https://id.example.org", "portal", time.Minute)
}

func TestVerifierAcceptsValidToken(t *testing.T) {
	accountID, err := newTestVerifier().AccountID(signToken(t, nil))
	require.NoError(t, err)
	require.Equal(t, "acct-42", accountID)
}

func TestVerifierRejectsExpiredToken(t *testing.T) {
	token := signToken(t, func(b *jwt.Builder) {
		b.Expiration(time.Now().Add(-2 * time.Hour))
	})
	_, err := newTestVerifier().AccountID(token)
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestVerifierRejectsWrongIssuer(t *testing.T) {
	token := signToken(t, func(b *jwt.Builder) {
		b.Issuer("https://evil.example.org")
	})
	_, err := newTestVerifier().AccountID(token)
	require.Error(t, err)
}

func TestVerifierRejectsWrongAudience(t *testing.T) {
	token := signToken(t, func(b *jwt.Builder) {
		b.Audience([]string{"other-app"})
	})
	_, err := newTestVerifier().AccountID(token)
	require.Error(t, err)
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	tok, err := jwt.NewBuilder().
		Subject("acct-42").
		Issuer("https://id.example.org").
		Audience([]string{"portal"}).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("another-secret-another-secret-12")))
	require.NoError(t, err)

	_, err = newTestVerifier().AccountID(string(signed))
	require.Error(t, err)
}

func TestVerifierRejectsEmptyToken(t *testing.T) {
	_, err := newTestVerifier().AccountID("   ")
	require.Error(t, err)
}

func TestRequireAuthAttachesAccountID(t *testing.T) {
	middleware := Middleware{Verifier: newTestVerifier()}
	var seen string
	handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.AccountID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/kids", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "acct-42", seen)
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	middleware := Middleware{Verifier: newTestVerifier()}
	handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/kids", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
