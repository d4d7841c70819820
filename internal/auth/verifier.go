package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// Verifier checks bearer tokens issued by the identity provider. The portal
// does not mint tokens itself; it only verifies subject, issuer, audience,
// expiry, and signature algorithm.
type Verifier struct {
	Secret    []byte
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm

	now func() time.Time
}

// NewVerifier builds a Verifier with the HS256 algorithm pinned.
func NewVerifier(secret []byte, issuer, audience string, skew time.Duration) *Verifier {
	return &Verifier{
		Secret:    secret,
		Issuer:    issuer,
		Audience:  audience,
		ClockSkew: skew,
		Algorithm: jwa.HS256,
		now:       time.Now,
	}
}

// AccountID parses and validates a raw token and returns its subject.
func (v *Verifier) AccountID(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.Secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := v.validate(parsed); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	subject := parsed.Subject()
	if subject == "" {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized,
			errors.New("auth: token missing subject"))
	}
	return subject, nil
}

func (v *Verifier) validate(tok jwt.Token) error {
	clock := v.now
	if clock == nil {
		clock = time.Now
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(clock)),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
