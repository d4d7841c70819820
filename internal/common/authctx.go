package common

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

const accountIDKey ctxKey = "auth/account-id"

// WithAccountID stores the authenticated account identifier on the provided context.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountID extracts the authenticated account identifier from the context if present.
func AccountID(ctx context.Context) (string, bool) {
	v := ctx.Value(accountIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// AccountUUID extracts the authenticated account identifier and parses it as a
// UUID. It returns an UNAUTHORIZED AppError when the context carries no usable
// identity.
func AccountUUID(ctx context.Context) (uuid.UUID, error) {
	raw, ok := AccountID(ctx)
	if !ok || raw == "" {
		return uuid.Nil, NewAppError("UNAUTHORIZED", "missing account", http.StatusUnauthorized, nil)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, NewAppError("UNAUTHORIZED", "invalid account id", http.StatusUnauthorized, err)
	}
	return id, nil
}
