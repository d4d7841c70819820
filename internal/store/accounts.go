package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Account is a parent profile. Identity lives in the external token issuer;
// this row carries contact details used on invoices and notifications.
type Account struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Address   string
	Postal    string
	City      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetAccount loads a parent profile by id.
func (st *Store) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	var a Account
	err := st.Pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, phone, address, postal_code, city, created_at, updated_at
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.FirstName, &a.LastName, &a.Phone,
		&a.Address, &a.Postal, &a.City, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, notFound(err)
	}
	return a, nil
}

// UpsertAccount creates or updates the parent profile. First login creates the
// row from the token subject.
func (st *Store) UpsertAccount(ctx context.Context, a Account) error {
	_, err := st.Pool.Exec(ctx, `
		INSERT INTO accounts (id, email, first_name, last_name, phone, address, postal_code, city)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET email = $2, first_name = $3, last_name = $4,
			phone = $5, address = $6, postal_code = $7, city = $8, updated_at = now()`,
		a.ID, a.Email, a.FirstName, a.LastName, a.Phone, a.Address, a.Postal, a.City)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}
