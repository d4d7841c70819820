package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Registration statuses.
const (
	RegistrationConfirmed = "confirmed"
	RegistrationPending   = "pending"
	RegistrationCancelled = "cancelled"
)

// Registration ties a kid to an activity session with the price that was
// charged at checkout time.
type Registration struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	KidID     uuid.UUID
	SessionID uuid.UUID
	KidName   string
	Title     string
	StartDate time.Time
	EndDate   time.Time
	Amount    int64
	PriceTier string
	Status    string
	InvoiceID *uuid.UUID
	CreatedAt time.Time
}

// CreateRegistrationTx inserts a registration inside the checkout transaction.
func (st *Store) CreateRegistrationTx(ctx context.Context, tx pgx.Tx, r Registration) (uuid.UUID, error) {
	id := uuid.New()
	_, err := tx.Exec(ctx, `
		INSERT INTO registrations (id, account_id, kid_id, session_id, amount, price_tier, status, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, r.AccountID, r.KidID, r.SessionID, r.Amount, r.PriceTier, r.Status, r.InvoiceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create registration: %w", err)
	}
	return id, nil
}

// CountActiveRegistrationTx reports whether the kid already holds a seat on the
// session, locking nothing beyond the registration rows.
func (st *Store) CountActiveRegistrationTx(ctx context.Context, tx pgx.Tx, kidID, sessionID uuid.UUID) (int64, error) {
	var n int64
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM registrations
		WHERE kid_id = $1 AND session_id = $2 AND status <> $3`,
		kidID, sessionID, RegistrationCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

const registrationSelect = `
	SELECT r.id, r.account_id, r.kid_id, r.session_id,
		k.first_name || ' ' || k.last_name,
		st.title, s.start_date, s.end_date,
		r.amount, r.price_tier, r.status, r.invoice_id, r.created_at
	FROM registrations r
	JOIN kids k ON k.id = r.kid_id
	JOIN activity_sessions s ON s.id = r.session_id
	JOIN stages st ON st.id = s.stage_id`

func (st *Store) queryRegistrations(ctx context.Context, query string, args ...any) ([]Registration, error) {
	rows, err := st.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var regs []Registration
	for rows.Next() {
		var r Registration
		if err := rows.Scan(&r.ID, &r.AccountID, &r.KidID, &r.SessionID,
			&r.KidName, &r.Title, &r.StartDate, &r.EndDate,
			&r.Amount, &r.PriceTier, &r.Status, &r.InvoiceID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

// ListRegistrationsByAccount returns the account's registrations, newest first,
// joined with kid and session display fields.
func (st *Store) ListRegistrationsByAccount(ctx context.Context, accountID uuid.UUID) ([]Registration, error) {
	return st.queryRegistrations(ctx,
		registrationSelect+` WHERE r.account_id = $1 ORDER BY r.created_at DESC`, accountID)
}

// ListRegistrationsByInvoice returns the registrations billed on one invoice,
// in the order they were written by checkout.
func (st *Store) ListRegistrationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Registration, error) {
	return st.queryRegistrations(ctx,
		registrationSelect+` WHERE r.invoice_id = $1 ORDER BY r.created_at`, invoiceID)
}
