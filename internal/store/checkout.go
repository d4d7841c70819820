package store

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
)

// CheckoutLine is one kid-session pair being finalized.
type CheckoutLine struct {
	SessionID uuid.UUID
	KidID     uuid.UUID
}

// CheckoutPricer recomputes the charge for a locked session and its kid.
// Cart snapshots are display-only; the committed amount always comes from here.
type CheckoutPricer func(ctx context.Context, sess Session, kid Kid) (tier string, amount int64, err error)

// CheckoutResult reports what the finalize transaction created.
type CheckoutResult struct {
	RegistrationIDs []uuid.UUID
	InvoiceID       uuid.UUID
	InvoiceNumber   string
	Total           int64
}

// FinalizeCheckout turns cart lines into registrations and one invoice in a
// single transaction. Sessions are locked row by row so capacity cannot be
// oversold; any failed line aborts the whole checkout.
func (st *Store) FinalizeCheckout(ctx context.Context, accountID uuid.UUID, lines []CheckoutLine, dueDate time.Time, price CheckoutPricer) (CheckoutResult, error) {
	if len(lines) == 0 {
		return CheckoutResult{}, common.NewAppError("EMPTY_CART", "nothing to check out", http.StatusBadRequest, nil)
	}
	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("begin checkout: %w", err)
	}
	defer tx.Rollback(ctx)

	type pricedLine struct {
		line   CheckoutLine
		tier   string
		amount int64
	}
	priced := make([]pricedLine, 0, len(lines))
	var total int64
	for _, line := range lines {
		sess, err := st.GetSessionTx(ctx, tx, line.SessionID)
		if err != nil {
			if err == ErrNotFound {
				return CheckoutResult{}, common.NewAppError("NOT_FOUND", "session not found", http.StatusNotFound, err)
			}
			return CheckoutResult{}, err
		}
		if sess.Full() {
			return CheckoutResult{}, common.NewAppError("SESSION_FULL", fmt.Sprintf("%s has no seats remaining", sess.Title), http.StatusConflict, nil)
		}
		kid, err := st.getKidTx(ctx, tx, accountID, line.KidID)
		if err != nil {
			if err == ErrNotFound {
				return CheckoutResult{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
			}
			return CheckoutResult{}, err
		}
		existing, err := st.CountActiveRegistrationTx(ctx, tx, line.KidID, line.SessionID)
		if err != nil {
			return CheckoutResult{}, err
		}
		if existing > 0 {
			return CheckoutResult{}, common.NewAppError("ALREADY_REGISTERED", fmt.Sprintf("%s is already registered for %s", kid.FirstName, sess.Title), http.StatusConflict, nil)
		}
		tier, amount, err := price(ctx, sess, kid)
		if err != nil {
			return CheckoutResult{}, err
		}
		priced = append(priced, pricedLine{line: line, tier: tier, amount: amount})
		total += amount
	}

	number, err := st.NextInvoiceNumberTx(ctx, tx)
	if err != nil {
		return CheckoutResult{}, err
	}
	invoiceID, err := st.CreateInvoiceTx(ctx, tx, Invoice{
		AccountID: accountID,
		Number:    number,
		Kind:      InvoiceKindInvoice,
		Amount:    total,
		Status:    InvoiceOpen,
		DueDate:   &dueDate,
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	result := CheckoutResult{InvoiceID: invoiceID, InvoiceNumber: number, Total: total}
	for _, pl := range priced {
		regID, err := st.CreateRegistrationTx(ctx, tx, Registration{
			AccountID: accountID,
			KidID:     pl.line.KidID,
			SessionID: pl.line.SessionID,
			Amount:    pl.amount,
			PriceTier: pl.tier,
			Status:    RegistrationConfirmed,
			InvoiceID: &invoiceID,
		})
		if err != nil {
			return CheckoutResult{}, err
		}
		result.RegistrationIDs = append(result.RegistrationIDs, regID)
		if err := st.BumpRegisteredTx(ctx, tx, pl.line.SessionID, 1); err != nil {
			return CheckoutResult{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return CheckoutResult{}, fmt.Errorf("commit checkout: %w", err)
	}
	return result, nil
}

func (st *Store) getKidTx(ctx context.Context, tx pgx.Tx, accountID, kidID uuid.UUID) (Kid, error) {
	var k Kid
	err := tx.QueryRow(ctx, `
		SELECT id, account_id, first_name, last_name, birth_date, postal_code, school_id, photo_path, created_at, updated_at
		FROM kids WHERE id = $1 AND account_id = $2`, kidID, accountID,
	).Scan(&k.ID, &k.AccountID, &k.FirstName, &k.LastName, &k.BirthDate,
		&k.PostalCode, &k.SchoolID, &k.PhotoPath, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return Kid{}, notFound(err)
	}
	return k, nil
}
