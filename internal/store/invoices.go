package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Invoice kinds and statuses.
const (
	InvoiceKindInvoice    = "invoice"
	InvoiceKindCreditNote = "credit_note"

	InvoiceOpen      = "open"
	InvoicePaid      = "paid"
	InvoiceCancelled = "cancelled"
)

// Invoice is a billing document. Credit notes share the table and carry the
// credit_note kind; their amount reduces the open balance.
type Invoice struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Number    string
	Kind      string
	Amount    int64
	Status    string
	DueDate   *time.Time
	PdfPath   *string
	CreatedAt time.Time
}

// CreateInvoiceTx inserts an invoice inside the checkout transaction.
func (st *Store) CreateInvoiceTx(ctx context.Context, tx pgx.Tx, inv Invoice) (uuid.UUID, error) {
	id := uuid.New()
	_, err := tx.Exec(ctx, `
		INSERT INTO invoices (id, account_id, number, kind, amount, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, inv.AccountID, inv.Number, inv.Kind, inv.Amount, inv.Status, inv.DueDate)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create invoice: %w", err)
	}
	return id, nil
}

// NextInvoiceNumberTx draws the next value from the invoice sequence.
func (st *Store) NextInvoiceNumberTx(ctx context.Context, tx pgx.Tx) (string, error) {
	var n int64
	if err := tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%d-%06d", time.Now().Year(), n), nil
}

// ListInvoicesByAccount returns the account's invoices and credit notes,
// newest first.
func (st *Store) ListInvoicesByAccount(ctx context.Context, accountID uuid.UUID) ([]Invoice, error) {
	rows, err := st.Pool.Query(ctx, `
		SELECT id, account_id, number, kind, amount, status, due_date, pdf_path, created_at
		FROM invoices WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.AccountID, &inv.Number, &inv.Kind, &inv.Amount,
			&inv.Status, &inv.DueDate, &inv.PdfPath, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// GetInvoice loads one invoice scoped to its account.
func (st *Store) GetInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) (Invoice, error) {
	var inv Invoice
	err := st.Pool.QueryRow(ctx, `
		SELECT id, account_id, number, kind, amount, status, due_date, pdf_path, created_at
		FROM invoices WHERE id = $1 AND account_id = $2`, invoiceID, accountID,
	).Scan(&inv.ID, &inv.AccountID, &inv.Number, &inv.Kind, &inv.Amount,
		&inv.Status, &inv.DueDate, &inv.PdfPath, &inv.CreatedAt)
	if err != nil {
		return Invoice{}, notFound(err)
	}
	return inv, nil
}

// OpenBalance sums open invoices minus credit notes for an account.
func (st *Store) OpenBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := st.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = $2 THEN -amount ELSE amount END), 0)
		FROM invoices WHERE account_id = $1 AND status = $3`,
		accountID, InvoiceKindCreditNote, InvoiceOpen).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("open balance: %w", err)
	}
	return balance, nil
}

// MarkInvoicePaid flips an open invoice to paid. Used by the payment
// confirmation flow.
func (st *Store) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID) error {
	tag, err := st.Pool.Exec(ctx,
		`UPDATE invoices SET status = $2 WHERE id = $1 AND status = $3`,
		invoiceID, InvoicePaid, InvoiceOpen)
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
