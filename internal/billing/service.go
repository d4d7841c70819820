package billing

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/media"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// Querier is the persistence surface the dashboard needs.
type Querier interface {
	ListRegistrationsByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Registration, error)
	ListRegistrationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]store.Registration, error)
	ListInvoicesByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Invoice, error)
	GetInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) (store.Invoice, error)
	OpenBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
}

// InvoiceDetail is one invoice with its registration lines and a signed PDF
// link when a document exists.
type InvoiceDetail struct {
	Invoice store.Invoice        `json:"invoice"`
	Lines   []store.Registration `json:"lines"`
	PdfURL  string               `json:"pdf_url,omitempty"`
}

// Overview is the dashboard summary.
type Overview struct {
	Registrations []store.Registration `json:"registrations"`
	Invoices      []store.Invoice      `json:"invoices"`
	OpenBalance   int64                `json:"open_balance"`
	Currency      string               `json:"currency"`
}

// Service exposes the parent dashboard reads.
type Service struct {
	Store    Querier
	Media    media.SignedURLProvider
	Logger   zerolog.Logger
	Currency string
}

// Overview assembles registrations, invoices, and the open balance in one
// call.
func (s *Service) Overview(ctx context.Context, accountID uuid.UUID) (Overview, error) {
	registrations, err := s.Store.ListRegistrationsByAccount(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	invoices, err := s.Store.ListInvoicesByAccount(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	balance, err := s.Store.OpenBalance(ctx, accountID)
	if err != nil {
		return Overview{}, err
	}
	return Overview{
		Registrations: registrations,
		Invoices:      invoices,
		OpenBalance:   balance,
		Currency:      s.Currency,
	}, nil
}

// Registrations lists the account's registrations.
func (s *Service) Registrations(ctx context.Context, accountID uuid.UUID) ([]store.Registration, error) {
	return s.Store.ListRegistrationsByAccount(ctx, accountID)
}

// Invoices lists the account's invoices and credit notes.
func (s *Service) Invoices(ctx context.Context, accountID uuid.UUID) ([]store.Invoice, error) {
	return s.Store.ListInvoicesByAccount(ctx, accountID)
}

// Invoice returns one invoice with its registration lines and a download link
// for its PDF. A signer failure degrades to an unlinked invoice.
func (s *Service) Invoice(ctx context.Context, accountID, invoiceID uuid.UUID) (InvoiceDetail, error) {
	invoice, err := s.Store.GetInvoice(ctx, accountID, invoiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return InvoiceDetail{}, common.NewAppError("NOT_FOUND", "invoice not found", http.StatusNotFound, err)
		}
		return InvoiceDetail{}, err
	}
	lines, err := s.Store.ListRegistrationsByInvoice(ctx, invoiceID)
	if err != nil {
		return InvoiceDetail{}, err
	}
	detail := InvoiceDetail{Invoice: invoice, Lines: lines}
	if invoice.PdfPath != nil && s.Media != nil {
		signed, err := s.Media.SignDownload(ctx, *invoice.PdfPath)
		if err != nil {
			s.Logger.Warn().Err(err).Str("invoice_id", invoiceID.String()).Msg("invoice pdf signing failed")
		} else {
			detail.PdfURL = signed.URL
		}
	}
	return detail, nil
}
