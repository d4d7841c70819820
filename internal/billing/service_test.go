package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/media"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

type fakeQuerier struct {
	registrations []store.Registration
	invoices      []store.Invoice
	balance       int64
}

func (f *fakeQuerier) ListRegistrationsByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Registration, error) {
	return f.registrations, nil
}

func (f *fakeQuerier) ListRegistrationsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]store.Registration, error) {
	var lines []store.Registration
	for _, r := range f.registrations {
		if r.InvoiceID != nil && *r.InvoiceID == invoiceID {
			lines = append(lines, r)
		}
	}
	return lines, nil
}

func (f *fakeQuerier) ListInvoicesByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Invoice, error) {
	return f.invoices, nil
}

func (f *fakeQuerier) GetInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) (store.Invoice, error) {
	for _, inv := range f.invoices {
		if inv.ID == invoiceID && inv.AccountID == accountID {
			return inv, nil
		}
	}
	return store.Invoice{}, store.ErrNotFound
}

func (f *fakeQuerier) OpenBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return f.balance, nil
}

func TestOverviewAggregates(t *testing.T) {
	querier := &fakeQuerier{
		registrations: []store.Registration{{ID: uuid.New()}},
		invoices:      []store.Invoice{{ID: uuid.New()}},
		balance:       4500,
	}
	svc := &Service{Store: querier, Logger: zerolog.Nop(), Currency: "EUR"}

	overview, err := svc.Overview(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Len(t, overview.Registrations, 1)
	require.Len(t, overview.Invoices, 1)
	require.EqualValues(t, 4500, overview.OpenBalance)
	require.Equal(t, "EUR", overview.Currency)
}

func TestInvoiceSignsPdf(t *testing.T) {
	accountID := uuid.New()
	invoiceID := uuid.New()
	path := "invoices/INV-2026-000001.pdf"
	querier := &fakeQuerier{invoices: []store.Invoice{{
		ID:        invoiceID,
		AccountID: accountID,
		Number:    "INV-2026-000001",
		PdfPath:   &path,
	}}}
	svc := &Service{Store: querier, Media: &media.MockProvider{}, Logger: zerolog.Nop()}

	detail, err := svc.Invoice(context.Background(), accountID, invoiceID)
	require.NoError(t, err)
	require.NotEmpty(t, detail.PdfURL)
}

func TestInvoiceIncludesRegistrationLines(t *testing.T) {
	accountID := uuid.New()
	invoiceID := uuid.New()
	otherInvoiceID := uuid.New()
	querier := &fakeQuerier{
		invoices: []store.Invoice{{ID: invoiceID, AccountID: accountID, Amount: 16000}},
		registrations: []store.Registration{
			{ID: uuid.New(), KidName: "Lina Dupont", Amount: 10000, InvoiceID: &invoiceID},
			{ID: uuid.New(), KidName: "Noa Dupont", Amount: 6000, InvoiceID: &invoiceID},
			{ID: uuid.New(), InvoiceID: &otherInvoiceID},
		},
	}
	svc := &Service{Store: querier, Logger: zerolog.Nop()}

	detail, err := svc.Invoice(context.Background(), accountID, invoiceID)
	require.NoError(t, err)
	require.Len(t, detail.Lines, 2)
	require.Equal(t, "Lina Dupont", detail.Lines[0].KidName)
	require.EqualValues(t, 16000, detail.Lines[0].Amount+detail.Lines[1].Amount)
}

func TestInvoiceScopedToAccount(t *testing.T) {
	invoiceID := uuid.New()
	querier := &fakeQuerier{invoices: []store.Invoice{{ID: invoiceID, AccountID: uuid.New()}}}
	svc := &Service{Store: querier, Logger: zerolog.Nop()}

	_, err := svc.Invoice(context.Background(), uuid.New(), invoiceID)
	require.Error(t, err)
}
