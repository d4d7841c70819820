package checkout

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/cart"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

type fakeBackend struct {
	sessions  map[uuid.UUID]store.Session
	kids      map[uuid.UUID]store.Kid
	invoices  map[uuid.UUID]store.Invoice
	finalized int
}

func (f *fakeBackend) GetSession(ctx context.Context, id uuid.UUID) (store.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return store.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeBackend) GetKid(ctx context.Context, accountID, kidID uuid.UUID) (store.Kid, error) {
	k, ok := f.kids[kidID]
	if !ok || k.AccountID != accountID {
		return store.Kid{}, store.ErrNotFound
	}
	return k, nil
}

// FinalizeCheckout mirrors the transactional store method against the
// in-memory maps.
func (f *fakeBackend) FinalizeCheckout(ctx context.Context, accountID uuid.UUID, lines []store.CheckoutLine, dueDate time.Time, price store.CheckoutPricer) (store.CheckoutResult, error) {
	result := store.CheckoutResult{InvoiceID: uuid.New(), InvoiceNumber: "INV-TEST-000001"}
	for _, line := range lines {
		sess, ok := f.sessions[line.SessionID]
		if !ok {
			return store.CheckoutResult{}, common.NewAppError("NOT_FOUND", "session not found", http.StatusNotFound, nil)
		}
		if sess.Full() {
			return store.CheckoutResult{}, common.NewAppError("SESSION_FULL", "no seats remaining", http.StatusConflict, nil)
		}
		kid, ok := f.kids[line.KidID]
		if !ok || kid.AccountID != accountID {
			return store.CheckoutResult{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, nil)
		}
		_, amount, err := price(ctx, sess, kid)
		if err != nil {
			return store.CheckoutResult{}, err
		}
		result.RegistrationIDs = append(result.RegistrationIDs, uuid.New())
		result.Total += amount
		sess.Registered++
		f.sessions[line.SessionID] = sess
	}
	f.finalized++
	return result, nil
}

func (f *fakeBackend) GetInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) (store.Invoice, error) {
	inv, ok := f.invoices[invoiceID]
	if !ok || inv.AccountID != accountID {
		return store.Invoice{}, store.ErrNotFound
	}
	return inv, nil
}

func (f *fakeBackend) MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID) error {
	inv, ok := f.invoices[invoiceID]
	if !ok || inv.Status != store.InvoiceOpen {
		return store.ErrNotFound
	}
	inv.Status = store.InvoicePaid
	f.invoices[invoiceID] = inv
	return nil
}

type fakePublisher struct {
	topics []string
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, accountID uuid.UUID, payload any) {
	f.topics = append(f.topics, topic)
}

func intPtr(v int64) *int64 { return &v }

type fixture struct {
	svc       *Service
	backend   *fakeBackend
	cart      *cart.Service
	events    *fakePublisher
	accountID uuid.UUID
	sessionID uuid.UUID
	kidID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	accountID := uuid.New()
	sessionID := uuid.New()
	kidID := uuid.New()
	backend := &fakeBackend{
		sessions: map[uuid.UUID]store.Session{sessionID: {
			ID:           sessionID,
			Title:        "Cirque",
			StartDate:    time.Date(2026, time.July, 6, 0, 0, 0, 0, time.UTC),
			EndDate:      time.Date(2026, time.July, 10, 0, 0, 0, 0, time.UTC),
			Capacity:     20,
			Registered:   5,
			AgeMin:       6,
			AgeMax:       8,
			PriceNormal:  10000,
			PriceReduced: intPtr(6000),
		}},
		kids: map[uuid.UUID]store.Kid{kidID: {
			ID:        kidID,
			AccountID: accountID,
			FirstName: "Lina",
			BirthDate: time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
		}},
		invoices: map[uuid.UUID]store.Invoice{},
	}
	cartSvc := &cart.Service{
		Client:   client,
		TTL:      time.Hour,
		Sessions: backend,
		Kids:     backend,
		Logger:   zerolog.Nop(),
	}
	events := &fakePublisher{}
	svc := &Service{
		Cart:     cartSvc,
		Store:    backend,
		Invoices: backend,
		Payments: &MockPaymentProvider{},
		Events:   events,
		Logger:   zerolog.Nop(),
		Currency: "EUR",
	}
	return &fixture{svc: svc, backend: backend, cart: cartSvc, events: events,
		accountID: accountID, sessionID: sessionID, kidID: kidID}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Checkout(context.Background(), f.accountID, false)
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestCheckoutChargesCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.Add(ctx, f.accountID, f.sessionID, f.kidID)
	require.NoError(t, err)

	// Price changed after the snapshot; the committed amount follows the row.
	sess := f.backend.sessions[f.sessionID]
	sess.PriceNormal = 12000
	f.backend.sessions[f.sessionID] = sess

	result, err := f.svc.Checkout(ctx, f.accountID, false)
	require.NoError(t, err)
	require.EqualValues(t, 12000, result.Total)
	require.Len(t, result.RegistrationIDs, 1)
	require.Empty(t, result.RedirectURL)
}

func TestCheckoutClearsCartAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.Add(ctx, f.accountID, f.sessionID, f.kidID)
	require.NoError(t, err)

	_, err = f.svc.Checkout(ctx, f.accountID, false)
	require.NoError(t, err)

	c, err := f.cart.Get(ctx, f.accountID)
	require.NoError(t, err)
	require.Equal(t, 0, c.Count())
	require.Equal(t, []string{"registration.created", "invoice.created"}, f.events.topics)
}

func TestCheckoutFullSessionAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.Add(ctx, f.accountID, f.sessionID, f.kidID)
	require.NoError(t, err)

	sess := f.backend.sessions[f.sessionID]
	sess.Registered = sess.Capacity
	f.backend.sessions[f.sessionID] = sess

	_, err = f.svc.Checkout(ctx, f.accountID, false)
	require.Error(t, err)
	require.Zero(t, f.backend.finalized)

	// The cart survives a failed checkout.
	c, err := f.cart.Get(ctx, f.accountID)
	require.NoError(t, err)
	require.Equal(t, 1, c.Count())
}

func TestCheckoutPayNowRedirects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.cart.Add(ctx, f.accountID, f.sessionID, f.kidID)
	require.NoError(t, err)

	result, err := f.svc.Checkout(ctx, f.accountID, true)
	require.NoError(t, err)
	require.NotEmpty(t, result.RedirectURL)
}

func TestConfirmPaymentMarksInvoicePaid(t *testing.T) {
	f := newFixture(t)
	invoiceID := uuid.New()
	f.backend.invoices[invoiceID] = store.Invoice{
		ID:        invoiceID,
		AccountID: f.accountID,
		Number:    "INV-2026-000007",
		Kind:      store.InvoiceKindInvoice,
		Amount:    10000,
		Status:    store.InvoiceOpen,
	}

	inv, err := f.svc.ConfirmPayment(context.Background(), f.accountID, invoiceID)
	require.NoError(t, err)
	require.Equal(t, store.InvoicePaid, inv.Status)
	require.Equal(t, store.InvoicePaid, f.backend.invoices[invoiceID].Status)
	require.Equal(t, []string{"invoice.paid"}, f.events.topics)
}

func TestConfirmPaymentAlreadyPaidIsNoOp(t *testing.T) {
	f := newFixture(t)
	invoiceID := uuid.New()
	f.backend.invoices[invoiceID] = store.Invoice{
		ID:        invoiceID,
		AccountID: f.accountID,
		Kind:      store.InvoiceKindInvoice,
		Status:    store.InvoicePaid,
	}

	inv, err := f.svc.ConfirmPayment(context.Background(), f.accountID, invoiceID)
	require.NoError(t, err)
	require.Equal(t, store.InvoicePaid, inv.Status)
	require.Empty(t, f.events.topics)
}

func TestConfirmPaymentRejectsCreditNote(t *testing.T) {
	f := newFixture(t)
	invoiceID := uuid.New()
	f.backend.invoices[invoiceID] = store.Invoice{
		ID:        invoiceID,
		AccountID: f.accountID,
		Kind:      store.InvoiceKindCreditNote,
		Status:    store.InvoiceOpen,
	}

	_, err := f.svc.ConfirmPayment(context.Background(), f.accountID, invoiceID)
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestConfirmPaymentScopedToAccount(t *testing.T) {
	f := newFixture(t)
	invoiceID := uuid.New()
	f.backend.invoices[invoiceID] = store.Invoice{
		ID:        invoiceID,
		AccountID: uuid.New(),
		Kind:      store.InvoiceKindInvoice,
		Status:    store.InvoiceOpen,
	}

	_, err := f.svc.ConfirmPayment(context.Background(), f.accountID, invoiceID)
	require.Error(t, err)
}

func TestCheckoutSurvivesGatewayOutage(t *testing.T) {
	f := newFixture(t)
	f.svc.Payments = &MockPaymentProvider{
		CreatePaymentFunc: func(ctx context.Context, req PaymentRequest) (PaymentRedirect, error) {
			return PaymentRedirect{}, errors.New("gateway down")
		},
	}
	ctx := context.Background()
	_, err := f.cart.Add(ctx, f.accountID, f.sessionID, f.kidID)
	require.NoError(t, err)

	result, err := f.svc.Checkout(ctx, f.accountID, true)
	require.NoError(t, err)
	require.Empty(t, result.RedirectURL)
	require.Len(t, result.RegistrationIDs, 1)
}
