package checkout

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/cart"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/events"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// Finalizer runs the checkout transaction.
type Finalizer interface {
	FinalizeCheckout(ctx context.Context, accountID uuid.UUID, lines []store.CheckoutLine, dueDate time.Time, price store.CheckoutPricer) (store.CheckoutResult, error)
}

// EventPublisher fans out domain events after checkout.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, accountID uuid.UUID, payload any)
}

// InvoiceStore covers the invoice read and the open-to-paid transition.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, accountID, invoiceID uuid.UUID) (store.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invoiceID uuid.UUID) error
}

// Result is the checkout response.
type Result struct {
	RegistrationIDs []uuid.UUID `json:"registration_ids"`
	InvoiceID       uuid.UUID   `json:"invoice_id"`
	InvoiceNumber   string      `json:"invoice_number"`
	Total           int64       `json:"total"`
	Currency        string      `json:"currency"`
	RedirectURL     string      `json:"redirect_url,omitempty"`
}

// Service turns a cart into registrations and an invoice.
type Service struct {
	Cart     *cart.Service
	Store    Finalizer
	Invoices InvoiceStore
	Payments PaymentProvider
	Events   EventPublisher
	Resolver *pricing.Resolver
	Logger   zerolog.Logger

	Currency   string
	ReturnURL  string
	InvoiceDue time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Checkout finalizes the account's cart. Prices are recomputed from the locked
// session rows; the cart's snapshots only pick the tier toggle. With payNow the
// parent is redirected to the gateway, otherwise the invoice stays open for a
// bank transfer.
func (s *Service) Checkout(ctx context.Context, accountID uuid.UUID, payNow bool) (Result, error) {
	c, err := s.Cart.Get(ctx, accountID)
	if err != nil {
		return Result{}, err
	}
	if c.Count() == 0 {
		return Result{}, common.NewAppError("EMPTY_CART", "cart is empty", http.StatusBadRequest, nil)
	}

	lines := make([]store.CheckoutLine, 0, c.Count())
	for _, item := range c.Sorted() {
		lines = append(lines, store.CheckoutLine{SessionID: item.SessionID, KidID: item.KidID})
	}

	due := s.now().Add(s.invoiceDue())
	result, err := s.Store.FinalizeCheckout(ctx, accountID, lines, due, s.pricer(c.Reduced))
	if err != nil {
		return Result{}, err
	}

	if err := s.Cart.Clear(ctx, accountID); err != nil {
		s.Logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("cart cleanup failed after checkout")
	}

	out := Result{
		RegistrationIDs: result.RegistrationIDs,
		InvoiceID:       result.InvoiceID,
		InvoiceNumber:   result.InvoiceNumber,
		Total:           result.Total,
		Currency:        s.Currency,
	}

	if s.Events != nil {
		for _, regID := range result.RegistrationIDs {
			s.Events.Publish(ctx, events.TopicRegistrationCreated, accountID, map[string]any{"registration_id": regID})
		}
		s.Events.Publish(ctx, events.TopicInvoiceCreated, accountID, map[string]any{
			"invoice_id": result.InvoiceID,
			"number":     result.InvoiceNumber,
			"amount":     result.Total,
		})
	}

	if payNow && result.Total > 0 {
		redirect, err := s.Payments.CreatePayment(ctx, PaymentRequest{
			Reference: result.InvoiceNumber,
			Amount:    result.Total,
			Currency:  s.Currency,
			ReturnURL: s.ReturnURL,
		})
		if err != nil {
			// Registrations are committed; the parent can still pay from
			// the dashboard.
			s.Logger.Error().Err(err).Str("invoice", result.InvoiceNumber).Msg("payment redirect failed")
			return out, nil
		}
		out.RedirectURL = redirect.RedirectURL
	}
	return out, nil
}

// ConfirmPayment flips an open invoice to paid once the parent returns from
// the gateway. Confirming an already paid invoice is a no-op so the return
// page can be reloaded safely.
func (s *Service) ConfirmPayment(ctx context.Context, accountID, invoiceID uuid.UUID) (store.Invoice, error) {
	inv, err := s.Invoices.GetInvoice(ctx, accountID, invoiceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Invoice{}, common.NewAppError("NOT_FOUND", "invoice not found", http.StatusNotFound, err)
		}
		return store.Invoice{}, err
	}
	if inv.Status == store.InvoicePaid {
		return inv, nil
	}
	if inv.Kind != store.InvoiceKindInvoice || inv.Status != store.InvoiceOpen {
		return store.Invoice{}, common.NewAppError("INVOICE_NOT_OPEN", "invoice cannot be paid", http.StatusConflict, nil)
	}
	if err := s.Invoices.MarkInvoicePaid(ctx, invoiceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Invoice{}, common.NewAppError("INVOICE_NOT_OPEN", "invoice cannot be paid", http.StatusConflict, err)
		}
		return store.Invoice{}, err
	}
	inv.Status = store.InvoicePaid
	if s.Events != nil {
		s.Events.Publish(ctx, events.TopicInvoicePaid, accountID, map[string]any{
			"invoice_id": inv.ID,
			"number":     inv.Number,
			"amount":     inv.Amount,
		})
	}
	return inv, nil
}

func (s *Service) invoiceDue() time.Duration {
	if s.InvoiceDue > 0 {
		return s.InvoiceDue
	}
	return 30 * 24 * time.Hour
}

// pricer recomputes eligibility and the charged tier against the locked
// session row.
func (s *Service) pricer(reduced bool) store.CheckoutPricer {
	return func(ctx context.Context, sess store.Session, kid store.Kid) (string, int64, error) {
		age := pricing.AgeAt(kid.BirthDate, sess.StartDate)
		if !pricing.Eligible(age, sess.AgeMin, sess.AgeMax) {
			return "", 0, common.NewAppError("NOT_ELIGIBLE",
				kid.FirstName+" is outside the session age range", http.StatusConflict, nil)
		}
		local := false
		if s.Resolver != nil && sess.TariffConditionID != nil {
			schoolID := ""
			if kid.SchoolID != nil {
				schoolID = kid.SchoolID.String()
			}
			local = s.Resolver.LocalEligible(ctx, sess.TariffConditionID.String(), kid.PostalCode, schoolID)
		}
		tier, amount := pricing.Select(sess.Prices(), local, reduced)
		return string(tier), int64(amount), nil
	}
}
