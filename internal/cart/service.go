package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// SessionQuerier loads sessions for snapshotting at add time.
type SessionQuerier interface {
	GetSession(ctx context.Context, id uuid.UUID) (store.Session, error)
}

// KidQuerier loads kids scoped to their owning account.
type KidQuerier interface {
	GetKid(ctx context.Context, accountID, kidID uuid.UUID) (store.Kid, error)
}

// Item is one kid-session pair in the cart. Prices are snapshotted in full at
// add time so the price mode can be flipped without refetching the session.
type Item struct {
	SessionID     uuid.UUID      `json:"session_id"`
	KidID         uuid.UUID      `json:"kid_id"`
	KidName       string         `json:"kid_name"`
	Title         string         `json:"title"`
	Center        string         `json:"center"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	Prices        pricing.Prices `json:"prices"`
	LocalEligible bool           `json:"local_eligible"`
	Tier          pricing.Tier   `json:"tier"`
	Amount        pricing.Money  `json:"amount"`
	AddedAt       time.Time      `json:"added_at"`
}

// Key identifies the item inside the cart document.
func (it Item) Key() string {
	return it.SessionID.String() + "-" + it.KidID.String()
}

// Cart is the per-account cart document stored in Redis.
type Cart struct {
	Items     map[string]Item `json:"items"`
	Reduced   bool            `json:"reduced"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Total sums the selected amounts across all items.
func (c Cart) Total() pricing.Money {
	var total pricing.Money
	for _, it := range c.Items {
		total += it.Amount
	}
	return total
}

// Count returns the number of items.
func (c Cart) Count() int {
	return len(c.Items)
}

// Sorted returns items ordered by add time for stable rendering.
func (c Cart) Sorted() []Item {
	items := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].Key() < items[j].Key()
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items
}

// Service manages the Redis-backed cart.
type Service struct {
	Client   *redis.Client
	TTL      time.Duration
	Sessions SessionQuerier
	Kids     KidQuerier
	Resolver *pricing.Resolver
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cartKey(accountID uuid.UUID) string {
	return "cart:" + accountID.String()
}

// Get loads the account's cart. A missing key is an empty cart.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (Cart, error) {
	data, err := s.Client.Get(ctx, cartKey(accountID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Cart{Items: map[string]Item{}}, nil
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	if c.Items == nil {
		c.Items = map[string]Item{}
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, accountID uuid.UUID, c Cart) error {
	c.UpdatedAt = s.now()
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.Client.Set(ctx, cartKey(accountID), data, s.TTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Add puts a kid-session pair in the cart with a full price snapshot. A missing
// session or kid id is logged and leaves the cart untouched; adding an already
// present pair is a no-op.
func (s *Service) Add(ctx context.Context, accountID, sessionID, kidID uuid.UUID) (Cart, error) {
	c, err := s.Get(ctx, accountID)
	if err != nil {
		return Cart{}, err
	}
	if sessionID == uuid.Nil || kidID == uuid.Nil {
		s.Logger.Warn().
			Str("account_id", accountID.String()).
			Str("session_id", sessionID.String()).
			Str("kid_id", kidID.String()).
			Msg("cart add skipped, missing identifier")
		return c, nil
	}
	// A pair already in the cart keeps its snapshot; no refetch, no capacity
	// recheck until checkout.
	key := Item{SessionID: sessionID, KidID: kidID}.Key()
	if _, exists := c.Items[key]; exists {
		return c, nil
	}

	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return Cart{}, common.NewAppError("NOT_FOUND", "session not found", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	kid, err := s.Kids.GetKid(ctx, accountID, kidID)
	if err != nil {
		if err == store.ErrNotFound {
			return Cart{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
		}
		return Cart{}, err
	}
	if sess.Full() {
		return Cart{}, common.NewAppError("SESSION_FULL", "no seats remaining", http.StatusConflict, nil)
	}
	age := pricing.AgeAt(kid.BirthDate, sess.StartDate)
	if !pricing.Eligible(age, sess.AgeMin, sess.AgeMax) {
		return Cart{}, common.NewAppError("NOT_ELIGIBLE", "kid is outside the session age range", http.StatusConflict, nil)
	}

	item := Item{
		SessionID: sess.ID,
		KidID:     kid.ID,
		KidName:   kid.FirstName + " " + kid.LastName,
		Title:     sess.Title,
		Center:    sess.CenterName,
		StartDate: sess.StartDate,
		EndDate:   sess.EndDate,
		Prices:    sess.Prices(),
		AddedAt:   s.now(),
	}
	item.LocalEligible = s.localEligible(ctx, sess, kid)
	item.Tier, item.Amount = pricing.Select(item.Prices, item.LocalEligible, c.Reduced)

	c.Items[key] = item
	if err := s.save(ctx, accountID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Remove drops one kid-session pair from the cart.
func (s *Service) Remove(ctx context.Context, accountID, sessionID, kidID uuid.UUID) (Cart, error) {
	c, err := s.Get(ctx, accountID)
	if err != nil {
		return Cart{}, err
	}
	key := Item{SessionID: sessionID, KidID: kidID}.Key()
	if _, ok := c.Items[key]; !ok {
		return c, nil
	}
	delete(c.Items, key)
	if err := s.save(ctx, accountID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, accountID uuid.UUID) error {
	if err := s.Client.Del(ctx, cartKey(accountID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// SetPriceMode flips the reduced-tariff toggle and reprices every item from its
// stored snapshot. Local eligibility is preserved as computed at add time.
func (s *Service) SetPriceMode(ctx context.Context, accountID uuid.UUID, reduced bool) (Cart, error) {
	c, err := s.Get(ctx, accountID)
	if err != nil {
		return Cart{}, err
	}
	c.Reduced = reduced
	for key, it := range c.Items {
		it.Tier, it.Amount = pricing.Select(it.Prices, it.LocalEligible, reduced)
		c.Items[key] = it
	}
	if err := s.save(ctx, accountID, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) localEligible(ctx context.Context, sess store.Session, kid store.Kid) bool {
	if s.Resolver == nil || sess.TariffConditionID == nil {
		return false
	}
	schoolID := ""
	if kid.SchoolID != nil {
		schoolID = kid.SchoolID.String()
	}
	return s.Resolver.LocalEligible(ctx, sess.TariffConditionID.String(), kid.PostalCode, schoolID)
}
