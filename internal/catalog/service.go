package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// SessionQuerier loads activity sessions.
type SessionQuerier interface {
	ListOpenSessions(ctx context.Context, today time.Time) ([]store.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (store.Session, error)
}

// KidQuerier loads kids scoped to their owning account.
type KidQuerier interface {
	GetKid(ctx context.Context, accountID, kidID uuid.UUID) (store.Kid, error)
}

// RefQuerier loads reference data used by listing filters.
type RefQuerier interface {
	ListCenters(ctx context.Context) ([]store.Center, error)
	ListSchools(ctx context.Context) ([]store.School, error)
}

// ListParams narrows the session listing.
type ListParams struct {
	CenterID uuid.UUID
	Period   string
	KidID    uuid.UUID
	Reduced  bool
	MinAge   int
	MaxAge   int
	Limit    int
}

// Item is one listed session, priced for the requesting family when a kid is
// selected.
type Item struct {
	SessionID     uuid.UUID      `json:"session_id"`
	Title         string         `json:"title"`
	Center        string         `json:"center"`
	Period        string         `json:"period"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	AgeMin        int32          `json:"age_min"`
	AgeMax        int32          `json:"age_max"`
	Remaining     int32          `json:"remaining"`
	Full          bool           `json:"full"`
	KidAge        *float64       `json:"kid_age,omitempty"`
	LocalEligible bool           `json:"local_eligible"`
	Tier          pricing.Tier   `json:"tier"`
	Amount        pricing.Money  `json:"amount"`
	Prices        pricing.Prices `json:"prices"`
}

// Service implements the session listing and detail operations.
type Service struct {
	Sessions SessionQuerier
	Kids     KidQuerier
	Refs     RefQuerier
	Resolver *pricing.Resolver
	Cache    *Cache
	Logger   zerolog.Logger

	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ParseListParams reads listing filters from the query string.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{Limit: s.DefaultLimit}
	if raw := values.Get("center"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ListParams{}, common.NewAppError("VALIDATION", "invalid center id", http.StatusBadRequest, err)
		}
		params.CenterID = id
	}
	if raw := values.Get("kid"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return ListParams{}, common.NewAppError("VALIDATION", "invalid kid id", http.StatusBadRequest, err)
		}
		params.KidID = id
	}
	params.Period = values.Get("period")
	params.Reduced = values.Get("reduced") == "true"
	if raw := values.Get("min_age"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return ListParams{}, common.NewAppError("VALIDATION", "invalid min_age", http.StatusBadRequest, err)
		}
		params.MinAge = v
	}
	if raw := values.Get("max_age"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return ListParams{}, common.NewAppError("VALIDATION", "invalid max_age", http.StatusBadRequest, err)
		}
		params.MaxAge = v
	}
	if raw := values.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return ListParams{}, common.NewAppError("VALIDATION", "invalid limit", http.StatusBadRequest, err)
		}
		params.Limit = v
	}
	if s.MaxLimit > 0 && params.Limit > s.MaxLimit {
		params.Limit = s.MaxLimit
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	return params, nil
}

// ListSessions returns sessions open for registration, filtered and priced.
// When a kid is selected every returned item is priced for that kid and
// ineligible sessions are dropped; any lookup failure fails the whole listing
// rather than returning a partial page.
func (s *Service) ListSessions(ctx context.Context, accountID uuid.UUID, params ListParams) ([]Item, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var kid *store.Kid
	if params.KidID != uuid.Nil {
		k, err := s.Kids.GetKid(ctx, accountID, params.KidID)
		if err != nil {
			if err == store.ErrNotFound {
				return nil, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
			}
			return nil, fmt.Errorf("load kid: %w", err)
		}
		kid = &k
	}

	cacheKey := ""
	if kid == nil && s.Cache != nil {
		cacheKey = listCacheKey(params, today)
		var cached []Item
		if ok, err := s.Cache.GetJSON(ctx, cacheKey, &cached); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	sessions, err := s.Sessions.ListOpenSessions(ctx, today)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(sessions))
	for _, sess := range sessions {
		if sess.VisibleFrom != nil && sess.VisibleFrom.After(now) {
			continue
		}
		if params.CenterID != uuid.Nil && sess.CenterID != params.CenterID {
			continue
		}
		if params.Period != "" && sess.Period != params.Period {
			continue
		}

		item := Item{
			SessionID: sess.ID,
			Title:     sess.Title,
			Center:    sess.CenterName,
			Period:    sess.Period,
			StartDate: sess.StartDate,
			EndDate:   sess.EndDate,
			AgeMin:    sess.AgeMin,
			AgeMax:    sess.AgeMax,
			Remaining: sess.Remaining(),
			Full:      sess.Full(),
			Prices:    sess.Prices(),
		}

		if kid != nil {
			age := pricing.AgeAt(kid.BirthDate, sess.StartDate)
			if !pricing.Eligible(age, sess.AgeMin, sess.AgeMax) {
				continue
			}
			item.KidAge = &age
			item.LocalEligible = s.localEligible(ctx, sess, *kid)
		} else {
			if params.MinAge > 0 && int(sess.AgeMax) < params.MinAge {
				continue
			}
			if params.MaxAge > 0 && int(sess.AgeMin) > params.MaxAge {
				continue
			}
		}

		item.Tier, item.Amount = pricing.Select(item.Prices, item.LocalEligible, params.Reduced)
		items = append(items, item)
	}

	// Families chasing scarce seats see the nearly-full sessions first.
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Remaining < items[j].Remaining
	})
	if len(items) > params.Limit {
		items = items[:params.Limit]
	}

	if cacheKey != "" {
		if err := s.Cache.SetJSON(ctx, cacheKey, items); err != nil {
			s.Logger.Warn().Err(err).Msg("catalog cache write failed")
		}
	}
	return items, nil
}

// GetSessionDetail returns one session, priced for a kid when one is supplied.
func (s *Service) GetSessionDetail(ctx context.Context, accountID, sessionID, kidID uuid.UUID, reduced bool) (Item, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if err == store.ErrNotFound {
			return Item{}, common.NewAppError("NOT_FOUND", "session not found", http.StatusNotFound, err)
		}
		return Item{}, err
	}
	item := Item{
		SessionID: sess.ID,
		Title:     sess.Title,
		Center:    sess.CenterName,
		Period:    sess.Period,
		StartDate: sess.StartDate,
		EndDate:   sess.EndDate,
		AgeMin:    sess.AgeMin,
		AgeMax:    sess.AgeMax,
		Remaining: sess.Remaining(),
		Full:      sess.Full(),
		Prices:    sess.Prices(),
	}
	if kidID != uuid.Nil {
		kid, err := s.Kids.GetKid(ctx, accountID, kidID)
		if err != nil {
			if err == store.ErrNotFound {
				return Item{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
			}
			return Item{}, fmt.Errorf("load kid: %w", err)
		}
		age := pricing.AgeAt(kid.BirthDate, sess.StartDate)
		item.KidAge = &age
		item.LocalEligible = s.localEligible(ctx, sess, kid)
	}
	item.Tier, item.Amount = pricing.Select(item.Prices, item.LocalEligible, reduced)
	return item, nil
}

// ListCenters returns all centers.
func (s *Service) ListCenters(ctx context.Context) ([]store.Center, error) {
	return s.Refs.ListCenters(ctx)
}

// ListSchools returns all schools.
func (s *Service) ListSchools(ctx context.Context) ([]store.School, error) {
	return s.Refs.ListSchools(ctx)
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

func listCacheKey(params ListParams, today time.Time) string {
	return fmt.Sprintf("catalog:list:%s:%s:%t:%d:%d:%d:%s",
		params.CenterID, params.Period, params.Reduced,
		params.MinAge, params.MaxAge, params.Limit,
		today.Format("2006-01-02"))
}
