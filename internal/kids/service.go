package kids

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/media"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// Querier is the persistence surface the kid service needs.
type Querier interface {
	ListKidsByAccount(ctx context.Context, accountID uuid.UUID) ([]store.Kid, error)
	GetKidFull(ctx context.Context, accountID, kidID uuid.UUID) (store.KidFull, error)
	UpdateKidPhoto(ctx context.Context, accountID, kidID uuid.UUID, path string) error
}

// Summary is the listing view of a kid, with the current age precomputed.
type Summary struct {
	ID         uuid.UUID  `json:"id"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	BirthDate  time.Time  `json:"birth_date"`
	Age        float64    `json:"age"`
	PostalCode string     `json:"postal_code"`
	SchoolID   *uuid.UUID `json:"school_id,omitempty"`
	PhotoURL   string     `json:"photo_url,omitempty"`
}

// Service exposes kid profile reads and photo management. Writes go through
// the intake flow.
type Service struct {
	Store  Querier
	Media  media.SignedURLProvider
	Logger zerolog.Logger
	Now    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns the account's kids with ages and photo download URLs. A signer
// outage degrades to listings without photos rather than failing the page.
func (s *Service) List(ctx context.Context, accountID uuid.UUID) ([]Summary, error) {
	rows, err := s.Store.ListKidsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	summaries := make([]Summary, 0, len(rows))
	for _, k := range rows {
		summary := Summary{
			ID:         k.ID,
			FirstName:  k.FirstName,
			LastName:   k.LastName,
			BirthDate:  k.BirthDate,
			Age:        pricing.AgeAt(k.BirthDate, now),
			PostalCode: k.PostalCode,
			SchoolID:   k.SchoolID,
		}
		if k.PhotoPath != nil && s.Media != nil {
			signed, err := s.Media.SignDownload(ctx, *k.PhotoPath)
			if err != nil {
				s.Logger.Warn().Err(err).Str("kid_id", k.ID.String()).Msg("photo url signing failed")
			} else {
				summary.PhotoURL = signed.URL
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Get returns the full profile of one kid.
func (s *Service) Get(ctx context.Context, accountID, kidID uuid.UUID) (store.KidFull, error) {
	full, err := s.Store.GetKidFull(ctx, accountID, kidID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.KidFull{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
		}
		return store.KidFull{}, err
	}
	return full, nil
}

// PhotoUploadURL issues a signed upload URL and records the target path on the
// kid. The client uploads directly to storage.
func (s *Service) PhotoUploadURL(ctx context.Context, accountID, kidID uuid.UUID, contentType string) (media.SignedURL, error) {
	if s.Media == nil {
		return media.SignedURL{}, common.NewAppError("UNAVAILABLE", "photo storage not configured", http.StatusServiceUnavailable, nil)
	}
	if contentType != "image/jpeg" && contentType != "image/png" {
		return media.SignedURL{}, common.NewAppError("VALIDATION", "unsupported photo content type", http.StatusUnprocessableEntity, nil)
	}
	if _, err := s.Store.GetKidFull(ctx, accountID, kidID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return media.SignedURL{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
		}
		return media.SignedURL{}, err
	}

	ext := ".jpg"
	if contentType == "image/png" {
		ext = ".png"
	}
	path := fmt.Sprintf("kids/%s/photo%s", kidID, ext)
	signed, err := s.Media.SignUpload(ctx, path, contentType)
	if err != nil {
		return media.SignedURL{}, common.NewAppError("UNAVAILABLE", "photo storage unavailable", http.StatusBadGateway, err)
	}
	if err := s.Store.UpdateKidPhoto(ctx, accountID, kidID, path); err != nil {
		return media.SignedURL{}, err
	}
	return signed, nil
}
