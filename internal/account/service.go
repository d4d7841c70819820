package account

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// Querier is the persistence surface for parent profiles.
type Querier interface {
	GetAccount(ctx context.Context, id uuid.UUID) (store.Account, error)
	UpsertAccount(ctx context.Context, a store.Account) error
}

// ProfileInput is the editable portion of the parent profile.
type ProfileInput struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"max=30"`
	Address   string `json:"address" validate:"max=300"`
	Postal    string `json:"postal_code" validate:"max=10"`
	City      string `json:"city" validate:"max=100"`
}

// Service reads and writes the parent profile.
type Service struct {
	Store    Querier
	Validate *validator.Validate
}

func (s *Service) validate() *validator.Validate {
	if s.Validate == nil {
		s.Validate = validator.New()
	}
	return s.Validate
}

// Get loads the profile. An account that has never saved a profile gets an
// empty one rather than a 404, so the first visit can render the form.
func (s *Service) Get(ctx context.Context, accountID uuid.UUID) (store.Account, error) {
	a, err := s.Store.GetAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Account{ID: accountID}, nil
		}
		return store.Account{}, err
	}
	return a, nil
}

// Update validates and saves the profile.
func (s *Service) Update(ctx context.Context, accountID uuid.UUID, input ProfileInput) (store.Account, error) {
	if err := s.validate().Struct(input); err != nil {
		return store.Account{}, common.NewAppError("VALIDATION", "profile failed validation", http.StatusUnprocessableEntity, err)
	}
	a := store.Account{
		ID:        accountID,
		Email:     input.Email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		Address:   input.Address,
		Postal:    input.Postal,
		City:      input.City,
	}
	if err := s.Store.UpsertAccount(ctx, a); err != nil {
		return store.Account{}, err
	}
	return s.Store.GetAccount(ctx, accountID)
}
