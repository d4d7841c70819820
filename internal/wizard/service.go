package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/common"
	"github.com/EclosionASBL/cdv2-backup-sub002/internal/store"
)

// KidStore persists finished kid profiles.
type KidStore interface {
	GetKidFull(ctx context.Context, accountID, kidID uuid.UUID) (store.KidFull, error)
	SaveKidFull(ctx context.Context, full store.KidFull) (uuid.UUID, error)
}

// EventPublisher fans out domain events after a successful submit.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, accountID uuid.UUID, payload any)
}

// Draft is the in-progress intake flow for one account, stored in Redis until
// the final step submits it as a whole.
type Draft struct {
	KidID      *uuid.UUID         `json:"kid_id,omitempty"`
	State      State              `json:"state"`
	Personal   *PersonalPayload   `json:"personal,omitempty"`
	Health     *HealthPayload     `json:"health,omitempty"`
	Allergies  *AllergiesPayload  `json:"allergies,omitempty"`
	Activities *ActivitiesPayload `json:"activities,omitempty"`
	Departure  *DeparturePayload  `json:"departure,omitempty"`
	Inclusion  *InclusionPayload  `json:"inclusion,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// NextStep is the first incomplete step, for rendering.
func (d Draft) NextStep() Step { return d.State.Next() }

// Service drives the intake flow.
type Service struct {
	Client   *redis.Client
	TTL      time.Duration
	Kids     KidStore
	Events   EventPublisher
	Validate *validator.Validate
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) validate() *validator.Validate {
	if s.Validate == nil {
		s.Validate = validator.New()
	}
	return s.Validate
}

func draftKey(accountID uuid.UUID) string {
	return "wizard:" + accountID.String()
}

// Start opens a fresh draft. Passing a kid id switches to edit mode: every
// step is preloaded from the stored profile and marked complete, so the parent
// can jump straight to the screen they want to change.
func (s *Service) Start(ctx context.Context, accountID uuid.UUID, kidID *uuid.UUID) (Draft, error) {
	draft := Draft{State: NewState(), CreatedAt: s.now()}
	if kidID != nil && *kidID != uuid.Nil {
		full, err := s.Kids.GetKidFull(ctx, accountID, *kidID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Draft{}, common.NewAppError("NOT_FOUND", "kid not found", http.StatusNotFound, err)
			}
			return Draft{}, err
		}
		draft.KidID = kidID
		draft.Personal = &PersonalPayload{
			FirstName:  full.Kid.FirstName,
			LastName:   full.Kid.LastName,
			BirthDate:  full.Kid.BirthDate.Format("2006-01-02"),
			PostalCode: full.Kid.PostalCode,
		}
		if full.Kid.SchoolID != nil {
			draft.Personal.SchoolID = full.Kid.SchoolID.String()
		}
		draft.Health = &HealthPayload{
			DoctorName:        full.Health.DoctorName,
			DoctorPhone:       full.Health.DoctorPhone,
			TetanusVaccinated: full.Health.TetanusVaccinated,
			MedicalNotes:      full.Health.MedicalNotes,
			Medication:        full.Health.Medication,
		}
		draft.Allergies = &AllergiesPayload{
			HasFoodAllergies: full.Allergies.HasFoodAllergies,
			HasMedAllergies:  full.Allergies.HasMedAllergies,
			Details:          full.Allergies.Details,
			SpecialDiet:      full.Allergies.SpecialDiet,
		}
		draft.Activities = &ActivitiesPayload{
			CannotParticipate: full.Activities.CannotParticipate,
			Details:           full.Activities.Details,
			SwimLevel:         full.Activities.SwimLevel,
		}
		draft.Departure = &DeparturePayload{
			LeavesAlone:    full.Departure.LeavesAlone,
			PickupPersons:  full.Departure.PickupPersons,
			DepartureNotes: full.Departure.DepartureNotes,
		}
		draft.Inclusion = &InclusionPayload{
			NeedsSupport: full.Inclusion.NeedsSupport,
			Details:      full.Inclusion.Details,
			PastSupport:  full.Inclusion.PastSupport,
		}
		for _, step := range Sequence {
			draft.State.Completed[step] = true
		}
	}
	if err := s.save(ctx, accountID, draft); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

// GetDraft loads the account's active draft.
func (s *Service) GetDraft(ctx context.Context, accountID uuid.UUID) (Draft, error) {
	data, err := s.Client.Get(ctx, draftKey(accountID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return Draft{}, common.NewAppError("NO_DRAFT", "no intake in progress", http.StatusNotFound, err)
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var draft Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	if draft.State.Completed == nil {
		draft.State.Completed = map[Step]bool{}
	}
	return draft, nil
}

func (s *Service) save(ctx context.Context, accountID uuid.UUID, draft Draft) error {
	draft.UpdatedAt = s.now()
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.Client.Set(ctx, draftKey(accountID), data, s.TTL).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Abandon drops the active draft.
func (s *Service) Abandon(ctx context.Context, accountID uuid.UUID) error {
	if err := s.Client.Del(ctx, draftKey(accountID)).Err(); err != nil {
		return fmt.Errorf("abandon draft: %w", err)
	}
	return nil
}

// SubmitStep validates one step's payload and marks the step complete. Steps
// must be reached in sequence; a completed step may be resubmitted to change
// its answers.
func (s *Service) SubmitStep(ctx context.Context, accountID uuid.UUID, step Step, raw json.RawMessage) (Draft, error) {
	draft, err := s.GetDraft(ctx, accountID)
	if err != nil {
		return Draft{}, err
	}
	if Index(step) < 0 {
		return Draft{}, common.NewAppError("VALIDATION", "unknown step", http.StatusBadRequest, nil)
	}
	if !draft.State.CanEnter(step) {
		return Draft{}, common.NewAppError("STEP_ORDER", "previous steps are not complete", http.StatusConflict, nil)
	}

	if err := s.applyPayload(&draft, step, raw); err != nil {
		return Draft{}, err
	}
	if err := draft.State.Complete(step); err != nil {
		return Draft{}, common.NewAppError("STEP_ORDER", err.Error(), http.StatusConflict, err)
	}
	if err := s.save(ctx, accountID, draft); err != nil {
		return Draft{}, err
	}
	return draft, nil
}

func (s *Service) applyPayload(draft *Draft, step Step, raw json.RawMessage) error {
	decode := func(dst any) error {
		if err := json.Unmarshal(raw, dst); err != nil {
			return common.NewAppError("VALIDATION", "invalid step payload", http.StatusBadRequest, err)
		}
		if err := s.validate().Struct(dst); err != nil {
			return common.NewAppError("VALIDATION", "step payload failed validation",
				http.StatusUnprocessableEntity, err).WithDetails(validationDetails(err))
		}
		return nil
	}
	switch step {
	case StepPersonal:
		var p PersonalPayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Personal = &p
	case StepHealth:
		var p HealthPayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Health = &p
	case StepAllergies:
		var p AllergiesPayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Allergies = &p
	case StepActivities:
		var p ActivitiesPayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Activities = &p
	case StepDeparture:
		var p DeparturePayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Departure = &p
	case StepInclusion:
		var p InclusionPayload
		if err := decode(&p); err != nil {
			return err
		}
		draft.Inclusion = &p
	}
	return nil
}

// Submit persists the finished draft as one kid profile and drops the draft.
// Partial drafts are rejected; nothing reaches Postgres until every step is
// complete.
func (s *Service) Submit(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error) {
	draft, err := s.GetDraft(ctx, accountID)
	if err != nil {
		return uuid.Nil, err
	}
	if !draft.State.Done() {
		return uuid.Nil, common.NewAppError("INCOMPLETE", "intake steps are not all complete", http.StatusConflict, nil)
	}

	full, err := draft.toKidFull(accountID)
	if err != nil {
		return uuid.Nil, err
	}
	kidID, err := s.Kids.SaveKidFull(ctx, full)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid profile: %w", err)
	}
	if err := s.Abandon(ctx, accountID); err != nil {
		s.Logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("draft cleanup failed after submit")
	}

	topic := "kid.created"
	if draft.KidID != nil {
		topic = "kid.updated"
	}
	if s.Events != nil {
		s.Events.Publish(ctx, topic, accountID, map[string]any{"kid_id": kidID})
	}
	return kidID, nil
}

func (d Draft) toKidFull(accountID uuid.UUID) (store.KidFull, error) {
	if d.Personal == nil || d.Health == nil || d.Allergies == nil ||
		d.Activities == nil || d.Departure == nil || d.Inclusion == nil {
		return store.KidFull{}, common.NewAppError("INCOMPLETE", "intake steps are not all complete", http.StatusConflict, nil)
	}
	birth, err := time.Parse("2006-01-02", d.Personal.BirthDate)
	if err != nil {
		return store.KidFull{}, common.NewAppError("VALIDATION", "invalid birth date", http.StatusUnprocessableEntity, err)
	}
	full := store.KidFull{
		Kid: store.Kid{
			AccountID:  accountID,
			FirstName:  d.Personal.FirstName,
			LastName:   d.Personal.LastName,
			BirthDate:  birth,
			PostalCode: d.Personal.PostalCode,
		},
		Health: store.KidHealth{
			DoctorName:        d.Health.DoctorName,
			DoctorPhone:       d.Health.DoctorPhone,
			TetanusVaccinated: d.Health.TetanusVaccinated,
			MedicalNotes:      d.Health.MedicalNotes,
			Medication:        d.Health.Medication,
		},
		Allergies: store.KidAllergies{
			HasFoodAllergies: d.Allergies.HasFoodAllergies,
			HasMedAllergies:  d.Allergies.HasMedAllergies,
			Details:          d.Allergies.Details,
			SpecialDiet:      d.Allergies.SpecialDiet,
		},
		Activities: store.KidActivities{
			CannotParticipate: d.Activities.CannotParticipate,
			Details:           d.Activities.Details,
			SwimLevel:         d.Activities.SwimLevel,
		},
		Departure: store.KidDeparture{
			LeavesAlone:    d.Departure.LeavesAlone,
			PickupPersons:  d.Departure.PickupPersons,
			DepartureNotes: d.Departure.DepartureNotes,
		},
		Inclusion: store.KidInclusion{
			NeedsSupport: d.Inclusion.NeedsSupport,
			Details:      d.Inclusion.Details,
			PastSupport:  d.Inclusion.PastSupport,
		},
	}
	if d.KidID != nil {
		full.Kid.ID = *d.KidID
	}
	if d.Personal.SchoolID != "" {
		schoolID, err := uuid.Parse(d.Personal.SchoolID)
		if err != nil {
			return store.KidFull{}, common.NewAppError("VALIDATION", "invalid school id", http.StatusUnprocessableEntity, err)
		}
		full.Kid.SchoolID = &schoolID
	}
	return full, nil
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
