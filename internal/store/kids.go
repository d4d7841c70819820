package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Kid is a child attached to a parent account.
type Kid struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	FirstName  string
	LastName   string
	BirthDate  time.Time
	PostalCode string
	SchoolID   *uuid.UUID
	PhotoPath  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KidHealth holds the medical sheet attached to a kid.
type KidHealth struct {
	DoctorName        string
	DoctorPhone       string
	TetanusVaccinated bool
	MedicalNotes      string
	Medication        string
}

// KidAllergies holds the allergy sheet attached to a kid.
type KidAllergies struct {
	HasFoodAllergies bool
	HasMedAllergies  bool
	Details          string
	SpecialDiet      string
}

// KidActivities holds activity restrictions attached to a kid.
type KidActivities struct {
	CannotParticipate bool
	Details           string
	SwimLevel         string
}

// KidDeparture holds pickup arrangements attached to a kid.
type KidDeparture struct {
	LeavesAlone    bool
	PickupPersons  string
	DepartureNotes string
}

// KidInclusion holds inclusion support details attached to a kid.
type KidInclusion struct {
	NeedsSupport bool
	Details      string
	PastSupport  string
}

// KidFull is a kid together with all five sub-record sheets.
type KidFull struct {
	Kid        Kid
	Health     KidHealth
	Allergies  KidAllergies
	Activities KidActivities
	Departure  KidDeparture
	Inclusion  KidInclusion
}

// ListKidsByAccount returns all kids belonging to an account, oldest first.
func (st *Store) ListKidsByAccount(ctx context.Context, accountID uuid.UUID) ([]Kid, error) {
	rows, err := st.Pool.Query(ctx, `
		SELECT id, account_id, first_name, last_name, birth_date, postal_code, school_id, photo_path, created_at, updated_at
		FROM kids WHERE account_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list kids: %w", err)
	}
	defer rows.Close()
	var kids []Kid
	for rows.Next() {
		var k Kid
		if err := rows.Scan(&k.ID, &k.AccountID, &k.FirstName, &k.LastName, &k.BirthDate,
			&k.PostalCode, &k.SchoolID, &k.PhotoPath, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan kid: %w", err)
		}
		kids = append(kids, k)
	}
	return kids, rows.Err()
}

// GetKid loads a kid scoped to its owning account.
func (st *Store) GetKid(ctx context.Context, accountID, kidID uuid.UUID) (Kid, error) {
	var k Kid
	err := st.Pool.QueryRow(ctx, `
		SELECT id, account_id, first_name, last_name, birth_date, postal_code, school_id, photo_path, created_at, updated_at
		FROM kids WHERE id = $1 AND account_id = $2`, kidID, accountID,
	).Scan(&k.ID, &k.AccountID, &k.FirstName, &k.LastName, &k.BirthDate,
		&k.PostalCode, &k.SchoolID, &k.PhotoPath, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return Kid{}, notFound(err)
	}
	return k, nil
}

// GetKidFull loads a kid and all five sub-record sheets. Missing sheets come
// back zero-valued, which matches a profile that was never filled in.
func (st *Store) GetKidFull(ctx context.Context, accountID, kidID uuid.UUID) (KidFull, error) {
	kid, err := st.GetKid(ctx, accountID, kidID)
	if err != nil {
		return KidFull{}, err
	}
	full := KidFull{Kid: kid}

	err = st.Pool.QueryRow(ctx, `
		SELECT doctor_name, doctor_phone, tetanus_vaccinated, medical_notes, medication
		FROM kid_health WHERE kid_id = $1`, kidID,
	).Scan(&full.Health.DoctorName, &full.Health.DoctorPhone, &full.Health.TetanusVaccinated,
		&full.Health.MedicalNotes, &full.Health.Medication)
	if err != nil && err != pgx.ErrNoRows {
		return KidFull{}, fmt.Errorf("get kid health: %w", err)
	}

	err = st.Pool.QueryRow(ctx, `
		SELECT has_food_allergies, has_med_allergies, details, special_diet
		FROM kid_allergies WHERE kid_id = $1`, kidID,
	).Scan(&full.Allergies.HasFoodAllergies, &full.Allergies.HasMedAllergies,
		&full.Allergies.Details, &full.Allergies.SpecialDiet)
	if err != nil && err != pgx.ErrNoRows {
		return KidFull{}, fmt.Errorf("get kid allergies: %w", err)
	}

	err = st.Pool.QueryRow(ctx, `
		SELECT cannot_participate, details, swim_level
		FROM kid_activities WHERE kid_id = $1`, kidID,
	).Scan(&full.Activities.CannotParticipate, &full.Activities.Details, &full.Activities.SwimLevel)
	if err != nil && err != pgx.ErrNoRows {
		return KidFull{}, fmt.Errorf("get kid activities: %w", err)
	}

	err = st.Pool.QueryRow(ctx, `
		SELECT leaves_alone, pickup_persons, departure_notes
		FROM kid_departure WHERE kid_id = $1`, kidID,
	).Scan(&full.Departure.LeavesAlone, &full.Departure.PickupPersons, &full.Departure.DepartureNotes)
	if err != nil && err != pgx.ErrNoRows {
		return KidFull{}, fmt.Errorf("get kid departure: %w", err)
	}

	err = st.Pool.QueryRow(ctx, `
		SELECT needs_support, details, past_support
		FROM kid_inclusion WHERE kid_id = $1`, kidID,
	).Scan(&full.Inclusion.NeedsSupport, &full.Inclusion.Details, &full.Inclusion.PastSupport)
	if err != nil && err != pgx.ErrNoRows {
		return KidFull{}, fmt.Errorf("get kid inclusion: %w", err)
	}

	return full, nil
}

// SaveKidFull upserts a kid and all five sub-record sheets in one transaction.
// A partial profile never becomes visible to readers.
func (st *Store) SaveKidFull(ctx context.Context, full KidFull) (uuid.UUID, error) {
	tx, err := st.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin save kid: %w", err)
	}
	defer tx.Rollback(ctx)

	kidID := full.Kid.ID
	if kidID == uuid.Nil {
		kidID = uuid.New()
		_, err = tx.Exec(ctx, `
			INSERT INTO kids (id, account_id, first_name, last_name, birth_date, postal_code, school_id, photo_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			kidID, full.Kid.AccountID, full.Kid.FirstName, full.Kid.LastName,
			full.Kid.BirthDate, full.Kid.PostalCode, full.Kid.SchoolID, full.Kid.PhotoPath)
	} else {
		ct, execErr := tx.Exec(ctx, `
			UPDATE kids SET first_name = $3, last_name = $4, birth_date = $5, postal_code = $6,
				school_id = $7, photo_path = $8, updated_at = now()
			WHERE id = $1 AND account_id = $2`,
			kidID, full.Kid.AccountID, full.Kid.FirstName, full.Kid.LastName,
			full.Kid.BirthDate, full.Kid.PostalCode, full.Kid.SchoolID, full.Kid.PhotoPath)
		err = execErr
		if err == nil && ct.RowsAffected() == 0 {
			return uuid.Nil, ErrNotFound
		}
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kid_health (kid_id, doctor_name, doctor_phone, tetanus_vaccinated, medical_notes, medication)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (kid_id) DO UPDATE SET doctor_name = $2, doctor_phone = $3,
			tetanus_vaccinated = $4, medical_notes = $5, medication = $6`,
		kidID, full.Health.DoctorName, full.Health.DoctorPhone, full.Health.TetanusVaccinated,
		full.Health.MedicalNotes, full.Health.Medication)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid health: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kid_allergies (kid_id, has_food_allergies, has_med_allergies, details, special_diet)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kid_id) DO UPDATE SET has_food_allergies = $2, has_med_allergies = $3,
			details = $4, special_diet = $5`,
		kidID, full.Allergies.HasFoodAllergies, full.Allergies.HasMedAllergies,
		full.Allergies.Details, full.Allergies.SpecialDiet)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid allergies: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kid_activities (kid_id, cannot_participate, details, swim_level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kid_id) DO UPDATE SET cannot_participate = $2, details = $3, swim_level = $4`,
		kidID, full.Activities.CannotParticipate, full.Activities.Details, full.Activities.SwimLevel)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid activities: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kid_departure (kid_id, leaves_alone, pickup_persons, departure_notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kid_id) DO UPDATE SET leaves_alone = $2, pickup_persons = $3, departure_notes = $4`,
		kidID, full.Departure.LeavesAlone, full.Departure.PickupPersons, full.Departure.DepartureNotes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid departure: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO kid_inclusion (kid_id, needs_support, details, past_support)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kid_id) DO UPDATE SET needs_support = $2, details = $3, past_support = $4`,
		kidID, full.Inclusion.NeedsSupport, full.Inclusion.Details, full.Inclusion.PastSupport)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save kid inclusion: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit save kid: %w", err)
	}
	return kidID, nil
}

// UpdateKidPhoto stores the uploaded photo path for a kid.
func (st *Store) UpdateKidPhoto(ctx context.Context, accountID, kidID uuid.UUID, path string) error {
	tag, err := st.Pool.Exec(ctx,
		`UPDATE kids SET photo_path = $3, updated_at = now() WHERE id = $1 AND account_id = $2`,
		kidID, accountID, path)
	if err != nil {
		return fmt.Errorf("update kid photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
