package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
)

// Session is one scheduled occurrence of a stage at a center, with its own
// dates, capacity, and price fields.
type Session struct {
	ID                uuid.UUID
	StageID           uuid.UUID
	Title             string
	CenterID          uuid.UUID
	CenterName        string
	StartDate         time.Time
	EndDate           time.Time
	Period            string
	Capacity          int32
	Registered        int32
	AgeMin            int32
	AgeMax            int32
	PriceNormal       int64
	PriceReduced      *int64
	PriceLocal        *int64
	PriceLocalReduced *int64
	TariffConditionID *uuid.UUID
	VisibleFrom       *time.Time
}

// Prices maps the session's price fields onto the pricing selector input.
func (s Session) Prices() pricing.Prices {
	return pricing.Prices{
		Normal:       s.PriceNormal,
		Reduced:      s.PriceReduced,
		Local:        s.PriceLocal,
		LocalReduced: s.PriceLocalReduced,
	}
}

// Remaining returns the number of seats still available.
func (s Session) Remaining() int32 {
	r := s.Capacity - s.Registered
	if r < 0 {
		return 0
	}
	return r
}

// Full reports whether registrations have reached capacity.
func (s Session) Full() bool {
	return s.Registered >= s.Capacity
}

const sessionColumns = `
	s.id, s.stage_id, st.title, s.center_id, c.name,
	s.start_date, s.end_date, s.period,
	s.capacity, s.registered,
	st.age_min, st.age_max,
	s.price_normal, s.price_reduced, s.price_local, s.price_local_reduced,
	s.tariff_condition_id, s.visible_from`

const sessionJoins = `
	FROM activity_sessions s
	JOIN stages st ON st.id = s.stage_id
	JOIN centers c ON c.id = s.center_id`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(
		&s.ID, &s.StageID, &s.Title, &s.CenterID, &s.CenterName,
		&s.StartDate, &s.EndDate, &s.Period,
		&s.Capacity, &s.Registered,
		&s.AgeMin, &s.AgeMax,
		&s.PriceNormal, &s.PriceReduced, &s.PriceLocal, &s.PriceLocalReduced,
		&s.TariffConditionID, &s.VisibleFrom,
	)
	return s, err
}

// ListOpenSessions returns sessions whose end date has not passed, ordered by
// start date. Visibility and eligibility filtering happen in the listing engine.
func (st *Store) ListOpenSessions(ctx context.Context, today time.Time) ([]Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + `
	WHERE s.end_date >= $1
	ORDER BY s.start_date, st.title`
	rows, err := st.Pool.Query(ctx, query, today)
	if err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	defer rows.Close()
	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession loads a single session by id.
func (st *Store) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + ` WHERE s.id = $1`
	s, err := scanSession(st.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return Session{}, notFound(err)
	}
	return s, nil
}

// GetSessionTx loads a session inside a transaction with a row lock, so
// capacity checks and the registered-count bump cannot race.
func (st *Store) GetSessionTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (Session, error) {
	query := `SELECT` + sessionColumns + sessionJoins + ` WHERE s.id = $1 FOR UPDATE OF s`
	s, err := scanSession(tx.QueryRow(ctx, query, id))
	if err != nil {
		return Session{}, notFound(err)
	}
	return s, nil
}

// BumpRegisteredTx increments a session's registered count inside a transaction.
func (st *Store) BumpRegisteredTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta int32) error {
	tag, err := tx.Exec(ctx, `UPDATE activity_sessions SET registered = registered + $2 WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("bump registered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Center is a location hosting activity sessions.
type Center struct {
	ID   uuid.UUID
	Name string
	City string
}

// ListCenters returns all centers ordered by name.
func (st *Store) ListCenters(ctx context.Context) ([]Center, error) {
	rows, err := st.Pool.Query(ctx, `SELECT id, name, city FROM centers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	defer rows.Close()
	var centers []Center
	for rows.Next() {
		var c Center
		if err := rows.Scan(&c.ID, &c.Name, &c.City); err != nil {
			return nil, fmt.Errorf("scan center: %w", err)
		}
		centers = append(centers, c)
	}
	return centers, rows.Err()
}

// School is a registered school usable for tariff matching.
type School struct {
	ID   uuid.UUID
	Name string
	City string
}

// ListSchools returns all schools ordered by name.
func (st *Store) ListSchools(ctx context.Context) ([]School, error) {
	rows, err := st.Pool.Query(ctx, `SELECT id, name, city FROM schools ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()
	var schools []School
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Name, &s.City); err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		schools = append(schools, s)
	}
	return schools, rows.Err()
}
