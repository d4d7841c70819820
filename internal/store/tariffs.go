package store

import (
	"context"
	"fmt"

	"github.com/EclosionASBL/cdv2-backup-sub002/internal/pricing"
)

// GetCondition loads a tariff condition by identifier. Implements
// pricing.ConditionSource.
func (st *Store) GetCondition(ctx context.Context, id string) (pricing.Condition, error) {
	var cond pricing.Condition
	err := st.Pool.QueryRow(ctx,
		`SELECT id, label, postal_codes, school_ids FROM tariff_conditions WHERE id = $1`, id,
	).Scan(&cond.ID, &cond.Label, &cond.PostalCodes, &cond.SchoolIDs)
	if err != nil {
		return pricing.Condition{}, fmt.Errorf("get tariff condition: %w", notFound(err))
	}
	return cond, nil
}
