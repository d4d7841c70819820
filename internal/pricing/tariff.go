package pricing

import (
	"context"
	"strings"
)

// Condition grants the local price tier to residents of listed postal codes or
// students of listed schools.
type Condition struct {
	ID          string
	Label       string
	PostalCodes []string
	SchoolIDs   []string
}

// Matches reports whether the child qualifies for the local tier: postal code
// membership OR school membership, never both required.
func (c Condition) Matches(postalCode, schoolID string) bool {
	postalCode = strings.TrimSpace(postalCode)
	if postalCode != "" {
		for _, p := range c.PostalCodes {
			if strings.TrimSpace(p) == postalCode {
				return true
			}
		}
	}
	schoolID = strings.TrimSpace(schoolID)
	if schoolID != "" {
		for _, s := range c.SchoolIDs {
			if strings.TrimSpace(s) == schoolID {
				return true
			}
		}
	}
	return false
}

// ConditionSource loads tariff conditions by identifier.
type ConditionSource interface {
	GetCondition(ctx context.Context, id string) (Condition, error)
}

// Resolver decides local-price eligibility for a child against a session's
// tariff condition reference. Lookup failures fail closed: the child falls back
// to the normal/reduced tiers and no error crosses the price-selection boundary.
type Resolver struct {
	Source  ConditionSource
	OnError func(error)
}

// LocalEligible reports whether the local tier applies. An empty condition
// reference means local pricing never applies to the session.
func (r Resolver) LocalEligible(ctx context.Context, conditionID, postalCode, schoolID string) bool {
	conditionID = strings.TrimSpace(conditionID)
	if conditionID == "" || r.Source == nil {
		return false
	}
	cond, err := r.Source.GetCondition(ctx, conditionID)
	if err != nil {
		if r.OnError != nil {
			r.OnError(err)
		}
		return false
	}
	return cond.Matches(postalCode, schoolID)
}
