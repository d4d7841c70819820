package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Tier identifies which of the four configured price fields was selected.
type Tier string

const (
	TierNormal       Tier = "normal"
	TierReduced      Tier = "reduced"
	TierLocal        Tier = "local"
	TierLocalReduced Tier = "local_reduced"
)

// Prices carries a session's configured price fields. Normal is always set;
// the discounted tiers are optional.
type Prices struct {
	Normal       Money  `json:"normal"`
	Reduced      *Money `json:"reduced,omitempty"`
	Local        *Money `json:"local,omitempty"`
	LocalReduced *Money `json:"localReduced,omitempty"`
}

// Select picks one price for a child/session pair. Precedence: local-reduced
// when locally eligible and the reduced declaration is active, then local, then
// reduced, then normal, degrading through the fallback chain whenever a tier is
// unset. It never returns an unset price while a normal price exists.
func Select(p Prices, localEligible, reducedRequested bool) (Tier, Money) {
	switch {
	case localEligible && reducedRequested:
		if p.LocalReduced != nil {
			return TierLocalReduced, *p.LocalReduced
		}
		if p.Reduced != nil {
			return TierReduced, *p.Reduced
		}
	case localEligible:
		if p.Local != nil {
			return TierLocal, *p.Local
		}
	case reducedRequested:
		if p.Reduced != nil {
			return TierReduced, *p.Reduced
		}
	}
	return TierNormal, p.Normal
}
