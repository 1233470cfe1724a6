package domain

// All monetary amounts in the scheme catalog are cents.

// FeeScheme fixes the entry fee and the per-bird perch fee tiers for one
// event. PerchTiers is ordered by bird ordinal: PerchTiers[0] is the fee for
// a breeder's first reserved bird, PerchTiers[1] the second, and so on.
type FeeScheme struct {
	ID         uint        `json:"id"`
	EventID    uint        `json:"event_id"`
	EntryFee   int64       `json:"entry_fee"`
	MaxBirds   int         `json:"max_birds"`
	SpeedUnit  string      `json:"speed_unit"` // "mph" by convention
	PerchTiers []PerchTier `json:"perch_tiers"`
}

type PerchTier struct {
	ID          uint  `json:"id"`
	FeeSchemeID uint  `json:"fee_scheme_id"`
	BirdNo      int   `json:"bird_no"` // 1-based ordinal
	Fee         int64 `json:"fee"`
}

// PerchFeeTotal sums the tier fees for the first reservedBirds ordinals.
// Ordinals beyond the tier table cost nothing.
func (s FeeScheme) PerchFeeTotal(reservedBirds int) int64 {
	byOrdinal := make(map[int]int64, len(s.PerchTiers))
	for _, t := range s.PerchTiers {
		byOrdinal[t.BirdNo] = t.Fee
	}

	var total int64
	for i := 1; i <= reservedBirds; i++ {
		total += byOrdinal[i]
	}
	return total
}

// EntryFeeTotal is the flat entry fee times the number of reserved birds.
func (s FeeScheme) EntryFeeTotal(reservedBirds int) int64 {
	return s.EntryFee * int64(reservedBirds)
}

// PrizeItem awards PrizeAmount to finish positions in [FromPosition,
// ToPosition] for races of the given type. Items are evaluated in
// declaration order; the first match wins when ranges overlap.
type PrizeItem struct {
	ID           uint   `json:"id"`
	EventID      uint   `json:"event_id"`
	RaceType     string `json:"race_type"`
	FromPosition int    `json:"from_position"`
	ToPosition   int    `json:"to_position"`
	PrizeAmount  int64  `json:"prize_amount"`
}

func (p PrizeItem) Covers(position int) bool {
	return position >= p.FromPosition && position <= p.ToPosition
}

// BettingClass is a fixed-payout pool, e.g. "WTA 2" or "Belgian Show 3".
// The best-ranked enrolled bird takes the whole Payout.
type BettingClass struct {
	ID      uint   `json:"id"`
	EventID uint   `json:"event_id"`
	Name    string `json:"name"`
	Payout  int64  `json:"payout"`
}
