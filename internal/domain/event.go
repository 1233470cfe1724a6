package domain

import "time"

type Event struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatorID   uint      `json:"creator_id"`
	Closed      bool      `json:"closed"`

	// Schemes are fixed at event creation and read-only afterwards.
	FeeScheme     FeeScheme      `json:"fee_scheme"`
	PrizeScheme   []PrizeItem    `json:"prize_scheme"`
	BettingScheme []BettingClass `json:"betting_scheme"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
