package request

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

type PerchTier struct {
	BirdNo int   `json:"bird_no"`
	Fee    int64 `json:"fee"`
}

type PrizeItem struct {
	RaceType     string `json:"race_type"`
	FromPosition int    `json:"from_position"`
	ToPosition   int    `json:"to_position"`
	PrizeAmount  int64  `json:"prize_amount"`
}

type BettingClass struct {
	Name   string `json:"name"`
	Payout int64  `json:"payout"`
}

type CreateEventRequest struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	StartsAt    string `json:"starts_at" format:"RFC3339"`
	EndsAt      string `json:"ends_at" format:"RFC3339"`

	EntryFee   int64       `json:"entry_fee"`
	MaxBirds   int         `json:"max_birds"`
	PerchTiers []PerchTier `json:"perch_tiers"`

	PrizeScheme   []PrizeItem    `json:"prize_scheme"`
	BettingScheme []BettingClass `json:"betting_scheme"`
}

func (req *CreateEventRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Location, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.Description, validation.Length(0, 500)),
		validation.Field(&req.StartsAt, validation.Required, validation.Date("2006-01-02T15:04:05Z07:00")),
		validation.Field(&req.EntryFee, validation.Min(int64(0))),
		validation.Field(&req.MaxBirds, validation.Min(0)),
	)
}
