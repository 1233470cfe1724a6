package domain

import "time"

// BasketSide discriminates loft-side baskets (gathering before transport)
// from race-side baskets (gathering at arrival).
type BasketSide string

const (
	SideLoft BasketSide = "loft"
	SideRace BasketSide = "race"
)

func (s BasketSide) Valid() bool {
	return s == SideLoft || s == SideRace
}

type Basket struct {
	ID        uint       `json:"id"`
	RaceID    uint       `json:"race_id"`
	BasketNo  int        `json:"basket_no"`
	Side      BasketSide `json:"side"`
	CreatedAt time.Time  `json:"created_at"`
}
