package domain

import "time"

type Race struct {
	ID       uint    `json:"id"`
	EventID  uint    `json:"event_id"`
	Name     string  `json:"name"`
	RaceType string  `json:"race_type"`
	Distance float64 `json:"distance"` // miles

	ReleaseWeather string `json:"release_weather"`
	ArrivalWeather string `json:"arrival_weather"`

	ReleasedAt *time.Time `json:"released_at,omitempty"`
	Closed     bool       `json:"closed"`
	Live       bool       `json:"live"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AcceptsEntries reports whether new race entries may still be created.
// A closed race is fixed; a live race has already been released.
func (r Race) AcceptsEntries() bool {
	return !r.Closed && !r.Live
}
