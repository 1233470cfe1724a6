package domain

import "time"

// Registration is one breeder's entry into one event: a loft name, the
// declared reserved-bird count, and one RegistrationItem per enrolled bird.
type Registration struct {
	ID            uint               `json:"id"`
	EventID       uint               `json:"event_id"`
	BreederID     uint               `json:"breeder_id"`
	LoftName      string             `json:"loft_name"`
	ReservedBirds int                `json:"reserved_birds"`
	Items         []RegistrationItem `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type RegistrationItem struct {
	ID             uint `json:"id"`
	RegistrationID uint `json:"registration_id"`
	BirdID         uint `json:"bird_id"`
	Bird           Bird `json:"bird"`

	// Betting-class enrollment, by class id.
	BettingClassIDs []uint `json:"betting_class_ids"`

	CreatedAt time.Time `json:"created_at"`
}
