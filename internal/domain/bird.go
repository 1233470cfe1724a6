package domain

import (
	"fmt"
	"time"
)

// Band is the composite identifier stamped on a bird's leg ring.
// It is the natural unique key for a physical bird.
type Band struct {
	Federation string `json:"federation"`
	Year       int    `json:"year"`
	Letters    string `json:"letters"`
	Serial     string `json:"serial"`
}

func (b Band) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", b.Federation, b.Year, b.Letters, b.Serial)
}

type Bird struct {
	ID        uint   `json:"id"`
	Band      Band   `json:"band"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Sex       string `json:"sex"`
	BreederID uint   `json:"breeder_id"`

	// Lost birds keep their records; LostAt and LostRaceID record when and
	// during which race the bird went missing.
	LostAt     *time.Time `json:"lost_at,omitempty"`
	LostRaceID *uint      `json:"lost_race_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b Bird) IsLost() bool {
	return b.LostAt != nil
}
