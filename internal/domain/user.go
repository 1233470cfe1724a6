package domain

import "time"

const (
	RoleBreeder    = "breeder"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

type User struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanManageEvent reports whether the user may mutate races, baskets and
// schemes of the given event. Only the event's creator or a superadmin can.
func (u User) CanManageEvent(e Event) bool {
	if u.Role == RoleSuperadmin {
		return true
	}
	return e.CreatorID == u.ID
}
