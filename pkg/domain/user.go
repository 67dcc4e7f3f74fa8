package domain

import "time"

// Role is the marketplace role of an account.
type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleProvider
}

// User is the profile cached alongside the session token.
type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	Phone           string    `json:"phone,omitempty"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitzero"`
}

// IsUser reports whether u is a customer account. Nil is never a customer.
func IsUser(u *User) bool {
	return u != nil && u.Role == RoleUser
}

// IsProvider reports whether u is a service provider account.
func IsProvider(u *User) bool {
	return u != nil && u.Role == RoleProvider
}

// Party is the reduced user or provider summary embedded in bookings.
type Party struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
