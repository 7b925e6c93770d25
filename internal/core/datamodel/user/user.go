package user

import "time"

// User is the persisted shape of one entry of the users collection.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	Login     string    `json:"login"`
	Password  string    `json:"password"`
	Role      string    `json:"role"`
	CardCode  string    `json:"cardCode,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
