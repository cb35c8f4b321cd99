package model

import "time"

// User is an account in the credential store.
// Usernames are unique and compared case-sensitively.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// AuthContext holds the verified identity of a request.
// This is injected into the request context by auth middleware and is the
// only trusted source of the caller's user ID.
type AuthContext struct {
	UserID string
}
