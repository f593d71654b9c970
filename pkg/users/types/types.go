package types

import "time"

// User is the marketplace account as seen by the social features.
type User struct {
	ID          int       `json:"id"`
	DisplayName string    `json:"display_name"`
	Username    string    `json:"username"`
	Image       string    `json:"image"`
	Location    string    `json:"location,omitempty"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
}
