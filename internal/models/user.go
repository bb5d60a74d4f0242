package models

import "time"

// User is the identity anchor for a wallet address. Exactly one User row
// exists per address; duplicate creates are no-ops and never overwrite fields.
type User struct {
	ID          string    `json:"id"`
	UserAddress string    `json:"userAddress"`
	Handle      string    `json:"handle"`
	Trees       []string  `json:"trees"`
	Clicks      int64     `json:"clicks"`
	Background  string    `json:"background"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
