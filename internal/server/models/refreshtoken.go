package models

import "time"

// RefreshToken is a stored, revocable credential used to mint new access tokens.
type RefreshToken struct {
	ID        int64
	UserID    string
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}
