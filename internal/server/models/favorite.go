package models

import "time"

type Favorite struct {
	ID          int64
	UserID      string
	Title       string
	Content     string
	ContentHash string
	DateAdded   time.Time
	Starred     bool
}
