// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account linked to an external identity provider.
type User struct {
	ID              string
	ExternalID      string
	Email           string
	Name            string
	Picture         string
	PasswordHash    string
	TermsAccepted   bool
	TermsAcceptedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is what a verified identity token tells us about its subject.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
	Picture    string
}
