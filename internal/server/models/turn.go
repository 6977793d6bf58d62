package models

import "time"

// Role tags the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Turn is a single message of a user's conversation with the assistant.
// Turns are append-only; ID grows with insertion order.
type Turn struct {
	ID        int64
	UserID    string
	Role      Role
	Content   string
	CreatedAt time.Time
}
