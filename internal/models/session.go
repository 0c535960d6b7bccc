package models

import "time"

// SessionType identifies which feature produced an activity event.
type SessionType string

const (
	SessionChat    SessionType = "chat"
	SessionJournal SessionType = "journal"
	SessionMood    SessionType = "mood"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionChat, SessionJournal, SessionMood:
		return true
	}
	return false
}

// SessionRecord is one row of the append-only activity log used for
// streak and engagement computation.
type SessionRecord struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Type      SessionType `json:"type"`
	Duration  int         `json:"duration"` // seconds
	CreatedAt time.Time   `json:"created_at"`
}
