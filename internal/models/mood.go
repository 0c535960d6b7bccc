package models

import "time"

const (
	MinMood = 1.0
	MaxMood = 10.0
)

// MoodRecord is a single self-reported mood score. Immutable once created.
type MoodRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mood      float64   `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
