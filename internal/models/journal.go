package models

import (
	"time"
)

// JournalEntry represents a private journaling entry for a user.
// Mood is a separate self-report and is independent of MoodRecord.
type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      *float64  `json:"mood,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JournalAnalysis is the model's reading of a single entry.
type JournalAnalysis struct {
	Sentiment string   `json:"sentiment"` // positive, neutral, negative
	Score     float64  `json:"score"`     // -1..1
	Summary   string   `json:"summary"`
	Themes    []string `json:"themes"`
}
