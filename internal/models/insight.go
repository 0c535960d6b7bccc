package models

import "time"

// Insight is an AI-generated observation about a user's recent activity.
type Insight struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"` // mood, activity, journal, suggestion
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
