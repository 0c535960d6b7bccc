package models

import "time"

const (
	PlanActive    = "active"
	PlanCompleted = "completed"
	PlanArchived  = "archived"
)

// TherapyPlan is a generated self-help plan the user can track.
type TherapyPlan struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Goals       []string  `json:"goals"`
	Activities  []string  `json:"activities"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidPlanStatus reports whether s is a known plan status.
func ValidPlanStatus(s string) bool {
	return s == PlanActive || s == PlanCompleted || s == PlanArchived
}
