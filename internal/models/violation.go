package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModerationSource names the surface a moderated text came from.
type ModerationSource string

const (
	SourceChat    ModerationSource = "chat"
	SourcePost    ModerationSource = "post"
	SourceComment ModerationSource = "comment"
)

// ModerationEvent is an audit record of flagged content, stored in MongoDB.
type ModerationEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`

	UserID    string `bson:"user_id" json:"user_id"`
	IPAddress string `bson:"ip_address,omitempty" json:"ip_address,omitempty"`

	Source     ModerationSource `bson:"source" json:"source"`
	Categories []string         `bson:"categories" json:"categories"`
	Severe     bool             `bson:"severe" json:"severe"`

	// Action taken: "crisis_response", "rejected", "allowed"
	ActionTaken string `bson:"action_taken" json:"action_taken"`
}
