package models

import (
	"time"
)

// MessageRole is the author of a conversation turn.
type MessageRole string

const (
	RoleUserTurn      MessageRole = "user"
	RoleAssistantTurn MessageRole = "assistant"
)

// Conversation groups the turns of one companion chat.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages,omitempty"`
}

// Message is a single turn. Ordered by CreatedAt inside a conversation.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	CreatedAt      time.Time   `json:"created_at"`
}
