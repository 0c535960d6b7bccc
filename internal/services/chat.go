package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/llm"
	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/moderation"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

const (
	maxChatMessage = 4000
	// historyTurns is how many previous messages are sent with a prompt.
	historyTurns = 20
	titleLength  = 50
)

const companionPrompt = `You are Solace, a warm and supportive mental wellness companion.
Listen carefully, reflect feelings back, and offer gentle, practical coping ideas.
You are not a therapist and never diagnose or prescribe. Keep answers concise and kind.
If the user mentions wanting to hurt themselves or others, encourage them to contact a crisis line or emergency services.`

// ChatRequest is one user turn.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ChatReply is the outcome of a turn. Crisis replies are not stored, so
// ConversationID is empty for a crisis in a new conversation.
type ChatReply struct {
	ConversationID string          `json:"conversation_id,omitempty"`
	Reply          string          `json:"reply"`
	Crisis         bool            `json:"crisis"`
	Flagged        bool            `json:"flagged"`
	UserMessage    *models.Message `json:"user_message,omitempty"`
	Assistant      *models.Message `json:"assistant_message,omitempty"`
}

// ChatService runs the moderation gate, the companion model and the
// conversation store.
type ChatService struct {
	db    *sql.DB
	gate  *moderation.Gate
	llm   llm.Completer
	audit moderation.AuditLog
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewChatService wires the chat flow. audit may be nil.
func NewChatService(db *sql.DB, gate *moderation.Gate, completer llm.Completer, audit moderation.AuditLog, log *zap.SugaredLogger) *ChatService {
	return &ChatService{db: db, gate: gate, llm: completer, audit: audit, log: log, now: utcNow}
}

// Send handles a user message. Severe content gets the crisis message and
// never reaches the model or the database. Model failures produce a
// friendly fallback reply instead of an error.
func (s *ChatService) Send(ctx context.Context, userID, ip string, req ChatRequest) (*ChatReply, error) {
	text, err := utils.RequireText("message", req.Message, maxChatMessage)
	if err != nil {
		return nil, err
	}

	var conv *models.Conversation
	if req.ConversationID != "" {
		if conv, err = s.getConversation(ctx, userID, req.ConversationID); err != nil {
			return nil, err
		}
	}

	decision := s.gate.Check(ctx, text)
	if decision.Flagged {
		action := "allowed"
		if decision.Severe {
			action = "crisis_response"
		}
		s.log.Warnw("chat message flagged", "user_id", userID, "categories", decision.Categories, "severe", decision.Severe)
		s.recordAudit(ctx, models.ModerationEvent{
			UserID: userID, IPAddress: ip, Source: models.SourceChat,
			Categories: decision.Categories, Severe: decision.Severe, ActionTaken: action,
		})
	}
	if decision.Severe {
		return &ChatReply{ConversationID: req.ConversationID, Reply: moderation.CrisisMessage, Crisis: true, Flagged: true}, nil
	}

	var turns []llm.Turn
	if conv != nil {
		if turns, err = s.history(ctx, conv.ID); err != nil {
			return nil, err
		}
	}
	turns = append(turns, llm.Turn{Role: llm.RoleUser, Content: text})

	reply, err := s.llm.Complete(ctx, companionPrompt, turns)
	if err != nil {
		s.log.Errorw("chat completion failed", "user_id", userID, "error", err)
		reply = llm.FallbackReply
	}

	now := s.now()
	userMsg := &models.Message{ID: newID(), Role: models.RoleUserTurn, Content: text, CreatedAt: now}
	// The reply sorts after the question even on clocks with coarse resolution.
	botMsg := &models.Message{ID: newID(), Role: models.RoleAssistantTurn, Content: reply, CreatedAt: now.Add(time.Millisecond)}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if conv == nil {
			conv = &models.Conversation{ID: newID(), UserID: userID, Title: conversationTitle(text), CreatedAt: now}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversations (id, user_id, title, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)
			`, conv.ID, userID, conv.Title, now, now); err != nil {
				return err
			}
		} else if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET updated_at = $1 WHERE id = $2`, botMsg.CreatedAt, conv.ID); err != nil {
			return err
		}

		for _, m := range []*models.Message{userMsg, botMsg} {
			m.ConversationID = conv.ID
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO messages (id, conversation_id, role, content, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, m.ID, m.ConversationID, m.Role, m.Content, m.CreatedAt); err != nil {
				return err
			}
		}

		_, err := recordSession(ctx, tx, userID, models.SessionChat, 0, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &ChatReply{
		ConversationID: conv.ID,
		Reply:          reply,
		Flagged:        decision.Flagged,
		UserMessage:    userMsg,
		Assistant:      botMsg,
	}, nil
}

func (s *ChatService) recordAudit(ctx context.Context, event models.ModerationEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, event); err != nil {
		s.log.Warnw("failed to record moderation event", "error", err)
	}
}

func (s *ChatService) history(ctx context.Context, conversationID string) ([]llm.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, historyTurns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []llm.Turn
	for rows.Next() {
		var t llm.Turn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// ListConversations returns the user's conversations, most recently active first.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Conversation{}
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetConversation returns a conversation with all its messages in order.
func (s *ChatService) GetConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	c, err := s.getConversation(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	c.Messages = []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, m)
	}
	return c, rows.Err()
}

// DeleteConversation removes a conversation and its messages.
func (s *ChatService) DeleteConversation(ctx context.Context, userID, id string) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM conversations WHERE id = $1 AND user_id = $2`, id, userID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
		return err
	})
}

// CreatedSince returns creation times of conversations at or after since.
func (s *ChatService) CreatedSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	return createdSince(ctx, s.db, "conversations", userID, since)
}

func (s *ChatService) getConversation(ctx context.Context, userID, id string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// conversationTitle is the first line of the opening message, shortened.
func conversationTitle(text string) string {
	title := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if utf8.RuneCountInString(title) <= titleLength {
		return title
	}
	return strings.TrimSpace(string([]rune(title)[:titleLength])) + "..."
}
