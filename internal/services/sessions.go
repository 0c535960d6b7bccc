package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

// maxSessionDuration caps client-reported durations at one day.
const maxSessionDuration = 24 * 60 * 60

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SessionService is the append-only activity log.
type SessionService struct {
	db  *sql.DB
	now func() time.Time
}

func NewSessionService(db *sql.DB) *SessionService {
	return &SessionService{db: db, now: utcNow}
}

// Record appends a client-reported session.
func (s *SessionService) Record(ctx context.Context, userID string, typ models.SessionType, duration int) (*models.SessionRecord, error) {
	if !typ.Valid() {
		return nil, utils.Invalid("type", "type must be one of chat, journal, mood")
	}
	if duration < 0 || duration > maxSessionDuration {
		return nil, utils.Invalid("duration", "duration must be between 0 and %d seconds", maxSessionDuration)
	}
	return recordSession(ctx, s.db, userID, typ, duration, s.now())
}

// ListSince returns the user's sessions created at or after since, oldest first.
func (s *SessionService) ListSince(ctx context.Context, userID string, since time.Time) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, duration, created_at
		FROM session_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SessionRecord
	for rows.Next() {
		var r models.SessionRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Type, &r.Duration, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// recordSession inserts a session row through db or an open transaction.
func recordSession(ctx context.Context, db execer, userID string, typ models.SessionType, duration int, at time.Time) (*models.SessionRecord, error) {
	r := &models.SessionRecord{
		ID:        newID(),
		UserID:    userID,
		Type:      typ,
		Duration:  duration,
		CreatedAt: at,
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO session_records (id, user_id, type, duration, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.UserID, r.Type, r.Duration, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}
