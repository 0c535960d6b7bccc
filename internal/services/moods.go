package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/stats"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

// DefaultMoodDays is the list window when the client gives none.
const DefaultMoodDays = 30

// MoodStats is the mood page summary.
type MoodStats struct {
	AverageMood float64         `json:"average_mood"`
	HasMoodData bool            `json:"has_mood_data"`
	MoodTrend   stats.Trend     `json:"mood_trend"`
	WeeklyCount int             `json:"weekly_count"`
	MoodSeries  []stats.DayMood `json:"mood_series"`
}

type MoodService struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// NewMoodService computes calendar days in loc (server local when nil).
func NewMoodService(db *sql.DB, loc *time.Location) *MoodService {
	return &MoodService{db: db, loc: loc, now: utcNow}
}

// Create stores a mood and logs a mood session in the same transaction.
func (s *MoodService) Create(ctx context.Context, userID string, mood float64, note string) (*models.MoodRecord, error) {
	if err := utils.InRange("mood", mood, models.MinMood, models.MaxMood); err != nil {
		return nil, err
	}
	note, err := utils.OptionalText("note", note, 1000)
	if err != nil {
		return nil, err
	}

	r := &models.MoodRecord{ID: newID(), UserID: userID, Mood: mood, Note: note, CreatedAt: s.now()}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO mood_records (id, user_id, mood, note, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, r.ID, r.UserID, r.Mood, r.Note, r.CreatedAt); err != nil {
			return err
		}
		_, err := recordSession(ctx, tx, userID, models.SessionMood, 0, r.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// List returns the moods of the last days days, newest first.
func (s *MoodService) List(ctx context.Context, userID string, days int) ([]models.MoodRecord, error) {
	if days <= 0 {
		days = DefaultMoodDays
	}
	records, err := s.ListSince(ctx, userID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// ListSince returns moods created at or after since, oldest first.
func (s *MoodService) ListSince(ctx context.Context, userID string, since time.Time) ([]models.MoodRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, mood, note, created_at
		FROM mood_records
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMoods(rows)
}

// Recent returns the n newest moods regardless of age.
func (s *MoodService) Recent(ctx context.Context, userID string, n int) ([]models.MoodRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, mood, note, created_at
		FROM mood_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMoods(rows)
}

// Stats returns the rolling average of the latest moods plus the weekly
// trend and chart.
func (s *MoodService) Stats(ctx context.Context, userID string) (*MoodStats, error) {
	now := s.now()
	recent, err := s.Recent(ctx, userID, stats.RecentMoodCount)
	if err != nil {
		return nil, err
	}
	weekly, err := s.ListSince(ctx, userID, now.AddDate(0, 0, -stats.WeekDays))
	if err != nil {
		return nil, err
	}

	avg, ok := stats.AverageMoodOpt(recent)
	return &MoodStats{
		AverageMood: avg,
		HasMoodData: ok,
		MoodTrend:   stats.MoodTrend(stats.Since(weekly, stats.WeekCutoff(now))),
		WeeklyCount: len(stats.Since(weekly, stats.WeekCutoff(now))),
		MoodSeries:  stats.WeeklyMoodSeries(weekly, now, s.loc),
	}, nil
}

// Delete removes one of the user's moods.
func (s *MoodService) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mood_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanMoods(rows *sql.Rows) ([]models.MoodRecord, error) {
	var out []models.MoodRecord
	for rows.Next() {
		var r models.MoodRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Mood, &r.Note, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
