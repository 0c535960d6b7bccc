package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/llm"
	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/stats"
)

const maxInsights = 5

const insightsPrompt = `You are a supportive wellness coach. Based on the user's activity summary, write up to 5 short, encouraging insights.
Respond with JSON only: [{"type": "mood|activity|journal|suggestion", "title": "<short title>", "content": "<one or two sentences>"}]
Do not diagnose. Be specific to the numbers you are given.`

// InsightService generates and stores activity insights.
type InsightService struct {
	db    *sql.DB
	stats *StatsService
	llm   llm.Completer
	cache *Cache
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewInsightService(db *sql.DB, statsSvc *StatsService, completer llm.Completer, cache *Cache, log *zap.SugaredLogger) *InsightService {
	return &InsightService{db: db, stats: statsSvc, llm: completer, cache: cache, log: log, now: utcNow}
}

func insightsCacheKey(userID string) string {
	return CacheKey("insights", userID)
}

// InsightContext is the 30-day digest the insights are derived from.
type InsightContext struct {
	Days           int         `json:"days"`
	AverageMood    float64     `json:"average_mood"`
	HasMoodData    bool        `json:"has_mood_data"`
	MoodEntries    int         `json:"mood_entries"`
	MoodTrend      stats.Trend `json:"mood_trend"`
	Streak         int         `json:"streak"`
	JournalEntries int         `json:"journal_entries"`
	Conversations  int         `json:"conversations"`
	MostActiveDay  string      `json:"most_active_day"`
}

// Generate builds insights from the last stats.InsightDays days. When the
// model is unavailable or answers badly, rule-based insights are stored
// instead.
func (s *InsightService) Generate(ctx context.Context, userID string) ([]models.Insight, error) {
	now := s.now()
	in, err := s.stats.Load(ctx, userID, now, stats.InsightDays)
	if err != nil {
		return nil, err
	}
	digest := digestActivity(in, now)

	drafts := s.fromModel(ctx, userID, digest)
	if len(drafts) == 0 {
		drafts = ruleInsights(digest)
	}

	out := make([]models.Insight, 0, len(drafts))
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		for i, d := range drafts {
			ins := models.Insight{
				ID: newID(), UserID: userID, Type: d.Type, Title: d.Title, Content: d.Content,
				CreatedAt: now.Add(time.Duration(i) * time.Millisecond),
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO insights (id, user_id, type, title, content, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, ins.ID, ins.UserID, ins.Type, ins.Title, ins.Content, ins.CreatedAt); err != nil {
				return err
			}
			out = append(out, ins)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(ctx, userID)
	return out, nil
}

type insightDraft struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (s *InsightService) fromModel(ctx context.Context, userID string, digest InsightContext) []insightDraft {
	if s.llm == nil {
		return nil
	}
	payload, err := json.Marshal(digest)
	if err != nil {
		return nil
	}
	reply, err := s.llm.Complete(ctx, insightsPrompt, []llm.Turn{{Role: llm.RoleUser, Content: string(payload)}})
	if err != nil {
		s.log.Warnw("insight generation failed, using rules", "user_id", userID, "error", err)
		return nil
	}

	var drafts []insightDraft
	if err := llm.DecodeJSON(reply, &drafts); err != nil {
		s.log.Warnw("insight generation: unreadable model output", "user_id", userID, "error", err)
		return nil
	}
	clean := drafts[:0]
	for _, d := range drafts {
		d.Title, d.Content = strings.TrimSpace(d.Title), strings.TrimSpace(d.Content)
		if d.Title == "" || d.Content == "" {
			continue
		}
		switch d.Type {
		case "mood", "activity", "journal", "suggestion":
		default:
			d.Type = "suggestion"
		}
		clean = append(clean, d)
		if len(clean) == maxInsights {
			break
		}
	}
	return clean
}

func digestActivity(in stats.Input, now time.Time) InsightContext {
	avg, ok := stats.AverageMoodOpt(in.Moods)
	var events []time.Time
	for _, m := range in.Moods {
		events = append(events, m.CreatedAt)
	}
	events = append(events, in.JournalTimes...)
	events = append(events, in.ConversationTimes...)

	return InsightContext{
		Days:           stats.InsightDays,
		AverageMood:    avg,
		HasMoodData:    ok,
		MoodEntries:    len(in.Moods),
		MoodTrend:      stats.MoodTrend(in.Moods),
		Streak:         stats.Streak(in.Sessions, now, in.Location),
		JournalEntries: len(in.JournalTimes),
		Conversations:  len(in.ConversationTimes),
		MostActiveDay:  stats.MostActiveDay(events, now, in.Location),
	}
}

// ruleInsights is the offline fallback.
func ruleInsights(d InsightContext) []insightDraft {
	var out []insightDraft

	if d.HasMoodData {
		var content string
		switch d.MoodTrend {
		case stats.TrendUp:
			content = fmt.Sprintf("Your mood has been improving, averaging %.1f over the last %d days. Keep doing what works for you.", d.AverageMood, d.Days)
		case stats.TrendDown:
			content = fmt.Sprintf("Your mood has dipped recently (average %.1f). Be gentle with yourself and consider reaching out to someone you trust.", d.AverageMood)
		default:
			content = fmt.Sprintf("Your mood has been steady, averaging %.1f over the last %d days.", d.AverageMood, d.Days)
		}
		out = append(out, insightDraft{Type: "mood", Title: "Mood overview", Content: content})
	} else {
		out = append(out, insightDraft{Type: "suggestion", Title: "Start tracking your mood",
			Content: "Logging your mood once a day helps you notice patterns over time."})
	}

	if d.Streak > 1 {
		out = append(out, insightDraft{Type: "activity", Title: fmt.Sprintf("%d-day streak", d.Streak),
			Content: fmt.Sprintf("You've checked in %d days in a row. Consistency builds resilience.", d.Streak)})
	}

	if d.JournalEntries > 0 {
		out = append(out, insightDraft{Type: "journal", Title: "Journaling habit",
			Content: fmt.Sprintf("You wrote %d journal entries in the last %d days. Writing things down can ease a busy mind.", d.JournalEntries, d.Days)})
	} else {
		out = append(out, insightDraft{Type: "suggestion", Title: "Try journaling",
			Content: "A few sentences about your day can help you process your thoughts."})
	}

	if d.MostActiveDay != "" {
		out = append(out, insightDraft{Type: "activity", Title: "Most active day",
			Content: fmt.Sprintf("%s is the day you've been most active this week.", d.MostActiveDay)})
	}
	return out
}

// List returns the user's insights, newest first.
func (s *InsightService) List(ctx context.Context, userID string) ([]models.Insight, error) {
	var cached []models.Insight
	if ok, err := s.cache.Get(ctx, insightsCacheKey(userID), &cached); err == nil && ok {
		return cached, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, title, content, created_at
		FROM insights
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Insight{}
	for rows.Next() {
		var i models.Insight
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Title, &i.Content, &i.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, insightsCacheKey(userID), out, 0); err != nil {
		s.log.Warnw("insights cache write failed", "user_id", userID, "error", err)
	}
	return out, nil
}

// Delete removes one of the user's insights.
func (s *InsightService) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM insights WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	return nil
}

// Invalidate drops the cached list.
func (s *InsightService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, insightsCacheKey(userID)); err != nil {
		s.log.Warnw("insights cache invalidation failed", "user_id", userID, "error", err)
	}
}
