package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/stats"
)

// streakWindow bounds how far back sessions are read for streaks, so a
// streak never exceeds 366 days.
const streakWindow = 366 * 24 * time.Hour

// StatsService loads a user's records and runs the aggregator over them.
type StatsService struct {
	moods    *MoodService
	sessions *SessionService
	journals *JournalService
	chats    *ChatService
	cache    *Cache
	ttl      time.Duration
	loc      *time.Location
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewStatsService(moods *MoodService, sessions *SessionService, journals *JournalService, chats *ChatService,
	cache *Cache, ttl time.Duration, loc *time.Location, log *zap.SugaredLogger) *StatsService {
	return &StatsService{
		moods: moods, sessions: sessions, journals: journals, chats: chats,
		cache: cache, ttl: ttl, loc: loc, log: log, now: utcNow,
	}
}

func statsCacheKey(userID string) string {
	return CacheKey("stats", userID)
}

// Weekly returns the dashboard summary, served from cache when possible.
func (s *StatsService) Weekly(ctx context.Context, userID string) (*stats.Summary, error) {
	var cached stats.Summary
	if ok, err := s.cache.Get(ctx, statsCacheKey(userID), &cached); err != nil {
		s.log.Warnw("stats cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return &cached, nil
	}

	in, err := s.Load(ctx, userID, s.now(), 0)
	if err != nil {
		return nil, err
	}
	summary := stats.Summarize(in)

	if err := s.cache.Set(ctx, statsCacheKey(userID), summary, s.ttl); err != nil {
		s.log.Warnw("stats cache write failed", "user_id", userID, "error", err)
	}
	return &summary, nil
}

// Invalidate drops the cached summary after the user's activity changes.
func (s *StatsService) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, statsCacheKey(userID)); err != nil {
		s.log.Warnw("stats cache invalidation failed", "user_id", userID, "error", err)
	}
}

// Load gathers the aggregator input. Moods cover the weekly window plus the
// latest stats.RecentMoodCount records; moodDays widens the mood and
// activity window when positive.
func (s *StatsService) Load(ctx context.Context, userID string, now time.Time, moodDays int) (stats.Input, error) {
	since := stats.WeekCutoff(now)
	if moodDays > stats.WeekDays {
		since = now.AddDate(0, 0, -moodDays)
	}

	windowed, err := s.moods.ListSince(ctx, userID, since)
	if err != nil {
		return stats.Input{}, err
	}
	recent, err := s.moods.Recent(ctx, userID, stats.RecentMoodCount)
	if err != nil {
		return stats.Input{}, err
	}
	sessions, err := s.sessions.ListSince(ctx, userID, now.Add(-streakWindow))
	if err != nil {
		return stats.Input{}, err
	}
	journals, err := s.journals.CreatedSince(ctx, userID, since)
	if err != nil {
		return stats.Input{}, err
	}
	conversations, err := s.chats.CreatedSince(ctx, userID, since)
	if err != nil {
		return stats.Input{}, err
	}

	return stats.Input{
		Now:               now,
		Location:          s.loc,
		Moods:             mergeMoods(windowed, recent),
		Sessions:          sessions,
		JournalTimes:      journals,
		ConversationTimes: conversations,
	}, nil
}

func mergeMoods(a, b []models.MoodRecord) []models.MoodRecord {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]models.MoodRecord, 0, len(a)+len(b))
	for _, list := range [][]models.MoodRecord{a, b} {
		for _, m := range list {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}
