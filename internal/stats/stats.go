// Package stats derives mood and engagement statistics from a user's
// time-stamped records. Every function is pure: the same records, now and
// location always produce the same output, and empty input yields zero
// values rather than errors.
package stats

import (
	"sort"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/models"
)

// Trend classifies the direction of mood over a window.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

const (
	// TrendThreshold is the minimum half-over-half change that counts as movement.
	TrendThreshold = 0.5
	// RecentMoodCount is how many of the latest mood records feed the rolling average.
	RecentMoodCount = 7
	// WeekDays is the length of the weekly window.
	WeekDays = 7
	// InsightDays is the lookback used when generating insights.
	InsightDays = 30
)

// DayMood is one point of the weekly mood chart.
type DayMood struct {
	Day  string  `json:"day"`
	Date string  `json:"date"`
	Mood float64 `json:"mood"`
}

// Input is everything Summarize needs. Moods should cover at least the
// weekly window; Sessions should reach back as far as a streak may go.
type Input struct {
	Now               time.Time
	Location          *time.Location
	Moods             []models.MoodRecord
	Sessions          []models.SessionRecord
	JournalTimes      []time.Time
	ConversationTimes []time.Time
}

// Summary is the weekly dashboard view.
type Summary struct {
	AverageMood    float64   `json:"average_mood"`
	HasMoodData    bool      `json:"has_mood_data"`
	MoodTrend      Trend     `json:"mood_trend"`
	// Streak is bounded by the session history loaded by the caller
	// (the last 366 days for the dashboard).
	Streak         int       `json:"streak"`
	WeeklyJournals int       `json:"weekly_journals"`
	WeeklyChats    int       `json:"weekly_chats"`
	WeeklyMoods    int       `json:"weekly_moods"`
	MoodSeries     []DayMood `json:"mood_series"`
	MostActiveDay  string    `json:"most_active_day"`
}

// AverageMood returns the arithmetic mean of the records' moods. The mean of
// no records is 0, which callers must read as "no data".
func AverageMood(records []models.MoodRecord) float64 {
	avg, _ := AverageMoodOpt(records)
	return avg
}

// AverageMoodOpt is AverageMood with an explicit no-data flag.
func AverageMoodOpt(records []models.MoodRecord) (float64, bool) {
	if len(records) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range records {
		sum += r.Mood
	}
	return sum / float64(len(records)), true
}

// MostRecent returns up to n records, newest first.
func MostRecent(records []models.MoodRecord, n int) []models.MoodRecord {
	sorted := sortedMoods(records)
	out := make([]models.MoodRecord, 0, n)
	for i := len(sorted) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, sorted[i])
	}
	return out
}

// Since returns the records created at or after cutoff.
func Since(records []models.MoodRecord, cutoff time.Time) []models.MoodRecord {
	var out []models.MoodRecord
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// MoodTrend splits the date-ascending records into a first half of
// floor(n/2) records and a second half holding the rest, and compares the
// halves' means. Fewer than two records is always stable.
func MoodTrend(records []models.MoodRecord) Trend {
	if len(records) < 2 {
		return TrendStable
	}
	sorted := sortedMoods(records)
	mid := len(sorted) / 2
	first := AverageMood(sorted[:mid])
	second := AverageMood(sorted[mid:])

	switch {
	case second > first+TrendThreshold:
		return TrendUp
	case second < first-TrendThreshold:
		return TrendDown
	default:
		return TrendStable
	}
}

// Streak counts consecutive calendar days with at least one session, walking
// back from today. A streak survives until the end of the day after the last
// session: if neither today nor yesterday has activity the streak is 0.
func Streak(sessions []models.SessionRecord, now time.Time, loc *time.Location) int {
	loc = orLocal(loc)
	active := make(map[civilDay]struct{}, len(sessions))
	for _, s := range sessions {
		active[dayOf(s.CreatedAt, loc)] = struct{}{}
	}

	today := startOfDay(now, loc)
	cursor := today
	if _, ok := active[dayOf(cursor, loc)]; !ok {
		cursor = today.AddDate(0, 0, -1)
		if _, ok := active[dayOf(cursor, loc)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := active[dayOf(cursor, loc)]; !ok {
			return streak
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
}

// WeeklyMoodSeries returns the mean mood of each of the last seven calendar
// days, oldest first. Days without records report 0.
func WeeklyMoodSeries(records []models.MoodRecord, now time.Time, loc *time.Location) []DayMood {
	loc = orLocal(loc)
	byDay := make(map[civilDay][]models.MoodRecord)
	for _, r := range records {
		d := dayOf(r.CreatedAt, loc)
		byDay[d] = append(byDay[d], r)
	}

	today := startOfDay(now, loc)
	series := make([]DayMood, 0, WeekDays)
	for i := WeekDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		series = append(series, DayMood{
			Day:  day.Weekday().String(),
			Date: day.Format("2006-01-02"),
			Mood: AverageMood(byDay[dayOf(day, loc)]),
		})
	}
	return series
}

// MostActiveDay returns the weekday name with the most events over the last
// seven calendar days. Ties go to the earliest weekday (Sunday first). No
// events yields "".
func MostActiveDay(events []time.Time, now time.Time, loc *time.Location) string {
	loc = orLocal(loc)
	today := startOfDay(now, loc)
	oldest := today.AddDate(0, 0, -(WeekDays - 1))

	var counts [7]int
	for _, e := range events {
		d := startOfDay(e, loc)
		if d.Before(oldest) || d.After(today) {
			continue
		}
		counts[d.Weekday()]++
	}

	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return ""
	}
	return time.Weekday(best).String()
}

// WeekCutoff is the start of the trailing weekly window.
func WeekCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -WeekDays)
}

// Summarize composes the weekly dashboard from raw records.
func Summarize(in Input) Summary {
	loc := orLocal(in.Location)
	cutoff := WeekCutoff(in.Now)

	weekly := Since(in.Moods, cutoff)
	avg, ok := AverageMoodOpt(MostRecent(in.Moods, RecentMoodCount))

	var chats int
	for _, s := range in.Sessions {
		if s.Type == models.SessionChat && !s.CreatedAt.Before(cutoff) {
			chats++
		}
	}

	events := make([]time.Time, 0, len(in.Moods)+len(in.JournalTimes)+len(in.ConversationTimes))
	for _, m := range in.Moods {
		events = append(events, m.CreatedAt)
	}
	events = append(events, in.JournalTimes...)
	events = append(events, in.ConversationTimes...)

	return Summary{
		AverageMood:    avg,
		HasMoodData:    ok,
		MoodTrend:      MoodTrend(weekly),
		Streak:         Streak(in.Sessions, in.Now, loc),
		WeeklyJournals: countSince(in.JournalTimes, cutoff),
		WeeklyChats:    chats,
		WeeklyMoods:    len(weekly),
		MoodSeries:     WeeklyMoodSeries(in.Moods, in.Now, loc),
		MostActiveDay:  MostActiveDay(events, in.Now, loc),
	}
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, t := range times {
		if !t.Before(cutoff) {
			n++
		}
	}
	return n
}

func sortedMoods(records []models.MoodRecord) []models.MoodRecord {
	sorted := make([]models.MoodRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}

type civilDay struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time, loc *time.Location) civilDay {
	y, m, d := t.In(loc).Date()
	return civilDay{y, m, d}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
