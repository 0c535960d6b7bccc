package stats_test

import (
	"testing"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/stats"
)

// Wednesday afternoon, so "today" and the trailing week are easy to reason about.
var now = time.Date(2024, time.March, 13, 15, 0, 0, 0, time.UTC)

func daysAgo(n int, hour int) time.Time {
	d := now.AddDate(0, 0, -n)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func mood(v float64, at time.Time) models.MoodRecord {
	return models.MoodRecord{Mood: v, CreatedAt: at}
}

func session(t models.SessionType, at time.Time) models.SessionRecord {
	return models.SessionRecord{Type: t, CreatedAt: at}
}

func TestAverageMood_EmptyIsZero(t *testing.T) {
	if got := stats.AverageMood(nil); got != 0 {
		t.Fatalf("expected 0 for empty set, got %v", got)
	}
	if _, ok := stats.AverageMoodOpt(nil); ok {
		t.Fatalf("expected no-data flag for empty set")
	}
}

func TestAverageMood_Mean(t *testing.T) {
	records := []models.MoodRecord{mood(4, daysAgo(2, 9)), mood(6, daysAgo(1, 9)), mood(8, daysAgo(0, 9))}
	if got := stats.AverageMood(records); got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}

func TestMostRecent_TakesNewest(t *testing.T) {
	var records []models.MoodRecord
	for i := 0; i < 10; i++ {
		records = append(records, mood(float64(i+1), daysAgo(10-i, 9)))
	}
	recent := stats.MostRecent(records, stats.RecentMoodCount)
	if len(recent) != 7 {
		t.Fatalf("expected 7 records, got %d", len(recent))
	}
	if recent[0].Mood != 10 {
		t.Errorf("expected newest first, got %v", recent[0].Mood)
	}
	// moods 4..10
	if got := stats.AverageMood(recent); got != 7 {
		t.Errorf("expected average 7, got %v", got)
	}
}

func TestMoodTrend_TwoRecords(t *testing.T) {
	cases := []struct {
		name string
		a, b float64
		want stats.Trend
	}{
		{"up", 3, 4, stats.TrendUp},
		{"down", 7, 6.4, stats.TrendDown},
		{"stable at threshold", 5, 5.5, stats.TrendStable},
		{"stable below threshold", 5, 4.6, stats.TrendStable},
		{"equal", 5, 5, stats.TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := []models.MoodRecord{mood(tc.a, daysAgo(1, 9)), mood(tc.b, daysAgo(0, 9))}
			if got := stats.MoodTrend(records); got != tc.want {
				t.Fatalf("[%v %v]: expected %s, got %s", tc.a, tc.b, tc.want, got)
			}
		})
	}
}

func TestMoodTrend_SortsByDateBeforeSplitting(t *testing.T) {
	// Given newest-first, the trend must still compare older vs newer.
	records := []models.MoodRecord{mood(9, daysAgo(0, 9)), mood(8, daysAgo(1, 9)), mood(2, daysAgo(2, 9)), mood(3, daysAgo(3, 9))}
	if got := stats.MoodTrend(records); got != stats.TrendUp {
		t.Fatalf("expected up, got %s", got)
	}
}

func TestMoodTrend_OddCountPutsExtraInSecondHalf(t *testing.T) {
	// [8] vs [8, 2] -> 8 vs 5
	down := []models.MoodRecord{mood(8, daysAgo(2, 9)), mood(8, daysAgo(1, 9)), mood(2, daysAgo(0, 9))}
	if got := stats.MoodTrend(down); got != stats.TrendDown {
		t.Fatalf("expected down, got %s", got)
	}
	// [4] vs [4, 7] -> 4 vs 5.5
	up := []models.MoodRecord{mood(4, daysAgo(2, 9)), mood(4, daysAgo(1, 9)), mood(7, daysAgo(0, 9))}
	if got := stats.MoodTrend(up); got != stats.TrendUp {
		t.Fatalf("expected up, got %s", got)
	}
}

func TestMoodTrend_FewerThanTwoIsStable(t *testing.T) {
	if got := stats.MoodTrend(nil); got != stats.TrendStable {
		t.Fatalf("expected stable for none, got %s", got)
	}
	if got := stats.MoodTrend([]models.MoodRecord{mood(1, now)}); got != stats.TrendStable {
		t.Fatalf("expected stable for one, got %s", got)
	}
}

func TestStreak_NoSessions(t *testing.T) {
	if got := stats.Streak(nil, now, time.UTC); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestStreak_ThreeConsecutiveDays(t *testing.T) {
	sessions := []models.SessionRecord{
		session(models.SessionChat, daysAgo(0, 8)),
		session(models.SessionMood, daysAgo(1, 22)),
		session(models.SessionJournal, daysAgo(2, 1)),
	}
	if got := stats.Streak(sessions, now, time.UTC); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestStreak_GapStopsCount(t *testing.T) {
	sessions := []models.SessionRecord{
		session(models.SessionChat, daysAgo(0, 8)),
		session(models.SessionChat, daysAgo(1, 8)),
		session(models.SessionChat, daysAgo(3, 8)),
		session(models.SessionChat, daysAgo(4, 8)),
	}
	if got := stats.Streak(sessions, now, time.UTC); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestStreak_StartsYesterdayWhenTodayIsEmpty(t *testing.T) {
	sessions := []models.SessionRecord{
		session(models.SessionMood, daysAgo(1, 8)),
		session(models.SessionMood, daysAgo(2, 8)),
	}
	if got := stats.Streak(sessions, now, time.UTC); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestStreak_BrokenWhenLastActivityOlderThanYesterday(t *testing.T) {
	sessions := []models.SessionRecord{
		session(models.SessionMood, daysAgo(2, 8)),
		session(models.SessionMood, daysAgo(3, 8)),
	}
	if got := stats.Streak(sessions, now, time.UTC); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestStreak_MultipleSessionsSameDayCountOnce(t *testing.T) {
	sessions := []models.SessionRecord{
		session(models.SessionChat, daysAgo(0, 1)),
		session(models.SessionChat, daysAgo(0, 2)),
		session(models.SessionChat, daysAgo(0, 3)),
	}
	if got := stats.Streak(sessions, now, time.UTC); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestStreak_UsesCalendarDaysOfLocation(t *testing.T) {
	// 23:30 UTC on the 12th is already the 13th in UTC+2.
	plus2 := time.FixedZone("UTC+2", 2*60*60)
	sessions := []models.SessionRecord{
		session(models.SessionChat, time.Date(2024, time.March, 12, 23, 30, 0, 0, time.UTC)),
	}
	localNow := time.Date(2024, time.March, 13, 10, 0, 0, 0, plus2)
	if got := stats.Streak(sessions, localNow, plus2); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}

func TestWeeklyMoodSeries(t *testing.T) {
	records := []models.MoodRecord{
		mood(4, daysAgo(0, 8)),
		mood(6, daysAgo(0, 20)),
		mood(9, daysAgo(6, 8)),
		mood(1, daysAgo(7, 8)), // outside the window
	}
	series := stats.WeeklyMoodSeries(records, now, time.UTC)
	if len(series) != 7 {
		t.Fatalf("expected 7 points, got %d", len(series))
	}
	if series[0].Day != "Thursday" || series[0].Mood != 9 {
		t.Errorf("oldest point: got %+v", series[0])
	}
	if series[6].Day != "Wednesday" || series[6].Mood != 5 {
		t.Errorf("today point: got %+v", series[6])
	}
	if series[6].Date != "2024-03-13" {
		t.Errorf("today date: got %s", series[6].Date)
	}
	for _, p := range series[1:6] {
		if p.Mood != 0 {
			t.Errorf("expected empty day to be 0, got %+v", p)
		}
	}
}

func TestMostActiveDay(t *testing.T) {
	events := []time.Time{daysAgo(0, 9), daysAgo(1, 9), daysAgo(1, 10), daysAgo(8, 9), daysAgo(8, 10), daysAgo(8, 11)}
	if got := stats.MostActiveDay(events, now, time.UTC); got != "Tuesday" {
		t.Fatalf("expected Tuesday, got %q", got)
	}
}

func TestMostActiveDay_TieGoesToEarliestWeekday(t *testing.T) {
	// Monday (2 days ago) and Sunday (3 days ago) each have one event.
	events := []time.Time{daysAgo(2, 9), daysAgo(3, 9)}
	if got := stats.MostActiveDay(events, now, time.UTC); got != "Sunday" {
		t.Fatalf("expected Sunday, got %q", got)
	}
}

func TestMostActiveDay_Empty(t *testing.T) {
	if got := stats.MostActiveDay(nil, now, time.UTC); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestSummarize(t *testing.T) {
	in := stats.Input{
		Now:      now,
		Location: time.UTC,
		Moods: []models.MoodRecord{
			mood(3, daysAgo(5, 9)),
			mood(4, daysAgo(4, 9)),
			mood(7, daysAgo(1, 9)),
			mood(8, daysAgo(0, 9)),
		},
		Sessions: []models.SessionRecord{
			session(models.SessionChat, daysAgo(0, 9)),
			session(models.SessionMood, daysAgo(1, 9)),
			session(models.SessionChat, daysAgo(20, 9)),
		},
		JournalTimes:      []time.Time{daysAgo(1, 10), daysAgo(30, 10)},
		ConversationTimes: []time.Time{daysAgo(0, 9)},
	}
	s := stats.Summarize(in)

	if s.AverageMood != 5.5 || !s.HasMoodData {
		t.Errorf("average: got %v (has=%v)", s.AverageMood, s.HasMoodData)
	}
	if s.MoodTrend != stats.TrendUp {
		t.Errorf("trend: got %s", s.MoodTrend)
	}
	if s.Streak != 2 {
		t.Errorf("streak: got %d", s.Streak)
	}
	if s.WeeklyJournals != 1 || s.WeeklyChats != 1 || s.WeeklyMoods != 4 {
		t.Errorf("engagement: got journals=%d chats=%d moods=%d", s.WeeklyJournals, s.WeeklyChats, s.WeeklyMoods)
	}
	// Tuesday: mood + journal; Wednesday: mood + conversation -> tie, Tuesday comes first.
	if s.MostActiveDay != "Tuesday" {
		t.Errorf("most active: got %q", s.MostActiveDay)
	}
	if len(s.MoodSeries) != 7 {
		t.Errorf("series length: got %d", len(s.MoodSeries))
	}
}

func TestSummarize_EmptyIsZeroValued(t *testing.T) {
	s := stats.Summarize(stats.Input{Now: now, Location: time.UTC})
	if s.AverageMood != 0 || s.HasMoodData || s.Streak != 0 || s.MoodTrend != stats.TrendStable || s.MostActiveDay != "" {
		t.Fatalf("unexpected non-zero summary: %+v", s)
	}
	if len(s.MoodSeries) != 7 {
		t.Fatalf("expected a full empty series, got %d points", len(s.MoodSeries))
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	in := stats.Input{
		Now:      now,
		Location: time.UTC,
		Moods:    []models.MoodRecord{mood(5, daysAgo(1, 9)), mood(2, daysAgo(0, 9))},
	}
	a := stats.Summarize(in)
	b := stats.Summarize(in)
	if a.AverageMood != b.AverageMood || a.MoodTrend != b.MoodTrend || a.MostActiveDay != b.MostActiveDay {
		t.Fatalf("summaries differ: %+v vs %+v", a, b)
	}
}
