package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/llm"
	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

const (
	maxJournalTitle   = 200
	maxJournalContent = 20000
	maxJournalTags    = 20
	// DefaultJournalLimit and MaxJournalLimit bound list pages.
	DefaultJournalLimit = 20
	MaxJournalLimit     = 100
)

// JournalInput is the create payload.
type JournalInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Mood    *float64 `json:"mood"`
	Tags    []string `json:"tags"`
}

// JournalPatch is the update payload; nil fields are unchanged.
type JournalPatch struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Mood    *float64  `json:"mood"`
	Tags    *[]string `json:"tags"`
}

// JournalQuery pages and filters a listing.
type JournalQuery struct {
	Limit int
	Skip  int
	Tag   string
}

// JournalService stores entries with their content sealed by cipher.
type JournalService struct {
	db     *sql.DB
	cipher *utils.Cipher
	llm    llm.Completer
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewJournalService(db *sql.DB, cipher *utils.Cipher, completer llm.Completer, log *zap.SugaredLogger) *JournalService {
	return &JournalService{db: db, cipher: cipher, llm: completer, log: log, now: utcNow}
}

const journalColumns = `id, user_id, title, content, mood, tags, created_at, updated_at`

func (s *JournalService) scan(row interface{ Scan(...any) error }) (*models.JournalEntry, error) {
	var (
		e       models.JournalEntry
		mood    sql.NullFloat64
		tags    string
		content string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &content, &mood, &tags, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.Content, err = s.cipher.Open(content); err != nil {
		return nil, fmt.Errorf("decrypt journal %s: %w", e.ID, err)
	}
	if mood.Valid {
		m := mood.Float64
		e.Mood = &m
	}
	e.Tags = decodeList(tags)
	return &e, nil
}

func validateJournalMood(mood *float64) error {
	if mood == nil {
		return nil
	}
	return utils.InRange("mood", *mood, models.MinMood, models.MaxMood)
}

func validateTags(tags []string) ([]string, error) {
	tags = utils.NormalizeTags(tags)
	if len(tags) > maxJournalTags {
		return nil, utils.Invalid("tags", "at most %d tags are allowed", maxJournalTags)
	}
	for _, t := range tags {
		if len(t) > 50 {
			return nil, utils.Invalid("tags", "tags must be at most 50 characters")
		}
	}
	return tags, nil
}

// Create stores an entry and logs a journal session.
func (s *JournalService) Create(ctx context.Context, userID string, in JournalInput) (*models.JournalEntry, error) {
	title, err := utils.RequireText("title", in.Title, maxJournalTitle)
	if err != nil {
		return nil, err
	}
	content, err := utils.RequireText("content", in.Content, maxJournalContent)
	if err != nil {
		return nil, err
	}
	if err := validateJournalMood(in.Mood); err != nil {
		return nil, err
	}
	tags, err := validateTags(in.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	e := &models.JournalEntry{
		ID: newID(), UserID: userID, Title: title, Content: content,
		Mood: in.Mood, Tags: tags, CreatedAt: now, UpdatedAt: now,
	}

	sealed, err := s.cipher.Seal(content)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := encodeList(tags)
	if err != nil {
		return nil, err
	}

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO journal_entries (id, user_id, title, content, mood, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.UserID, e.Title, sealed, nullFloat(e.Mood), tagsJSON, e.CreatedAt, e.UpdatedAt); err != nil {
			return err
		}
		_, err := recordSession(ctx, tx, userID, models.SessionJournal, 0, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns a page of entries, newest first, and the total matching.
func (s *JournalService) List(ctx context.Context, userID string, q JournalQuery) ([]models.JournalEntry, int, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultJournalLimit
	}
	if q.Limit > MaxJournalLimit {
		q.Limit = MaxJournalLimit
	}
	if q.Skip < 0 {
		q.Skip = 0
	}

	where := `WHERE user_id = $1`
	args := []any{userID}
	if tag := strings.ToLower(strings.TrimSpace(q.Tag)); tag != "" {
		// Tags are stored as a JSON array of strings.
		where += ` AND tags LIKE $2`
		args = append(args, `%"`+tag+`"%`)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM journal_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		journalColumns, where, n+1, n+2)
	rows, err := s.db.QueryContext(ctx, query, append(args, q.Limit, q.Skip)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []models.JournalEntry{}
	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *e)
	}
	return entries, total, rows.Err()
}

// Get loads one of the user's entries.
func (s *JournalService) Get(ctx context.Context, userID, id string) (*models.JournalEntry, error) {
	return s.scan(s.db.QueryRowContext(ctx,
		`SELECT `+journalColumns+` FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID))
}

// Update applies a partial edit.
func (s *JournalService) Update(ctx context.Context, userID, id string, p JournalPatch) (*models.JournalEntry, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		if e.Title, err = utils.RequireText("title", *p.Title, maxJournalTitle); err != nil {
			return nil, err
		}
	}
	if p.Content != nil {
		if e.Content, err = utils.RequireText("content", *p.Content, maxJournalContent); err != nil {
			return nil, err
		}
	}
	if p.Mood != nil {
		if err := validateJournalMood(p.Mood); err != nil {
			return nil, err
		}
		e.Mood = p.Mood
	}
	if p.Tags != nil {
		if e.Tags, err = validateTags(*p.Tags); err != nil {
			return nil, err
		}
	}
	e.UpdatedAt = s.now()

	sealed, err := s.cipher.Seal(e.Content)
	if err != nil {
		return nil, err
	}
	tagsJSON, err := encodeList(e.Tags)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE journal_entries
		SET title = $1, content = $2, mood = $3, tags = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7
	`, e.Title, sealed, nullFloat(e.Mood), tagsJSON, e.UpdatedAt, id, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes one of the user's entries.
func (s *JournalService) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// CreatedSince returns creation times of entries at or after since.
func (s *JournalService) CreatedSince(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	return createdSince(ctx, s.db, "journal_entries", userID, since)
}

const analysisPrompt = `You are a supportive journaling assistant. Read the journal entry and respond with JSON only:
{"sentiment": "positive|neutral|negative", "score": <number from -1 to 1>, "summary": "<one or two sentences>", "themes": ["<theme>", ...]}
Be gentle and non-judgmental. Do not diagnose.`

// Analyze asks the model for the sentiment of an entry. Without a model
// answer the result is neutral.
func (s *JournalService) Analyze(ctx context.Context, userID, id string) (*models.JournalAnalysis, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	neutral := &models.JournalAnalysis{
		Sentiment: "neutral",
		Summary:   "We couldn't analyze this entry right now. Please try again later.",
		Themes:    []string{},
	}
	if s.llm == nil {
		return neutral, nil
	}

	reply, err := s.llm.Complete(ctx, analysisPrompt, []llm.Turn{{Role: llm.RoleUser, Content: e.Title + "\n\n" + e.Content}})
	if err != nil {
		s.log.Warnw("journal analysis failed", "entry_id", id, "error", err)
		return neutral, nil
	}
	var out models.JournalAnalysis
	if err := llm.DecodeJSON(reply, &out); err != nil {
		s.log.Warnw("journal analysis: unreadable model output", "entry_id", id, "error", err)
		return neutral, nil
	}
	switch out.Sentiment {
	case "positive", "neutral", "negative":
	default:
		out.Sentiment = "neutral"
	}
	if out.Score < -1 {
		out.Score = -1
	} else if out.Score > 1 {
		out.Score = 1
	}
	if out.Themes == nil {
		out.Themes = []string{}
	}
	return &out, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// createdSince reads created_at of a user's rows in table. table is a
// trusted constant.
func createdSince(ctx context.Context, db *sql.DB, table, userID string, since time.Time) ([]time.Time, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT created_at FROM `+table+` WHERE user_id = $1 AND created_at >= $2 ORDER BY created_at ASC`,
		userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
