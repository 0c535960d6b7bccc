package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/moderation"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

const (
	maxPostTitle   = 200
	maxPostContent = 10000
	maxComment     = 2000
	// DefaultPostLimit and MaxPostLimit bound list pages.
	DefaultPostLimit = 20
	MaxPostLimit     = 100
	anonymousName    = "Anonymous"
	defaultCategory  = "general"
)

// PostCategories are the forum sections.
var PostCategories = []string{"general", "anxiety", "depression", "stress", "relationships", "self-care", "success-stories"}

// ErrCrisisContent is returned when a post or comment trips a severe
// moderation category.
var ErrCrisisContent = &utils.ValidationError{Field: "content", Message: moderation.CrisisMessage}

// PostInput is the create payload.
type PostInput struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	ImageURL  string `json:"image_url"`
	Anonymous bool   `json:"anonymous"`
}

// PostQuery pages and filters the feed.
type PostQuery struct {
	Category string
	Limit    int
	Skip     int
}

// PostService owns the community forum.
type PostService struct {
	db    *sql.DB
	gate  *moderation.Gate
	audit moderation.AuditLog
	hub   *CommunityHub
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewPostService wires the forum. audit and hub may be nil.
func NewPostService(db *sql.DB, gate *moderation.Gate, audit moderation.AuditLog, hub *CommunityHub, log *zap.SugaredLogger) *PostService {
	return &PostService{db: db, gate: gate, audit: audit, hub: hub, log: log, now: utcNow}
}

// screen runs text through the moderation gate. Severe content is rejected;
// other flags are audited and allowed.
func (s *PostService) screen(ctx context.Context, userID, ip string, source models.ModerationSource, text string) error {
	if s.gate == nil {
		return nil
	}
	d := s.gate.Check(ctx, text)
	if !d.Flagged {
		return nil
	}
	action := "allowed"
	if d.Severe {
		action = "rejected"
	}
	s.log.Warnw("community content flagged", "user_id", userID, "source", source, "categories", d.Categories, "severe", d.Severe)
	if s.audit != nil {
		if err := s.audit.Record(ctx, models.ModerationEvent{
			UserID: userID, IPAddress: ip, Source: source,
			Categories: d.Categories, Severe: d.Severe, ActionTaken: action,
		}); err != nil {
			s.log.Warnw("failed to record moderation event", "error", err)
		}
	}
	if d.Severe {
		return ErrCrisisContent
	}
	return nil
}

func validCategory(c string) bool {
	for _, v := range PostCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Create publishes a post.
func (s *PostService) Create(ctx context.Context, user *models.User, ip string, in PostInput) (*models.Post, error) {
	title, err := utils.RequireText("title", in.Title, maxPostTitle)
	if err != nil {
		return nil, err
	}
	content, err := utils.RequireText("content", in.Content, maxPostContent)
	if err != nil {
		return nil, err
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if category == "" {
		category = defaultCategory
	}
	if !validCategory(category) {
		return nil, utils.Invalid("category", "unknown category %q", category)
	}
	imageURL, err := utils.OptionalText("image_url", in.ImageURL, 2048)
	if err != nil {
		return nil, err
	}
	if err := s.screen(ctx, user.ID, ip, models.SourcePost, title+"\n"+content); err != nil {
		return nil, err
	}

	now := s.now()
	p := &models.Post{
		ID: newID(), UserID: user.ID, Title: title, Content: content, Category: category,
		ImageURL: imageURL, Anonymous: in.Anonymous, CreatedAt: now, UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO posts (id, user_id, title, content, category, image_url, anonymous, is_pinned, likes_count, comments_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.UserID, p.Title, p.Content, p.Category, p.ImageURL, p.Anonymous, false, 0, 0, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.AuthorName = authorName(user.Name, p.Anonymous)
	s.hub.Publish(ctx, CommunityEvent{Type: EventPostCreated, PostID: p.ID})
	return p, nil
}

const postSelect = `
	SELECT p.id, p.user_id, u.name, p.title, p.content, p.category, p.image_url, p.anonymous,
		p.is_pinned, p.likes_count, p.comments_count, p.created_at, p.updated_at,
		EXISTS (SELECT 1 FROM post_likes l WHERE l.post_id = p.id AND l.user_id = $1),
		EXISTS (SELECT 1 FROM post_saves v WHERE v.post_id = p.id AND v.user_id = $1)
	FROM posts p
	JOIN users u ON u.id = p.user_id`

func scanPost(row interface{ Scan(...any) error }, viewerID string) (*models.Post, error) {
	var p models.Post
	var name string
	err := row.Scan(&p.ID, &p.UserID, &name, &p.Title, &p.Content, &p.Category, &p.ImageURL, &p.Anonymous,
		&p.IsPinned, &p.LikesCount, &p.CommentsCount, &p.CreatedAt, &p.UpdatedAt, &p.LikedByMe, &p.SavedByMe)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.AuthorName = authorName(name, p.Anonymous)
	if p.Anonymous && p.UserID != viewerID {
		p.UserID = ""
	}
	return &p, nil
}

func collectPosts(rows *sql.Rows, viewerID string) ([]models.Post, error) {
	defer rows.Close()
	out := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows, viewerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// List returns the feed, pinned posts first and then newest first, with the
// viewer's liked and saved flags.
func (s *PostService) List(ctx context.Context, viewerID string, q PostQuery) ([]models.Post, error) {
	limit, skip := clampPage(q.Limit, q.Skip, DefaultPostLimit, MaxPostLimit)

	var rows *sql.Rows
	var err error
	if category := strings.ToLower(strings.TrimSpace(q.Category)); category != "" {
		rows, err = s.db.QueryContext(ctx, postSelect+`
			WHERE p.category = $2
			ORDER BY p.is_pinned DESC, p.created_at DESC
			LIMIT $3 OFFSET $4`, viewerID, category, limit, skip)
	} else {
		rows, err = s.db.QueryContext(ctx, postSelect+`
			ORDER BY p.is_pinned DESC, p.created_at DESC
			LIMIT $2 OFFSET $3`, viewerID, limit, skip)
	}
	if err != nil {
		return nil, err
	}
	return collectPosts(rows, viewerID)
}

// Saved returns the posts the viewer saved, most recently saved first.
func (s *PostService) Saved(ctx context.Context, viewerID string) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, postSelect+`
		JOIN post_saves ms ON ms.post_id = p.id AND ms.user_id = $1
		ORDER BY ms.created_at DESC`, viewerID)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows, viewerID)
}

// Get loads one post with the viewer's flags.
func (s *PostService) Get(ctx context.Context, viewerID, id string) (*models.Post, error) {
	return scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $2`, viewerID, id), viewerID)
}

// Delete removes the caller's own post along with its likes, saves and
// comments. Admins may delete any post.
func (s *PostService) Delete(ctx context.Context, user *models.User, id string) error {
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT user_id FROM posts WHERE id = $1`, id).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != user.ID && !user.IsAdmin() {
			return ErrNotFound
		}
		for _, q := range []string{
			`DELETE FROM post_likes WHERE post_id = $1`,
			`DELETE FROM post_saves WHERE post_id = $1`,
			`DELETE FROM comments WHERE post_id = $1`,
			`DELETE FROM posts WHERE id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.hub.Publish(ctx, CommunityEvent{Type: EventPostDeleted, PostID: id})
	return nil
}

// ToggleLike likes the post, or unlikes it if already liked. The UNIQUE
// (user_id, post_id) constraint decides which: a conflicting insert affects
// no rows, and a delete that finds nothing leaves the counter alone, so
// concurrent toggles can never count a user twice.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID string) (*models.ToggleResult, error) {
	var result models.ToggleResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		active, changed, err := toggleRow(ctx, tx, "post_likes", userID, postID, s.now())
		if err != nil {
			return err
		}
		if changed {
			delta := -1
			if active {
				delta = 1
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE posts SET likes_count = likes_count + $1 WHERE id = $2`, delta, postID); err != nil {
				return err
			}
		}
		result.Active = active
		return tx.QueryRowContext(ctx, `SELECT likes_count FROM posts WHERE id = $1`, postID).Scan(&result.LikesCount)
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, CommunityEvent{Type: EventPostLiked, PostID: postID, Active: &result.Active, Count: &result.LikesCount})
	return &result, nil
}

// ToggleSave bookmarks the post, or removes the bookmark. Bookmarks are
// private: the result carries no counter and nothing is published.
func (s *PostService) ToggleSave(ctx context.Context, userID, postID string) (*models.ToggleResult, error) {
	var result models.ToggleResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		active, _, err := toggleRow(ctx, tx, "post_saves", userID, postID, s.now())
		result.Active = active
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// TogglePin flips the pinned flag. Admins only.
func (s *PostService) TogglePin(ctx context.Context, user *models.User, postID string) (*models.ToggleResult, error) {
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	var result models.ToggleResult
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var pinned bool
		err := tx.QueryRowContext(ctx, `SELECT is_pinned, likes_count FROM posts WHERE id = $1`, postID).Scan(&pinned, &result.LikesCount)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		result.Active = !pinned
		_, err = tx.ExecContext(ctx, `UPDATE posts SET is_pinned = $1, updated_at = $2 WHERE id = $3`, result.Active, s.now(), postID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, CommunityEvent{Type: EventPostPinned, PostID: postID, Active: &result.Active})
	return &result, nil
}

// toggleRow inserts (user, post) into table or deletes the existing row. It
// reports whether the row exists afterwards and whether this call changed
// anything; a delete racing another one removes nothing. table is a trusted
// constant.
func toggleRow(ctx context.Context, tx *sql.Tx, table, userID, postID string, now time.Time) (active, changed bool, err error) {
	if err := postExists(ctx, tx, postID); err != nil {
		return false, false, err
	}

	res, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, user_id, post_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, post_id) DO NOTHING
	`, table), newID(), userID, postID, now)
	if err != nil {
		return false, false, err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, false, err
	}
	if inserted > 0 {
		return true, true, nil
	}

	res, err = tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND post_id = $2`, table), userID, postID)
	if err != nil {
		return false, false, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, false, err
	}
	return false, deleted > 0, nil
}

func postExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, postID string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = $1`, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// AddComment stores a comment and bumps the post's counter.
func (s *PostService) AddComment(ctx context.Context, user *models.User, ip, postID, content string) (*models.Comment, error) {
	content, err := utils.RequireText("content", content, maxComment)
	if err != nil {
		return nil, err
	}
	if err := s.screen(ctx, user.ID, ip, models.SourceComment, content); err != nil {
		return nil, err
	}

	c := &models.Comment{ID: newID(), PostID: postID, UserID: user.ID, AuthorName: authorName(user.Name, false), Content: content, CreatedAt: s.now()}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := postExists(ctx, tx, postID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO comments (id, post_id, user_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, c.PostID, c.UserID, c.Content, c.CreatedAt); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, postID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.hub.Publish(ctx, CommunityEvent{Type: EventCommentCreated, PostID: postID, CommentID: c.ID})
	return c, nil
}

// Comments lists a post's comments, oldest first.
func (s *PostService) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := postExists(ctx, s.db, postID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.post_id, c.user_id, u.name, c.content, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.post_id = $1
		ORDER BY c.created_at ASC
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		var name string
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &name, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.AuthorName = authorName(name, false)
		out = append(out, c)
	}
	return out, rows.Err()
}

func authorName(name string, anonymous bool) string {
	if anonymous || strings.TrimSpace(name) == "" {
		return anonymousName
	}
	return name
}

func clampPage(limit, skip, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}
