package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

// UserService owns the local user rows mirrored from the auth provider.
type UserService struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db, now: utcNow}
}

// SyncInput carries optional profile fields from the client.
type SyncInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// UpdateInput holds the editable profile fields; nil means unchanged.
type UpdateInput struct {
	Name     *string `json:"name"`
	ImageURL *string `json:"image_url"`
}

const userColumns = `id, external_id, email, name, image_url, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.ImageURL, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Sync creates the local user for externalID or refreshes its profile.
// Empty input fields leave stored values untouched.
func (s *UserService) Sync(ctx context.Context, externalID string, in SyncInput) (*models.User, error) {
	if externalID == "" {
		return nil, utils.Invalid("external_id", "external_id is required")
	}
	name, err := utils.OptionalText("name", in.Name, 100)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var user *models.User
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, external_id, email, name, image_url, role, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (external_id) DO NOTHING
		`, newID(), externalID, in.Email, name, in.ImageURL, models.RoleUser, now, now)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users SET
				email = CASE WHEN $1 <> '' THEN $1 ELSE email END,
				name = CASE WHEN $2 <> '' THEN $2 ELSE name END,
				image_url = CASE WHEN $3 <> '' THEN $3 ELSE image_url END,
				updated_at = $4
			WHERE external_id = $5
		`, in.Email, name, in.ImageURL, now, externalID)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}

		user, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
		return err
	})
	return user, err
}

// GetByExternalID resolves the auth subject to the local user.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = $1`, externalID))
}

// Get loads a user by local id.
func (s *UserService) Get(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// Update edits the profile.
func (s *UserService) Update(ctx context.Context, userID string, in UpdateInput) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if user.Name, err = utils.RequireText("name", *in.Name, 100); err != nil {
			return nil, err
		}
	}
	if in.ImageURL != nil {
		if user.ImageURL, err = utils.OptionalText("image_url", *in.ImageURL, 2048); err != nil {
			return nil, err
		}
	}
	user.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = $1, image_url = $2, updated_at = $3 WHERE id = $4
	`, user.Name, user.ImageURL, user.UpdatedAt, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteAccount removes every row owned by the user in one transaction.
// Counters on other users' posts are decremented for the likes and comments
// that disappear with the account.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	statements := []struct {
		name  string
		query string
	}{
		{"messages", `DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = $1)`},
		{"conversations", `DELETE FROM conversations WHERE user_id = $1`},

		{"like counters", `UPDATE posts SET likes_count = likes_count - 1
			WHERE id IN (SELECT post_id FROM post_likes WHERE user_id = $1)`},
		{"comment counters", `UPDATE posts SET comments_count = comments_count -
			(SELECT COUNT(*) FROM comments c WHERE c.post_id = posts.id AND c.user_id = $1)
			WHERE id IN (SELECT post_id FROM comments WHERE user_id = $1)`},
		{"post likes", `DELETE FROM post_likes WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE user_id = $1)`},
		{"post saves", `DELETE FROM post_saves WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE user_id = $1)`},
		{"comments", `DELETE FROM comments WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE user_id = $1)`},
		{"posts", `DELETE FROM posts WHERE user_id = $1`},

		{"mood records", `DELETE FROM mood_records WHERE user_id = $1`},
		{"session records", `DELETE FROM session_records WHERE user_id = $1`},
		{"journal entries", `DELETE FROM journal_entries WHERE user_id = $1`},
		{"insights", `DELETE FROM insights WHERE user_id = $1`},
		{"therapy plans", `DELETE FROM therapy_plans WHERE user_id = $1`},
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, st := range statements {
			if _, err := tx.ExecContext(ctx, st.query, userID); err != nil {
				return fmt.Errorf("delete %s: %w", st.name, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return requireAffected(res)
	})
}
