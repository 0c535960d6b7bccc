package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/database"
	"github.com/AnshRaj112/solace-backend/internal/llm"
	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/internal/moderation"
)

// Wednesday afternoon, UTC.
var testNow = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// setupTestDB opens a fresh in-memory database with the full schema. A single
// connection keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := database.InitTables(context.Background(), db); err != nil {
		t.Fatalf("Failed to initialize tables: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sql.DB, externalID, name string) *models.User {
	t.Helper()
	svc := NewUserService(db)
	svc.now = fixedClock(testNow)
	u, err := svc.Sync(context.Background(), externalID, SyncInput{Name: name, Email: externalID + "@example.com"})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func makeAdmin(t *testing.T, db *sql.DB, u *models.User) {
	t.Helper()
	if _, err := db.Exec(`UPDATE users SET role = $1 WHERE id = $2`, models.RoleAdmin, u.ID); err != nil {
		t.Fatalf("Failed to promote user: %v", err)
	}
	u.Role = models.RoleAdmin
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	return n
}

func nopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func keywordGate() *moderation.Gate {
	return moderation.NewGate(nil, moderation.KeywordClassifier{}, nopLogger())
}

type fakeCompleter struct {
	reply string
	err   error
	calls int
	turns []llm.Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, turns []llm.Turn) (string, error) {
	f.calls++
	f.turns = turns
	return f.reply, f.err
}

type memAudit struct {
	events []models.ModerationEvent
}

func (m *memAudit) Record(ctx context.Context, e models.ModerationEvent) error {
	m.events = append(m.events, e)
	return nil
}
