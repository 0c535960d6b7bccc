package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

// userTables lists every table with rows owned through user_id.
var userTables = []string{
	"mood_records", "session_records", "journal_entries", "conversations",
	"posts", "post_likes", "post_saves", "comments", "insights", "therapy_plans",
}

// seedAccount gives the user rows in every table, including a like and a
// comment on another user's post.
func seedAccount(t *testing.T, db *sql.DB, userID, otherPostID string) {
	t.Helper()
	ctx := context.Background()

	moods := NewMoodService(db, nil)
	moods.now = fixedClock(testNow)
	if _, err := moods.Create(ctx, userID, 7, "fine"); err != nil {
		t.Fatal(err)
	}

	journals := NewJournalService(db, nil, nil, nopLogger())
	journals.now = fixedClock(testNow)
	if _, err := journals.Create(ctx, userID, JournalInput{Title: "Day", Content: "Went well"}); err != nil {
		t.Fatal(err)
	}

	chat := NewChatService(db, keywordGate(), &fakeCompleter{reply: "hi there"}, nil, nopLogger())
	chat.now = fixedClock(testNow)
	if _, err := chat.Send(ctx, userID, "", ChatRequest{Message: "hello"}); err != nil {
		t.Fatal(err)
	}

	posts := NewPostService(db, keywordGate(), nil, nil, nopLogger())
	posts.now = fixedClock(testNow)
	user, err := NewUserService(db).Get(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	own, err := posts.Create(ctx, user, "", PostInput{Title: "Mine", Content: "content"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := posts.ToggleLike(ctx, userID, own.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := posts.ToggleSave(ctx, userID, own.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := posts.AddComment(ctx, user, "", own.ID, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := posts.ToggleLike(ctx, userID, otherPostID); err != nil {
		t.Fatal(err)
	}
	if _, err := posts.AddComment(ctx, user, "", otherPostID, "great post"); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec(`INSERT INTO insights (id, user_id, type, title, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		newID(), userID, "mood", "t", "c", testNow); err != nil {
		t.Fatal(err)
	}

	plans := NewTherapyPlanService(db, nil, nil, nopLogger())
	plans.now = fixedClock(testNow)
	if _, err := plans.Generate(ctx, userID, PlanRequest{}); err != nil {
		t.Fatal(err)
	}
}

func TestUserService_SyncIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db)
	ctx := context.Background()

	first, err := svc.Sync(ctx, "ext-1", SyncInput{Email: "a@example.com", Name: "Alice"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Sync(ctx, "ext-1", SyncInput{Name: "Alice B"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("sync created a second user")
	}
	if second.Email != "a@example.com" || second.Name != "Alice B" {
		t.Errorf("unexpected profile %+v", second)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM users`); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestUserService_GetByExternalIDMissing(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewUserService(db).GetByExternalID(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_DeleteAccountRemovesEverything(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "leaving", "Alice")
	other := createUser(t, db, "staying", "Bob")

	posts := NewPostService(db, nil, nil, nil, nopLogger())
	otherPost, err := posts.Create(ctx, other, "", PostInput{Title: "Bob's", Content: "post"})
	if err != nil {
		t.Fatal(err)
	}
	seedAccount(t, db, user.ID, otherPost.ID)

	if err := NewUserService(db).DeleteAccount(ctx, user.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	for _, table := range userTables {
		if n := countRows(t, db, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, user.ID); n != 0 {
			t.Errorf("%s still has %d rows", table, n)
		}
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM messages`); n != 0 {
		t.Errorf("messages still has %d rows", n)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM users WHERE id = $1`, user.ID); n != 0 {
		t.Error("user row still present")
	}

	got, err := posts.Get(ctx, other.ID, otherPost.ID)
	if err != nil {
		t.Fatalf("other user's post should survive: %v", err)
	}
	if got.LikesCount != 0 || got.CommentsCount != 0 {
		t.Errorf("counters not rolled back: likes=%d comments=%d", got.LikesCount, got.CommentsCount)
	}
}

func TestUserService_DeleteAccountIsAllOrNothing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "leaving", "Alice")
	other := createUser(t, db, "staying", "Bob")

	posts := NewPostService(db, nil, nil, nil, nopLogger())
	otherPost, err := posts.Create(ctx, other, "", PostInput{Title: "Bob's", Content: "post"})
	if err != nil {
		t.Fatal(err)
	}
	seedAccount(t, db, user.ID, otherPost.ID)

	before := map[string]int{}
	for _, table := range userTables {
		before[table] = countRows(t, db, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, user.ID)
	}
	messagesBefore := countRows(t, db, `SELECT COUNT(*) FROM messages`)

	// The last statement of the deletion fails.
	if _, err := db.Exec(`CREATE TRIGGER fail_user_delete BEFORE DELETE ON users
		BEGIN SELECT RAISE(ABORT, 'forced failure'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if err := NewUserService(db).DeleteAccount(ctx, user.ID); err == nil {
		t.Fatal("expected deletion to fail")
	}

	for _, table := range userTables {
		if n := countRows(t, db, `SELECT COUNT(*) FROM `+table+` WHERE user_id = $1`, user.ID); n != before[table] || n == 0 {
			t.Errorf("%s: had %d rows, now %d", table, before[table], n)
		}
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM messages`); n != messagesBefore {
		t.Errorf("messages: had %d, now %d", messagesBefore, n)
	}
	got, _ := posts.Get(ctx, other.ID, otherPost.ID)
	if got.LikesCount != 1 || got.CommentsCount != 1 {
		t.Errorf("counters changed despite rollback: likes=%d comments=%d", got.LikesCount, got.CommentsCount)
	}
}

func TestUserService_DeleteMissingAccount(t *testing.T) {
	db := setupTestDB(t)
	if err := NewUserService(db).DeleteAccount(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
