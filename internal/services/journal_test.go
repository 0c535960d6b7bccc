package services

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

func testCipher(t *testing.T) *utils.Cipher {
	t.Helper()
	c, err := utils.NewCipher(base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")))
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return c
}

func TestJournalService_ContentIsSealedAtRest(t *testing.T) {
	db := setupTestDB(t)
	svc := NewJournalService(db, testCipher(t), nil, nopLogger())
	ctx := context.Background()
	user := createUser(t, db, "writer", "Alice")

	e, err := svc.Create(ctx, user.ID, JournalInput{Title: "Tuesday", Content: "I felt calm after my walk."})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var stored string
	if err := db.QueryRow(`SELECT content FROM journal_entries WHERE id = $1`, e.ID).Scan(&stored); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stored, "enc:v1:") || strings.Contains(stored, "calm") {
		t.Errorf("content stored in the clear: %q", stored)
	}

	got, err := svc.Get(ctx, user.ID, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "I felt calm after my walk." {
		t.Errorf("unexpected content %q", got.Content)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM session_records WHERE user_id = $1 AND type = 'journal'`, user.ID); n != 1 {
		t.Errorf("expected one journal session, got %d", n)
	}
}

func TestJournalService_ListFiltersByTag(t *testing.T) {
	db := setupTestDB(t)
	svc := NewJournalService(db, nil, nil, nopLogger())
	ctx := context.Background()
	user := createUser(t, db, "writer", "Alice")

	for _, in := range []JournalInput{
		{Title: "Work", Content: "Long meeting", Tags: []string{"Work", "stress"}},
		{Title: "Park", Content: "Sunny", Tags: []string{"outdoors"}},
		{Title: "Deadline", Content: "Shipped it", Tags: []string{"work"}},
	} {
		if _, err := svc.Create(ctx, user.ID, in); err != nil {
			t.Fatal(err)
		}
	}

	entries, total, err := svc.List(ctx, user.ID, JournalQuery{Tag: "WORK"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(entries) != 2 {
		t.Fatalf("expected 2 work entries, got total=%d len=%d", total, len(entries))
	}

	page, total, err := svc.List(ctx, user.ID, JournalQuery{Limit: 1, Skip: 1})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(page) != 1 {
		t.Errorf("expected one entry of 3, got total=%d len=%d", total, len(page))
	}
}

func TestJournalService_Ownership(t *testing.T) {
	db := setupTestDB(t)
	svc := NewJournalService(db, nil, nil, nopLogger())
	ctx := context.Background()
	owner := createUser(t, db, "owner", "Alice")
	other := createUser(t, db, "other", "Bob")

	e, err := svc.Create(ctx, owner.ID, JournalInput{Title: "Private", Content: "Mine"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx, other.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	title := "Hijacked"
	if _, err := svc.Update(ctx, other.ID, e.ID, JournalPatch{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, other.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}

func TestJournalService_UpdateValidates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewJournalService(db, nil, nil, nopLogger())
	ctx := context.Background()
	user := createUser(t, db, "writer", "Alice")

	e, err := svc.Create(ctx, user.ID, JournalInput{Title: "Day", Content: "Fine"})
	if err != nil {
		t.Fatal(err)
	}
	bad := 11.0
	var ve *utils.ValidationError
	if _, err := svc.Update(ctx, user.ID, e.ID, JournalPatch{Mood: &bad}); !errors.As(err, &ve) {
		t.Errorf("expected validation error for mood, got %v", err)
	}

	mood := 6.5
	updated, err := svc.Update(ctx, user.ID, e.ID, JournalPatch{Mood: &mood})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Mood == nil || *updated.Mood != 6.5 || updated.Title != "Day" {
		t.Errorf("unexpected entry %+v", updated)
	}
}

func TestJournalService_AnalyzeFallsBackToNeutral(t *testing.T) {
	db := setupTestDB(t)
	svc := NewJournalService(db, nil, &fakeCompleter{err: errors.New("timeout")}, nopLogger())
	ctx := context.Background()
	user := createUser(t, db, "writer", "Alice")

	e, err := svc.Create(ctx, user.ID, JournalInput{Title: "Day", Content: "Okay"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Analyze(ctx, user.ID, e.ID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Sentiment != "neutral" || res.Score != 0 {
		t.Errorf("expected neutral analysis, got %+v", res)
	}

	svc.llm = &fakeCompleter{reply: "```json\n{\"sentiment\": \"positive\", \"score\": 3, \"summary\": \"Upbeat\", \"themes\": [\"rest\"]}\n```"}
	res, err = svc.Analyze(ctx, user.ID, e.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Sentiment != "positive" || res.Score != 1 || len(res.Themes) != 1 {
		t.Errorf("unexpected analysis %+v", res)
	}
}
