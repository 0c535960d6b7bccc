package services

import (
	"context"
	"errors"
	"testing"

	"github.com/AnshRaj112/solace-backend/internal/models"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

func newPostService(t *testing.T) (*PostService, *memAudit) {
	t.Helper()
	db := setupTestDB(t)
	audit := &memAudit{}
	svc := NewPostService(db, keywordGate(), audit, NewCommunityHub(nil, nopLogger()), nopLogger())
	svc.now = fixedClock(testNow)
	return svc, audit
}

func mustPost(t *testing.T, svc *PostService, author *models.User, title string) *models.Post {
	t.Helper()
	p, err := svc.Create(context.Background(), author, "127.0.0.1", PostInput{Title: title, Content: "Some content", Category: "general"})
	if err != nil {
		t.Fatalf("Failed to create post: %v", err)
	}
	return p
}

func TestPostService_ToggleLikeTwiceRestoresCount(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	reader := createUser(t, svc.db, "reader", "Bob")
	post := mustPost(t, svc, author, "Hello")

	first, err := svc.ToggleLike(ctx, reader.ID, post.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !first.Active || first.LikesCount != 1 {
		t.Fatalf("after like got %+v", first)
	}

	got, err := svc.Get(ctx, reader.ID, post.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.LikedByMe {
		t.Error("expected liked_by_me after like")
	}

	second, err := svc.ToggleLike(ctx, reader.ID, post.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if second.Active || second.LikesCount != 0 {
		t.Fatalf("after unlike got %+v", second)
	}
	if n := countRows(t, svc.db, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, post.ID); n != 0 {
		t.Errorf("expected no like rows, got %d", n)
	}
}

func TestPostService_LikesFromTwoUsers(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	bob := createUser(t, svc.db, "bob", "Bob")
	post := mustPost(t, svc, author, "Hello")

	if _, err := svc.ToggleLike(ctx, author.ID, post.ID); err != nil {
		t.Fatal(err)
	}
	res, err := svc.ToggleLike(ctx, bob.ID, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.LikesCount != 2 {
		t.Errorf("expected 2 likes, got %d", res.LikesCount)
	}
}

func TestPostService_ToggleMissingPost(t *testing.T) {
	svc, _ := newPostService(t)
	user := createUser(t, svc.db, "u1", "Alice")

	if _, err := svc.ToggleLike(context.Background(), user.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.ToggleSave(context.Background(), user.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostService_ToggleSaveAndSavedList(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	post := mustPost(t, svc, author, "Keep me")
	mustPost(t, svc, author, "Not saved")

	res, err := svc.ToggleSave(ctx, author.ID, post.ID)
	if err != nil || !res.Active {
		t.Fatalf("save: %+v %v", res, err)
	}
	saved, err := svc.Saved(ctx, author.ID)
	if err != nil {
		t.Fatalf("saved: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != post.ID || !saved[0].SavedByMe {
		t.Fatalf("unexpected saved list %+v", saved)
	}

	if res, _ := svc.ToggleSave(ctx, author.ID, post.ID); res.Active {
		t.Error("second save should remove the bookmark")
	}
}

func TestPostService_PinRequiresAdmin(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	user := createUser(t, svc.db, "user", "Alice")
	admin := createUser(t, svc.db, "admin", "Root")
	makeAdmin(t, svc.db, admin)

	older := mustPost(t, svc, user, "Older")
	svc.now = fixedClock(testNow.Add(1))
	mustPost(t, svc, user, "Newer")

	if _, err := svc.TogglePin(ctx, user, older.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	res, err := svc.TogglePin(ctx, admin, older.ID)
	if err != nil || !res.Active {
		t.Fatalf("pin: %+v %v", res, err)
	}

	posts, err := svc.List(ctx, user.ID, PostQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != older.ID || !posts[0].IsPinned {
		t.Fatalf("pinned post should list first, got %+v", posts)
	}
}

func TestPostService_CommentsMaintainCounter(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	user := createUser(t, svc.db, "user", "Alice")
	post := mustPost(t, svc, user, "Hello")

	if _, err := svc.AddComment(ctx, user, "", post.ID, "Nice post"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	got, _ := svc.Get(ctx, user.ID, post.ID)
	if got.CommentsCount != 1 {
		t.Errorf("expected 1 comment, got %d", got.CommentsCount)
	}
	comments, err := svc.Comments(ctx, post.ID)
	if err != nil || len(comments) != 1 || comments[0].AuthorName != "Alice" {
		t.Fatalf("comments: %+v %v", comments, err)
	}
	if _, err := svc.AddComment(ctx, user, "", "missing", "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing post, got %v", err)
	}
}

func TestPostService_SevereContentRejected(t *testing.T) {
	svc, audit := newPostService(t)
	user := createUser(t, svc.db, "user", "Alice")

	_, err := svc.Create(context.Background(), user, "10.0.0.1", PostInput{Title: "tonight", Content: "I want to end my life"})
	var ve *utils.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := countRows(t, svc.db, `SELECT COUNT(*) FROM posts`); n != 0 {
		t.Errorf("severe post should not be stored, found %d", n)
	}
	if len(audit.events) != 1 || audit.events[0].ActionTaken != "rejected" || audit.events[0].Source != models.SourcePost {
		t.Errorf("unexpected audit events %+v", audit.events)
	}
}

func TestPostService_AnonymousHidesAuthor(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	reader := createUser(t, svc.db, "reader", "Bob")

	p, err := svc.Create(ctx, author, "", PostInput{Title: "Quiet", Content: "Hard week", Anonymous: true})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, reader.ID, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AuthorName != "Anonymous" || got.UserID != "" {
		t.Errorf("anonymous post leaked author: %+v", got)
	}
}

func TestPostService_DeleteOnlyOwn(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	other := createUser(t, svc.db, "other", "Bob")
	post := mustPost(t, svc, author, "Mine")

	if err := svc.Delete(ctx, other, post.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, author, post.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, author.ID, post.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("post still readable: %v", err)
	}
}

func TestPostService_UnlikeThatRemovesNothingKeepsCount(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	post := mustPost(t, svc, author, "Hello")

	if _, err := svc.ToggleLike(ctx, author.ID, post.ID); err != nil {
		t.Fatal(err)
	}

	// Another request removed the like first: the delete finds nothing.
	if _, err := svc.db.Exec(`CREATE TRIGGER skip_like_delete BEFORE DELETE ON post_likes
		BEGIN SELECT RAISE(IGNORE); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	res, err := svc.ToggleLike(ctx, author.ID, post.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	rows := countRows(t, svc.db, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, post.ID)
	if res.LikesCount != rows || res.LikesCount != 1 {
		t.Fatalf("likes_count %d does not match %d like rows", res.LikesCount, rows)
	}
}

func TestPostService_SaveCarriesNoLikeCount(t *testing.T) {
	svc, _ := newPostService(t)
	ctx := context.Background()
	author := createUser(t, svc.db, "author", "Alice")
	post := mustPost(t, svc, author, "Hello")
	if _, err := svc.ToggleLike(ctx, author.ID, post.ID); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ToggleSave(ctx, author.ID, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Active || res.LikesCount != 0 {
		t.Errorf("unexpected save result %+v", res)
	}
}
