package utils

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
}

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey())
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	sealed, err := c.Seal("dear diary")
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !strings.HasPrefix(sealed, sealedPrefix) || strings.Contains(sealed, "diary") {
		t.Fatalf("value not sealed: %q", sealed)
	}

	plain, err := c.Open(sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if plain != "dear diary" {
		t.Errorf("got %q", plain)
	}
}

func TestCipher_NilPassesThrough(t *testing.T) {
	c, err := NewCipher("")
	if err != nil || c != nil {
		t.Fatalf("expected nil cipher, got %v %v", c, err)
	}
	sealed, _ := c.Seal("hello")
	if sealed != "hello" {
		t.Errorf("nil cipher should not encrypt, got %q", sealed)
	}
	plain, _ := c.Open("hello")
	if plain != "hello" {
		t.Errorf("got %q", plain)
	}
	if _, err := c.Open(sealedPrefix + "abc"); err == nil {
		t.Error("expected error opening sealed value without key")
	}
}

func TestNewCipher_BadKey(t *testing.T) {
	if _, err := NewCipher("not base64!"); err == nil {
		t.Error("expected base64 error")
	}
	short := base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := NewCipher(short); err == nil {
		t.Error("expected length error")
	}
}

func TestRequireText(t *testing.T) {
	if _, err := RequireText("title", "   ", 10); err == nil {
		t.Error("blank should fail")
	}
	if _, err := RequireText("title", strings.Repeat("a", 11), 10); err == nil {
		t.Error("too long should fail")
	}
	got, err := RequireText("title", "  ok  ", 10)
	if err != nil || got != "ok" {
		t.Errorf("got %q %v", got, err)
	}

	_, err = RequireText("title", "", 10)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Errorf("expected ValidationError for title, got %v", err)
	}
}

func TestInRange(t *testing.T) {
	if InRange("mood", 0.5, 1, 10) == nil || InRange("mood", 10.5, 1, 10) == nil {
		t.Error("out of range accepted")
	}
	if err := InRange("mood", 1, 1, 10); err != nil {
		t.Errorf("boundary rejected: %v", err)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" Sleep", "sleep", "", "Work "})
	if len(got) != 2 || got[0] != "sleep" || got[1] != "work" {
		t.Errorf("got %v", got)
	}
}
