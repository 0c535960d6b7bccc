package moderation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AnshRaj112/solace-backend/internal/moderation"
)

type stubClassifier struct {
	res    moderation.Result
	err    error
	called int
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (moderation.Result, error) {
	s.called++
	return s.res, s.err
}

func TestEvaluate_NotFlagged(t *testing.T) {
	d := moderation.Evaluate(moderation.Result{Categories: map[string]bool{"self-harm": true}})
	if d.Flagged || d.Severe {
		t.Fatalf("unflagged result must not be flagged or severe: %+v", d)
	}
}

func TestEvaluate_SevereCategory(t *testing.T) {
	for _, cat := range moderation.SevereCategories {
		d := moderation.Evaluate(moderation.Result{Flagged: true, Categories: map[string]bool{cat: true}})
		if !d.Severe {
			t.Errorf("%s should be severe", cat)
		}
	}
}

func TestEvaluate_FlaggedButNotSevere(t *testing.T) {
	d := moderation.Evaluate(moderation.Result{
		Flagged:    true,
		Categories: map[string]bool{"harassment": true, "violence": true, "self-harm": false},
	})
	if !d.Flagged || d.Severe {
		t.Fatalf("expected flagged but not severe, got %+v", d)
	}
	if len(d.Categories) != 2 || d.Categories[0] != "harassment" || d.Categories[1] != "violence" {
		t.Errorf("unexpected categories %v", d.Categories)
	}
}

func TestGate_FallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubClassifier{err: errors.New("boom")}
	fallback := &stubClassifier{res: moderation.Result{Flagged: true, Categories: map[string]bool{"self-harm": true}}}

	d := moderation.NewGate(primary, fallback, nil).Check(context.Background(), "text")
	if primary.called != 1 || fallback.called != 1 {
		t.Fatalf("expected both classifiers called once, got %d/%d", primary.called, fallback.called)
	}
	if !d.Severe {
		t.Fatalf("expected severe decision from fallback")
	}
}

func TestGate_NilPrimaryUsesFallback(t *testing.T) {
	fallback := &stubClassifier{}
	moderation.NewGate(nil, fallback, nil).Check(context.Background(), "hello")
	if fallback.called != 1 {
		t.Fatalf("fallback not called")
	}
}

func TestGate_AllowsWhenEverythingFails(t *testing.T) {
	failing := &stubClassifier{err: errors.New("down")}
	d := moderation.NewGate(failing, failing, nil).Check(context.Background(), "hello")
	if d.Flagged {
		t.Fatalf("expected allow when classifiers fail")
	}
}

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		text     string
		selfHarm bool
		violence bool
	}{
		{"I had a nice walk today", false, false},
		{"I want to kill myself", true, true},
		{"sometimes I think about SUICIDE", true, false},
		{"I'm going to k1ll him", false, true},
		{"kiiiill", false, true},
		{"my new skill is baking", false, false},
		{"I'd be better off dead", true, false},
	}
	for _, tc := range cases {
		res, err := moderation.KeywordClassifier{}.Classify(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Categories["self-harm"] != tc.selfHarm || res.Categories["violence"] != tc.violence {
			t.Errorf("%q: got %v", tc.text, res.Categories)
		}
		if res.Flagged != (tc.selfHarm || tc.violence) {
			t.Errorf("%q: flagged=%v", tc.text, res.Flagged)
		}
	}
}

func TestOpenAIClassifier_ParsesFirstResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/moderations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("missing auth header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["input"] != "hello" {
			t.Errorf("unexpected input %q", body["input"])
		}
		_, _ = w.Write([]byte(`{"results":[{"flagged":true,"categories":{"self-harm":true,"new/category":false}}]}`))
	}))
	defer srv.Close()

	c := moderation.NewOpenAIClassifier(srv.URL, "key", "", time.Second)
	res, err := c.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !res.Flagged || !res.Categories["self-harm"] {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := res.Categories["new/category"]; !ok {
		t.Errorf("unknown categories should be preserved")
	}
}

func TestOpenAIClassifier_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := moderation.NewOpenAIClassifier(srv.URL, "key", "", time.Second)
	if _, err := c.Classify(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestNewOpenAIClassifier_NoKey(t *testing.T) {
	if c := moderation.NewOpenAIClassifier("", "", "", 0); c != nil {
		t.Fatal("expected nil classifier without api key")
	}
}
