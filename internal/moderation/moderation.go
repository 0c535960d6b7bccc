// Package moderation decides whether user text may reach the language model.
package moderation

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/AnshRaj112/solace-backend/internal/models"
)

// CrisisMessage is returned instead of a model reply when content is severe.
const CrisisMessage = "I'm really concerned about what you've shared, and I want you to know you don't have to go through this alone. " +
	"Please reach out to someone right now: in the US you can call or text 988 (Suicide & Crisis Lifeline), " +
	"text HOME to 741741 (Crisis Text Line), or call your local emergency number. " +
	"If you are outside the US, please contact your local crisis line or emergency services. " +
	"You matter, and there are people ready to help you."

// SevereCategories short-circuit generation when any of them is flagged.
var SevereCategories = []string{
	"sexual/violent",
	"self-harm",
	"sexual/minors",
	"hate/threatening",
	"violence/graphic",
}

// Result is a classifier verdict. Categories is open-ended: providers add
// new keys over time and unknown keys are carried through untouched.
type Result struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

// FlaggedCategories returns the names of the categories set to true, sorted.
func (r Result) FlaggedCategories() []string {
	var out []string
	for name, on := range r.Categories {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Classifier labels a piece of text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// AuditLog stores flagged decisions for later review.
type AuditLog interface {
	Record(ctx context.Context, event models.ModerationEvent) error
}

// Decision is what the gate tells its caller to do.
type Decision struct {
	Flagged    bool     `json:"flagged"`
	Severe     bool     `json:"severe"`
	Categories []string `json:"categories,omitempty"`
}

// Evaluate applies the severe-category allowlist to a classifier result.
func Evaluate(res Result) Decision {
	if !res.Flagged {
		return Decision{}
	}
	d := Decision{Flagged: true, Categories: res.FlaggedCategories()}
	for _, c := range SevereCategories {
		if res.Categories[c] {
			d.Severe = true
			break
		}
	}
	return d
}

// Gate runs the primary classifier and falls back to the secondary one when
// the primary is missing or fails. When both fail the text is allowed.
type Gate struct {
	primary  Classifier
	fallback Classifier
	log      *zap.SugaredLogger
}

// NewGate builds a gate. primary may be nil.
func NewGate(primary, fallback Classifier, log *zap.SugaredLogger) *Gate {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Gate{primary: primary, fallback: fallback, log: log}
}

// Check classifies text and returns the decision. A nil gate allows everything.
func (g *Gate) Check(ctx context.Context, text string) Decision {
	if g == nil {
		return Decision{}
	}
	if g.primary != nil {
		res, err := g.primary.Classify(ctx, text)
		if err == nil {
			return Evaluate(res)
		}
		g.log.Warnw("moderation: primary classifier failed, using fallback", "error", err)
	}
	if g.fallback == nil {
		return Decision{}
	}
	res, err := g.fallback.Classify(ctx, text)
	if err != nil {
		g.log.Errorw("moderation: fallback classifier failed", "error", err)
		return Decision{}
	}
	return Evaluate(res)
}
