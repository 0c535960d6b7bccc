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
	"github.com/AnshRaj112/solace-backend/internal/stats"
	"github.com/AnshRaj112/solace-backend/pkg/utils"
)

const planPrompt = `You are a supportive wellness coach creating a gentle four-week self-help plan.
Use the user's focus area and activity summary. Respond with JSON only:
{"title": "<short title>", "description": "<two sentences>", "goals": ["<goal>", ...], "activities": ["<daily or weekly activity>", ...]}
Use 3 to 5 goals and 3 to 6 activities. Do not diagnose or mention medication.`

// PlanRequest is the generate payload.
type PlanRequest struct {
	Focus string `json:"focus"`
}

// PlanPatch updates tracking fields; nil means unchanged.
type PlanPatch struct {
	Status   *string `json:"status"`
	Progress *int    `json:"progress"`
}

type TherapyPlanService struct {
	db    *sql.DB
	stats *StatsService
	llm   llm.Completer
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewTherapyPlanService(db *sql.DB, statsSvc *StatsService, completer llm.Completer, log *zap.SugaredLogger) *TherapyPlanService {
	return &TherapyPlanService{db: db, stats: statsSvc, llm: completer, log: log, now: utcNow}
}

type planDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Goals       []string `json:"goals"`
	Activities  []string `json:"activities"`
}

// Generate creates a plan for the focus area, falling back to a default
// plan when the model is unavailable.
func (s *TherapyPlanService) Generate(ctx context.Context, userID string, req PlanRequest) (*models.TherapyPlan, error) {
	focus, err := utils.OptionalText("focus", req.Focus, 200)
	if err != nil {
		return nil, err
	}
	if focus == "" {
		focus = "general wellbeing"
	}

	draft := s.fromModel(ctx, userID, focus)
	if draft == nil {
		draft = defaultPlan(focus)
	}

	now := s.now()
	p := &models.TherapyPlan{
		ID: newID(), UserID: userID, Title: draft.Title, Description: draft.Description,
		Goals: draft.Goals, Activities: draft.Activities, Status: models.PlanActive,
		CreatedAt: now, UpdatedAt: now,
	}
	goals, err := encodeList(p.Goals)
	if err != nil {
		return nil, err
	}
	activities, err := encodeList(p.Activities)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO therapy_plans (id, user_id, title, description, goals, activities, status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, p.ID, p.UserID, p.Title, p.Description, goals, activities, p.Status, p.Progress, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *TherapyPlanService) fromModel(ctx context.Context, userID, focus string) *planDraft {
	if s.llm == nil {
		return nil
	}
	prompt := "Focus area: " + focus
	if s.stats != nil {
		in, err := s.stats.Load(ctx, userID, s.now(), stats.InsightDays)
		if err == nil {
			sum := stats.Summarize(in)
			prompt += "\nAverage mood (1-10): "
			if sum.HasMoodData {
				prompt += fmt.Sprintf("%.1f", sum.AverageMood)
			} else {
				prompt += "unknown"
			}
			prompt += "\nMood trend: " + string(sum.MoodTrend)
		}
	}

	reply, err := s.llm.Complete(ctx, planPrompt, []llm.Turn{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		s.log.Warnw("plan generation failed, using default", "user_id", userID, "error", err)
		return nil
	}
	var d planDraft
	if err := llm.DecodeJSON(reply, &d); err != nil {
		s.log.Warnw("plan generation: unreadable model output", "user_id", userID, "error", err)
		return nil
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Goals = nonEmpty(d.Goals)
	d.Activities = nonEmpty(d.Activities)
	if d.Title == "" || len(d.Goals) == 0 || len(d.Activities) == 0 {
		return nil
	}
	return &d
}

func defaultPlan(focus string) *planDraft {
	return &planDraft{
		Title:       "Four weeks of steady care",
		Description: "A gentle plan focused on " + focus + ". Small daily habits add up; adjust anything that doesn't feel right.",
		Goals: []string{
			"Check in with your mood every day",
			"Write in your journal at least three times a week",
			"Practice one calming technique daily",
		},
		Activities: []string{
			"5 minutes of box breathing each morning",
			"A short walk outside",
			"Note one thing you're grateful for before bed",
			"Reach out to a friend or family member once a week",
		},
	}
}

const planColumns = `id, user_id, title, description, goals, activities, status, progress, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*models.TherapyPlan, error) {
	var p models.TherapyPlan
	var goals, activities string
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &goals, &activities, &p.Status, &p.Progress, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Goals = decodeList(goals)
	p.Activities = decodeList(activities)
	return &p, nil
}

// List returns the user's plans, newest first.
func (s *TherapyPlanService) List(ctx context.Context, userID string) ([]models.TherapyPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM therapy_plans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TherapyPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get loads one of the user's plans.
func (s *TherapyPlanService) Get(ctx context.Context, userID, id string) (*models.TherapyPlan, error) {
	return scanPlan(s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM therapy_plans WHERE id = $1 AND user_id = $2`, id, userID))
}

// Update changes status and progress. Completing a plan sets progress to 100.
func (s *TherapyPlanService) Update(ctx context.Context, userID, id string, patch PlanPatch) (*models.TherapyPlan, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Status != nil {
		if !models.ValidPlanStatus(*patch.Status) {
			return nil, utils.Invalid("status", "status must be one of active, completed, archived")
		}
		p.Status = *patch.Status
	}
	if patch.Progress != nil {
		if *patch.Progress < 0 || *patch.Progress > 100 {
			return nil, utils.Invalid("progress", "progress must be between 0 and 100")
		}
		p.Progress = *patch.Progress
	}
	if p.Status == models.PlanCompleted {
		p.Progress = 100
	}
	p.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE therapy_plans SET status = $1, progress = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
	`, p.Status, p.Progress, p.UpdatedAt, id, userID)
	if err != nil {
		return nil, err
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes one of the user's plans.
func (s *TherapyPlanService) Delete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM therapy_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
