package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/plan"
)

const planColumns = `id, user_id, topic, title, duration, description, estimated_hours, steps, step_progress,
	progress_percentage, completed_steps, total_steps, is_completed, completed_at,
	difficulty, daily_hours, duration_weeks, source, created_at, updated_at`

type planRow struct {
	ID                 string         `db:"id"`
	UserID             string         `db:"user_id"`
	Topic              string         `db:"topic"`
	Title              string         `db:"title"`
	Duration           string         `db:"duration"`
	Description        string         `db:"description"`
	EstimatedHours     null.Float64   `db:"estimated_hours"`
	Steps              types.JSONText `db:"steps"`
	StepProgress       types.JSONText `db:"step_progress"`
	ProgressPercentage int            `db:"progress_percentage"`
	CompletedSteps     int            `db:"completed_steps"`
	TotalSteps         int            `db:"total_steps"`
	IsCompleted        bool           `db:"is_completed"`
	CompletedAt        null.Time      `db:"completed_at"`
	Difficulty         string         `db:"difficulty"`
	DailyHours         float64        `db:"daily_hours"`
	Weeks              int            `db:"duration_weeks"`
	Source             string         `db:"source"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func newPlanRow(p plan.StudyPlan) (planRow, error) {
	steps := p.Steps
	if steps == nil {
		steps = []string{}
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return planRow{}, errors.Wrap(err, "encoding steps")
	}
	progress := p.StepProgress
	if progress == nil {
		progress = []plan.StepProgress{}
	}
	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return planRow{}, errors.Wrap(err, "encoding step progress")
	}

	return planRow{
		ID:                 p.ID,
		UserID:             p.UserID,
		Topic:              p.Topic,
		Title:              p.Title,
		Duration:           p.Duration,
		Description:        p.Description,
		EstimatedHours:     null.Float64FromPtr(p.EstimatedHours),
		Steps:              stepsJSON,
		StepProgress:       progressJSON,
		ProgressPercentage: p.ProgressPercentage,
		CompletedSteps:     p.CompletedSteps,
		TotalSteps:         p.TotalSteps,
		IsCompleted:        p.IsCompleted,
		CompletedAt:        null.TimeFromPtr(utcPtr(p.CompletedAt)),
		Difficulty:         string(p.Difficulty),
		DailyHours:         p.DailyHours,
		Weeks:              p.Weeks,
		Source:             string(p.Source),
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.UpdatedAt.UTC(),
	}, nil
}

func (r planRow) plan() (plan.StudyPlan, error) {
	p := plan.StudyPlan{
		ID:                 r.ID,
		UserID:             r.UserID,
		Topic:              r.Topic,
		Title:              r.Title,
		Duration:           r.Duration,
		Description:        r.Description,
		EstimatedHours:     r.EstimatedHours.Ptr(),
		ProgressPercentage: r.ProgressPercentage,
		CompletedSteps:     r.CompletedSteps,
		TotalSteps:         r.TotalSteps,
		IsCompleted:        r.IsCompleted,
		CompletedAt:        utcPtr(r.CompletedAt.Ptr()),
		Difficulty:         plan.Difficulty(r.Difficulty),
		DailyHours:         r.DailyHours,
		Weeks:              r.Weeks,
		Source:             plan.Source(r.Source),
		CreatedAt:          r.CreatedAt.UTC(),
		UpdatedAt:          r.UpdatedAt.UTC(),
	}
	if err := r.Steps.Unmarshal(&p.Steps); err != nil {
		return plan.StudyPlan{}, errors.Wrap(err, "decoding steps")
	}
	if err := r.StepProgress.Unmarshal(&p.StepProgress); err != nil {
		return plan.StudyPlan{}, errors.Wrap(err, "decoding step progress")
	}
	return p, nil
}

type planRepository struct {
	exec core.DBExecutor
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(exec core.DBExecutor) plan.Repository {
	return &planRepository{exec: exec}
}

func (repo *planRepository) CreatePlan(ctx context.Context, p plan.StudyPlan) (plan.StudyPlan, error) {
	row, err := newPlanRow(p)
	if err != nil {
		return plan.StudyPlan{}, err
	}
	q := `INSERT INTO study_plans (` + planColumns + `)
		VALUES (:id, :user_id, :topic, :title, :duration, :description, :estimated_hours, :steps, :step_progress,
			:progress_percentage, :completed_steps, :total_steps, :is_completed, :completed_at,
			:difficulty, :daily_hours, :duration_weeks, :source, :created_at, :updated_at)`
	if _, err = repo.exec.NamedExecContext(ctx, q, row); err != nil {
		return plan.StudyPlan{}, errors.Wrap(err, "inserting study plan")
	}
	return repo.GetPlan(ctx, p.ID, p.UserID)
}

func (repo *planRepository) QueryPlans(ctx context.Context, filter plan.QueryFilter, ordering []core.DBOrdering) ([]plan.StudyPlan, error) {
	var (
		where string
		args  []interface{}
	)
	if filter.UserID != "" {
		where = "WHERE user_id = $1"
		args = append(args, filter.UserID)
	}

	q := `SELECT ` + planColumns + ` FROM study_plans ` + where + ` ORDER BY ` + orderBy(ordering)
	var rows []planRow
	if err := repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting study plans")
	}

	plans := make([]plan.StudyPlan, 0, len(rows))
	for _, row := range rows {
		p, err := row.plan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (repo *planRepository) GetPlan(ctx context.Context, id, userID string) (plan.StudyPlan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return plan.StudyPlan{}, plan.ErrNotFound
	}

	var row planRow
	q := `SELECT ` + planColumns + ` FROM study_plans WHERE id = $1 AND user_id = $2`
	if err := repo.exec.GetContext(ctx, &row, q, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return plan.StudyPlan{}, plan.ErrNotFound
		}
		return plan.StudyPlan{}, errors.Wrap(err, "finding study plan")
	}
	return row.plan()
}

func (repo *planRepository) UpdatePlan(ctx context.Context, p plan.StudyPlan) (plan.StudyPlan, error) {
	row, err := newPlanRow(p)
	if err != nil {
		return plan.StudyPlan{}, err
	}
	q := `UPDATE study_plans SET title = :title, duration = :duration, description = :description,
		estimated_hours = :estimated_hours, steps = :steps, step_progress = :step_progress,
		progress_percentage = :progress_percentage, completed_steps = :completed_steps, total_steps = :total_steps,
		is_completed = :is_completed, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id AND user_id = :user_id`
	res, err := repo.exec.NamedExecContext(ctx, q, row)
	if err != nil {
		return plan.StudyPlan{}, errors.Wrap(err, "updating study plan")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return plan.StudyPlan{}, plan.ErrNotFound
	}
	return repo.GetPlan(ctx, p.ID, p.UserID)
}

// DeletePlan removes the plan; its feedback goes with it through the FK cascade.
func (repo *planRepository) DeletePlan(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return plan.ErrNotFound
	}
	res, err := repo.exec.ExecContext(ctx, `DELETE FROM study_plans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "deleting study plan")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting study plan")
	}
	if n == 0 {
		return plan.ErrNotFound
	}
	return nil
}

// orderBy builds an ORDER BY clause, dropping fields plans cannot be ordered by.
func orderBy(ordering []core.DBOrdering) string {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if plan.OrderingFields[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		clauses = append(clauses, "created_at DESC")
	}
	return strings.Join(append(clauses, "id ASC"), ", ")
}
