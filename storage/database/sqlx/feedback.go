package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/feedback"
)

const feedbackColumns = "id, user_id, study_plan_id, rating, feedback, helpful, suggestions, created_at, updated_at"

type feedbackRow struct {
	ID          string      `db:"id"`
	UserID      string      `db:"user_id"`
	StudyPlanID string      `db:"study_plan_id"`
	Rating      int         `db:"rating"`
	Feedback    string      `db:"feedback"`
	Helpful     bool        `db:"helpful"`
	Suggestions null.String `db:"suggestions"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

func (r feedbackRow) feedback() feedback.Feedback {
	return feedback.Feedback{
		ID:          r.ID,
		UserID:      r.UserID,
		StudyPlanID: r.StudyPlanID,
		Rating:      r.Rating,
		Feedback:    r.Feedback,
		Helpful:     r.Helpful,
		Suggestions: r.Suggestions.Ptr(),
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type feedbackRepository struct {
	exec core.DBExecutor
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(exec core.DBExecutor) feedback.Repository {
	return &feedbackRepository{exec: exec}
}

func (repo *feedbackRepository) UpsertFeedback(ctx context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	row := feedbackRow{
		ID:          fb.ID,
		UserID:      fb.UserID,
		StudyPlanID: fb.StudyPlanID,
		Rating:      fb.Rating,
		Feedback:    fb.Feedback,
		Helpful:     fb.Helpful,
		Suggestions: null.StringFromPtr(fb.Suggestions),
		CreatedAt:   fb.CreatedAt.UTC(),
		UpdatedAt:   fb.UpdatedAt.UTC(),
	}
	q := `INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (:id, :user_id, :study_plan_id, :rating, :feedback, :helpful, :suggestions, :created_at, :updated_at)
		ON CONFLICT (user_id, study_plan_id) DO UPDATE SET
			rating = EXCLUDED.rating,
			feedback = EXCLUDED.feedback,
			helpful = EXCLUDED.helpful,
			suggestions = EXCLUDED.suggestions,
			updated_at = EXCLUDED.updated_at`
	if _, err := repo.exec.NamedExecContext(ctx, q, row); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "upserting feedback")
	}
	return repo.GetFeedback(ctx, fb.UserID, fb.StudyPlanID)
}

func (repo *feedbackRepository) GetFeedback(ctx context.Context, userID, planID string) (feedback.Feedback, error) {
	if _, err := uuid.Parse(planID); err != nil {
		return feedback.Feedback{}, feedback.ErrNotFound
	}

	var row feedbackRow
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE user_id = $1 AND study_plan_id = $2`
	if err := repo.exec.GetContext(ctx, &row, q, userID, planID); err != nil {
		if err == sql.ErrNoRows {
			return feedback.Feedback{}, feedback.ErrNotFound
		}
		return feedback.Feedback{}, errors.Wrap(err, "finding feedback")
	}
	return row.feedback(), nil
}

func (repo *feedbackRepository) QueryFeedback(ctx context.Context, userID string) ([]feedback.Feedback, error) {
	var rows []feedbackRow
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	if err := repo.exec.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "selecting feedback")
	}

	fbs := make([]feedback.Feedback, 0, len(rows))
	for _, row := range rows {
		fbs = append(fbs, row.feedback())
	}
	return fbs, nil
}
