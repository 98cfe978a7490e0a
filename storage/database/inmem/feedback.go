package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/studyplan/core/feedback"
)

type feedbackRepository struct {
	db *feedbackTable
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db.feedback}
}

func (repo *feedbackRepository) UpsertFeedback(_ context.Context, fb feedback.Feedback) (feedback.Feedback, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, existing := range repo.db.table {
		if existing.UserID == fb.UserID && existing.StudyPlanID == fb.StudyPlanID {
			fb.ID = id
			fb.CreatedAt = existing.CreatedAt
			break
		}
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	repo.db.table[fb.ID] = &fb
	return fb, nil
}

func (repo *feedbackRepository) GetFeedback(_ context.Context, userID, planID string) (feedback.Feedback, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, fb := range repo.db.table {
		if fb.UserID == userID && fb.StudyPlanID == planID {
			return *fb, nil
		}
	}
	return feedback.Feedback{}, feedback.ErrNotFound
}

func (repo *feedbackRepository) QueryFeedback(_ context.Context, userID string) ([]feedback.Feedback, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	fbs := make([]feedback.Feedback, 0)
	for _, fb := range repo.db.table {
		if fb.UserID == userID {
			fbs = append(fbs, *fb)
		}
	}
	sort.Slice(fbs, func(i, j int) bool { return fbs[i].CreatedAt.Before(fbs[j].CreatedAt) })
	return fbs, nil
}
