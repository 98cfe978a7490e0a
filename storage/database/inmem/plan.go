package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/plan"
)

type planRepository struct {
	db       *planTable
	feedback *feedbackTable
}

var _ plan.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) plan.Repository {
	return &planRepository{db: db.plan, feedback: db.feedback}
}

// clonePlan copies the slices so callers never share memory with the table.
func clonePlan(p plan.StudyPlan) plan.StudyPlan {
	p.Steps = append([]string(nil), p.Steps...)
	p.StepProgress = append([]plan.StepProgress(nil), p.StepProgress...)
	return p
}

func (repo *planRepository) CreatePlan(_ context.Context, p plan.StudyPlan) (plan.StudyPlan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stored := clonePlan(p)
	repo.db.table[p.ID] = &stored
	return clonePlan(stored), nil
}

func (repo *planRepository) QueryPlans(_ context.Context, filter plan.QueryFilter, ordering []core.DBOrdering) ([]plan.StudyPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	plans := make([]plan.StudyPlan, 0)
	for _, p := range repo.db.table {
		if filter.UserID == "" || p.UserID == filter.UserID {
			plans = append(plans, clonePlan(*p))
		}
	}
	sortPlans(plans, ordering)
	return plans, nil
}

func (repo *planRepository) GetPlan(_ context.Context, id, userID string) (plan.StudyPlan, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.table[id]; ok && p.UserID == userID {
		return clonePlan(*p), nil
	}
	return plan.StudyPlan{}, plan.ErrNotFound
}

func (repo *planRepository) UpdatePlan(_ context.Context, p plan.StudyPlan) (plan.StudyPlan, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[p.ID]
	if !ok || orig.UserID != p.UserID {
		return plan.StudyPlan{}, plan.ErrNotFound
	}
	stored := clonePlan(p)
	stored.CreatedAt = orig.CreatedAt
	repo.db.table[p.ID] = &stored
	return clonePlan(stored), nil
}

func (repo *planRepository) DeletePlan(_ context.Context, id, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if p, ok := repo.db.table[id]; !ok || p.UserID != userID {
		return plan.ErrNotFound
	}
	delete(repo.db.table, id)

	// cascade
	repo.feedback.mutex.Lock()
	defer repo.feedback.mutex.Unlock()
	for fbID, fb := range repo.feedback.table {
		if fb.StudyPlanID == id {
			delete(repo.feedback.table, fbID)
		}
	}
	return nil
}

// sortPlans orders plans by the given fields, ties broken by ID for a stable output.
func sortPlans(plans []plan.StudyPlan, ordering []core.DBOrdering) {
	sort.SliceStable(plans, func(i, j int) bool {
		for _, ord := range ordering {
			c := comparePlans(plans[i], plans[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return plans[i].ID < plans[j].ID
	})
}

func comparePlans(a, b plan.StudyPlan, field string) int {
	switch field {
	case "created_at":
		return compareInt(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
	case "updated_at":
		return compareInt(a.UpdatedAt.UnixNano(), b.UpdatedAt.UnixNano())
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "topic":
		return strings.Compare(a.Topic, b.Topic)
	case "progress_percentage":
		return compareInt(int64(a.ProgressPercentage), int64(b.ProgressPercentage))
	}
	return 0
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
