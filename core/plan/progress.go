package plan

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
)

var errInvalidStepIndex = errors.New("invalid step index")

// EnsureStepProgress initializes one incomplete record per step when the progress set is empty.
func (p *StudyPlan) EnsureStepProgress() {
	if len(p.StepProgress) > 0 || len(p.Steps) == 0 {
		return
	}
	p.StepProgress = make([]StepProgress, len(p.Steps))
	for i := range p.Steps {
		p.StepProgress[i] = StepProgress{StepIndex: i}
	}
}

// ApplyStepUpdate applies a single-step toggle. Derived fields are left to Recompute.
func (p *StudyPlan) ApplyStepUpdate(upd StepUpdate, now time.Time) error {
	if upd.StepIndex == nil || *upd.StepIndex < 0 {
		return core.NewValidationError(errInvalidStepIndex, core.FieldError{
			Field: "stepIndex",
			Error: "valid stepIndex is required",
		})
	}
	idx := *upd.StepIndex
	if idx >= len(p.Steps) {
		return core.NewValidationError(errInvalidStepIndex, core.FieldError{
			Field: "stepIndex",
			Error: "stepIndex is out of range",
		})
	}

	p.EnsureStepProgress()
	now = now.UTC()

	for i := range p.StepProgress {
		sp := &p.StepProgress[i]
		if sp.StepIndex != idx {
			continue
		}
		if upd.Completed != nil {
			if *upd.Completed {
				if !sp.Completed || sp.CompletedAt == nil {
					sp.CompletedAt = &now
				}
			} else {
				sp.CompletedAt = nil
			}
			sp.Completed = *upd.Completed
		}
		if upd.Notes != nil {
			sp.Notes = *upd.Notes
		}
		return nil
	}

	// never initialized
	sp := StepProgress{StepIndex: idx}
	if upd.Completed != nil && *upd.Completed {
		sp.Completed = true
		sp.CompletedAt = &now
	}
	if upd.Notes != nil {
		sp.Notes = *upd.Notes
	}
	p.StepProgress = append(p.StepProgress, sp)
	sort.Slice(p.StepProgress, func(i, j int) bool { return p.StepProgress[i].StepIndex < p.StepProgress[j].StepIndex })
	return nil
}

// Recompute derives the aggregate progress fields from the step progress set.
// The plan-level CompletedAt is stamped the first time the plan is completed and never cleared.
func (p *StudyPlan) Recompute(now time.Time) {
	p.TotalSteps = len(p.Steps)

	completed := 0
	for _, sp := range p.StepProgress {
		if sp.Completed {
			completed++
		}
	}
	p.CompletedSteps = completed

	if p.TotalSteps > 0 {
		p.ProgressPercentage = int(math.Round(float64(completed) / float64(p.TotalSteps) * 100))
	} else {
		p.ProgressPercentage = 0
	}

	p.IsCompleted = p.TotalSteps > 0 && completed == p.TotalSteps
	if p.IsCompleted && p.CompletedAt == nil {
		t := now.UTC()
		p.CompletedAt = &t
	}
}

// Progress is the step-update response.
type Progress struct {
	ID                 string         `json:"id"`
	ProgressPercentage int            `json:"progressPercentage"`
	CompletedSteps     int            `json:"completedSteps"`
	TotalSteps         int            `json:"totalSteps"`
	IsCompleted        bool           `json:"isCompleted"`
	CompletedAt        *time.Time     `json:"completedAt"`
	StepProgress       []StepProgress `json:"stepProgress"`
}

func (p StudyPlan) Progress() Progress {
	return Progress{
		ID:                 p.ID,
		ProgressPercentage: p.ProgressPercentage,
		CompletedSteps:     p.CompletedSteps,
		TotalSteps:         p.TotalSteps,
		IsCompleted:        p.IsCompleted,
		CompletedAt:        p.CompletedAt,
		StepProgress:       p.StepProgress,
	}
}
