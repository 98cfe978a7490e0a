package feedback

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/plan"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("feedback not found")
)

type Feedback struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	StudyPlanID string    `json:"studyPlanId"`
	Rating      int       `json:"rating"`
	Feedback    string    `json:"feedback"`
	Helpful     bool      `json:"helpful"`
	Suggestions *string   `json:"suggestions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updatedAt"` // UTC
}

// SubmitFeedback creates or replaces the user's feedback on a plan. Helpful defaults to true.
type SubmitFeedback struct {
	StudyPlanID string  `json:"studyPlanId" validate:"required"`
	Rating      int     `json:"rating" validate:"required,gte=1,lte=5"`
	Feedback    string  `json:"feedback" validate:"notblank,max=1000"`
	Helpful     *bool   `json:"helpful"`
	Suggestions *string `json:"suggestions" validate:"omitempty,max=500"`
}

func (sf *SubmitFeedback) Validate(validate *validator.Validate) error {
	sf.StudyPlanID = core.CleanString(sf.StudyPlanID)
	sf.Feedback = core.CleanString(sf.Feedback)
	if sf.Suggestions != nil {
		sf.Suggestions = core.StringPtr(*sf.Suggestions)
	}
	return validate.Struct(sf)
}

type (
	Repository interface {
		// UpsertFeedback inserts fb or replaces the existing (user, plan) feedback, keeping its ID and CreatedAt.
		UpsertFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetFeedback(ctx context.Context, userID, planID string) (Feedback, error)
		QueryFeedback(ctx context.Context, userID string) ([]Feedback, error)
	}

	Service interface {
		Submit(ctx context.Context, userID string, data SubmitFeedback) (Feedback, error)
		// Get returns ErrNotFound when the user left no feedback on the plan.
		Get(ctx context.Context, userID, planID string) (Feedback, error)
		QueryByUser(ctx context.Context, userID string) ([]Feedback, error)
	}

	service struct {
		repo    Repository
		planSvc plan.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, planSvc plan.Service) Service {
	return &service{repo: repo, planSvc: planSvc}
}

func (svc *service) Submit(ctx context.Context, userID string, data SubmitFeedback) (Feedback, error) {
	// the plan must exist and belong to the user
	if _, err := svc.planSvc.Get(ctx, data.StudyPlanID, userID); err != nil {
		return Feedback{}, err
	}

	helpful := true
	if data.Helpful != nil {
		helpful = *data.Helpful
	}
	now := NowFunc().UTC()
	fb := Feedback{
		ID:          uuid.NewString(),
		UserID:      userID,
		StudyPlanID: data.StudyPlanID,
		Rating:      data.Rating,
		Feedback:    data.Feedback,
		Helpful:     helpful,
		Suggestions: data.Suggestions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	fb, err := svc.repo.UpsertFeedback(ctx, fb)
	if err != nil {
		return Feedback{}, errors.Wrap(err, "saving feedback")
	}
	return fb, nil
}

func (svc *service) Get(ctx context.Context, userID, planID string) (Feedback, error) {
	return svc.repo.GetFeedback(ctx, userID, planID)
}

func (svc *service) QueryByUser(ctx context.Context, userID string) ([]Feedback, error) {
	fbs, err := svc.repo.QueryFeedback(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	return fbs, nil
}
