package plan

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound = errors.New("study plan not found")

	// OrderingFields are the fields plans can be ordered by.
	OrderingFields = map[string]bool{
		"created_at":          true,
		"updated_at":          true,
		"title":               true,
		"topic":               true,
		"progress_percentage": true,
	}
	defaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
)

type (
	QueryFilter struct {
		UserID string
	}

	Repository interface {
		CreatePlan(ctx context.Context, p StudyPlan) (StudyPlan, error)
		QueryPlans(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]StudyPlan, error)
		// GetPlan returns ErrNotFound unless the plan exists and is owned by userID.
		GetPlan(ctx context.Context, id, userID string) (StudyPlan, error)
		UpdatePlan(ctx context.Context, p StudyPlan) (StudyPlan, error)
		DeletePlan(ctx context.Context, id, userID string) error
	}

	Service interface {
		Generate(ctx context.Context, usr user.User, req GenerateRequest) (StudyPlan, error)
		Query(ctx context.Context, userID string, ordering []core.DBOrdering) ([]StudyPlan, error)
		Get(ctx context.Context, id, userID string) (StudyPlan, error)
		UpdateStep(ctx context.Context, usr user.User, id string, upd StepUpdate) (StudyPlan, error)
		Delete(ctx context.Context, id, userID string) error
	}

	service struct {
		repo    Repository
		synth   *Synthesizer
		mailSvc core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, synth *Synthesizer, mailSvc core.EmailService) Service {
	return &service{repo: repo, synth: synth, mailSvc: mailSvc}
}

func (svc *service) Generate(ctx context.Context, usr user.User, req GenerateRequest) (StudyPlan, error) {
	req.Normalize()
	if req.Topic == "" {
		return StudyPlan{}, core.NewValidationError(
			errors.New("topic is required"),
			core.FieldError{Field: "topic", Error: "topic is required"},
		)
	}

	content, source := svc.synth.Synthesize(ctx, req)
	p := New(usr.ID, req, content, source, NowFunc())

	p, err := svc.repo.CreatePlan(ctx, p)
	if err != nil {
		return StudyPlan{}, errors.Wrap(err, "creating study plan")
	}
	return p, nil
}

func (svc *service) Query(ctx context.Context, userID string, ordering []core.DBOrdering) ([]StudyPlan, error) {
	ordering = CleanOrdering(ordering)
	plans, err := svc.repo.QueryPlans(ctx, QueryFilter{UserID: userID}, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying study plans")
	}
	return plans, nil
}

func (svc *service) Get(ctx context.Context, id, userID string) (StudyPlan, error) {
	return svc.repo.GetPlan(ctx, id, userID)
}

// UpdateStep applies upd to the user's plan and recomputes its progress before saving.
// A congratulation email is sent the first time the plan is completed.
func (svc *service) UpdateStep(ctx context.Context, usr user.User, id string, upd StepUpdate) (StudyPlan, error) {
	p, err := svc.repo.GetPlan(ctx, id, usr.ID)
	if err != nil {
		return StudyPlan{}, err
	}

	now := NowFunc()
	wasCompleted := p.CompletedAt != nil
	if err = p.ApplyStepUpdate(upd, now); err != nil {
		return StudyPlan{}, err
	}
	p.Recompute(now)
	p.UpdatedAt = now.UTC()

	if p, err = svc.repo.UpdatePlan(ctx, p); err != nil {
		return StudyPlan{}, errors.Wrap(err, "updating study plan")
	}
	if !wasCompleted && p.CompletedAt != nil {
		svc.sendCompletedMail(usr, p)
	}
	return p, nil
}

func (svc *service) Delete(ctx context.Context, id, userID string) error {
	return svc.repo.DeletePlan(ctx, id, userID)
}

func (svc *service) sendCompletedMail(usr user.User, p StudyPlan) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("You completed %q", p.Title),
		TemplateName: "plan_completed",
		TemplateData: map[string]interface{}{
			"Name":       usr.Name,
			"Title":      p.Title,
			"TotalSteps": p.TotalSteps,
		},
	})
}

// CleanOrdering drops unknown fields; the default is newest first.
func CleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	if len(cleaned) == 0 {
		return defaultOrdering
	}
	return cleaned
}
