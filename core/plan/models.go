package plan

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/studyplan/core"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

var Difficulties = []Difficulty{Beginner, Intermediate, Advanced}

func (d Difficulty) Valid() bool {
	for _, diff := range Difficulties {
		if d == diff {
			return true
		}
	}
	return false
}

// Source tells which strategy produced a plan's content.
type Source string

const (
	SourceOpenAI    Source = "openai"
	SourceSmartMock Source = "smart-mock"
	SourceLegacyAI  Source = "ai" // older records
)

const (
	defaultDailyHours = 2.0
	defaultDuration   = 8
)

type StudyPlan struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	Topic       string     `json:"topic"`
	Title       string     `json:"title"`
	Duration    string     `json:"duration"` // label, e.g. "8 Weeks"
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	DailyHours  float64    `json:"dailyHours"`
	Weeks       int        `json:"weeks"`
	Source      Source     `json:"source"`

	Steps          []string       `json:"steps"`
	EstimatedHours *float64       `json:"estimatedHours,omitempty"`
	StepProgress   []StepProgress `json:"stepProgress"`

	// derived by Recompute
	TotalSteps         int        `json:"totalSteps"`
	CompletedSteps     int        `json:"completedSteps"`
	ProgressPercentage int        `json:"progressPercentage"`
	IsCompleted        bool       `json:"isCompleted"`
	CompletedAt        *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

type StepProgress struct {
	StepIndex   int        `json:"stepIndex"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	Notes       string     `json:"notes"`
}

// StepUpdate toggles a single step. Nil fields are left unchanged.
type StepUpdate struct {
	StepIndex *int    `json:"stepIndex" validate:"required,gte=0"`
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes" validate:"omitempty,max=1000"`
}

func (su StepUpdate) Validate(validate *validator.Validate) error { return validate.Struct(su) }

// Summary is the list representation of a StudyPlan.
type Summary struct {
	ID                 string     `json:"id"`
	Topic              string     `json:"topic"`
	Title              string     `json:"title"`
	Duration           string     `json:"duration"`
	Difficulty         Difficulty `json:"difficulty"`
	Steps              []string   `json:"steps"`
	Source             Source     `json:"source"`
	ProgressPercentage int        `json:"progressPercentage"`
	IsCompleted        bool       `json:"isCompleted"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (p StudyPlan) Summary() Summary {
	return Summary{
		ID:                 p.ID,
		Topic:              p.Topic,
		Title:              p.Title,
		Duration:           p.Duration,
		Difficulty:         p.Difficulty,
		Steps:              p.Steps,
		Source:             p.Source,
		ProgressPercentage: p.ProgressPercentage,
		IsCompleted:        p.IsCompleted,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

// GenerateRequest asks for a new plan. Absent fields take defaults in Normalize.
type GenerateRequest struct {
	Topic      string   `json:"topic" validate:"notblank,max=200"`
	DailyHours *float64 `json:"dailyHours" validate:"omitempty,gte=1,lte=12"`
	Difficulty string   `json:"difficulty" validate:"difficulty"`
	Duration   *int     `json:"duration" validate:"omitempty,gte=1,lte=52"`
}

// Normalize trims the topic and fills in defaults: 2 daily hours, intermediate, 8 weeks.
// An unknown difficulty falls back to intermediate.
func (r *GenerateRequest) Normalize() {
	r.Topic = core.CleanString(r.Topic)
	if r.DailyHours == nil || *r.DailyHours == 0 {
		h := defaultDailyHours
		r.DailyHours = &h
	}
	if d := Difficulty(core.CleanString(r.Difficulty, true /* lower */)); d.Valid() {
		r.Difficulty = string(d)
	} else {
		r.Difficulty = string(Intermediate)
	}
	if r.Duration == nil || *r.Duration == 0 {
		d := defaultDuration
		r.Duration = &d
	}
}

func (r *GenerateRequest) Validate(validate *validator.Validate) error {
	r.Normalize()
	return validate.Struct(r)
}

func (r GenerateRequest) dailyHours() float64 {
	if r.DailyHours == nil || *r.DailyHours == 0 {
		return defaultDailyHours
	}
	return *r.DailyHours
}

func (r GenerateRequest) duration() int {
	if r.Duration == nil || *r.Duration == 0 {
		return defaultDuration
	}
	return *r.Duration
}

func (r GenerateRequest) difficulty() Difficulty {
	if d := Difficulty(r.Difficulty); d.Valid() {
		return d
	}
	return Intermediate
}

// Content is the synthesized part of a plan.
type Content struct {
	Title          string
	Duration       string
	Description    string
	EstimatedHours *float64
	Steps          []string
}

// New builds a plan owned by userID from synthesized content, with every step incomplete.
func New(userID string, req GenerateRequest, content Content, source Source, now time.Time) StudyPlan {
	now = now.UTC()
	p := StudyPlan{
		ID:             uuid.NewString(),
		UserID:         userID,
		Topic:          core.CleanString(req.Topic),
		Title:          content.Title,
		Duration:       content.Duration,
		Description:    content.Description,
		Difficulty:     req.difficulty(),
		DailyHours:     req.dailyHours(),
		Weeks:          req.duration(),
		Source:         source,
		Steps:          content.Steps,
		EstimatedHours: content.EstimatedHours,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	p.EnsureStepProgress()
	p.Recompute(now)
	return p
}
