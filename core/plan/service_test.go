package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
	emailsvc "github.com/trezcool/studyplan/services/email"
	logsvc "github.com/trezcool/studyplan/services/logger"
	inmemdb "github.com/trezcool/studyplan/storage/database/inmem"
	"github.com/trezcool/studyplan/testutil"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) GenerateText(context.Context, string, string) (string, error) {
	return g.text, g.err
}

type testEnv struct {
	svc     plan.Service
	repo    plan.Repository
	usrRepo user.Repository
	mailSvc *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T, gen plan.Generator) testEnv {
	conf := testutil.NewConfig()
	logger := logsvc.NewNop()
	db := inmemdb.Open()
	repo := inmemdb.NewPlanRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	return testEnv{
		svc:     plan.NewService(repo, plan.NewSynthesizer(gen, logger), mailSvc),
		repo:    repo,
		usrRepo: inmemdb.NewUserRepository(db),
		mailSvc: mailSvc,
	}
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()

	t.Run("blank topic", func(t *testing.T) {
		env := setup(t, nil)
		usr := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)

		_, err := env.svc.Generate(ctx, usr, plan.GenerateRequest{Topic: "   "})
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "topic", vErr.Fields[0].Field)
	})

	t.Run("fallback", func(t *testing.T) {
		env := setup(t, nil)
		usr := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)

		p, err := env.svc.Generate(ctx, usr, plan.GenerateRequest{Topic: " Go "})
		require.NoError(t, err)
		assert.Equal(t, usr.ID, p.UserID)
		assert.Equal(t, "Go", p.Topic)
		assert.Equal(t, plan.SourceSmartMock, p.Source)
		assert.Len(t, p.StepProgress, len(p.Steps))

		stored, err := env.repo.GetPlan(ctx, p.ID, usr.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Steps, stored.Steps)
	})

	t.Run("delegated", func(t *testing.T) {
		env := setup(t, stubGenerator{text: `{"title":"Go in Depth","duration":"6 Weeks","description":"Deep dive",
			"estimatedHours":84,"steps":["Week 1-2: Basics","Week 3-4: Concurrency","Week 5-6: Tooling"]}`})
		usr := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)

		duration := 6
		p, err := env.svc.Generate(ctx, usr, plan.GenerateRequest{Topic: "Go", Difficulty: "advanced", Duration: &duration})
		require.NoError(t, err)
		assert.Equal(t, plan.SourceOpenAI, p.Source)
		assert.Equal(t, "Go in Depth", p.Title)
		assert.Equal(t, plan.Advanced, p.Difficulty)
		assert.Equal(t, 3, p.TotalSteps)
	})
}

func TestService_Query(t *testing.T) {
	env := setup(t, nil)
	ada := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)
	grace := testutil.CreateUser(t, env.usrRepo, "Grace Hopper", "grace@example.com", "pwd", true)

	now := time.Now()
	older := testutil.CreatePlan(t, env.repo, ada, "Zoology", now.Add(-time.Hour))
	newer := testutil.CreatePlan(t, env.repo, ada, "Algebra", now)
	testutil.CreatePlan(t, env.repo, grace, "COBOL", now)

	plans, err := env.svc.Query(context.Background(), ada.ID, nil)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, newer.ID, plans[0].ID)
	assert.Equal(t, older.ID, plans[1].ID)

	plans, err = env.svc.Query(context.Background(), ada.ID, []core.DBOrdering{{Field: "password"}, {Field: "topic"}})
	require.NoError(t, err)
	assert.Equal(t, older.ID, plans[0].ID, "ordered by topic descending")
}

func TestCleanOrdering(t *testing.T) {
	tests := []struct {
		name string
		in   []core.DBOrdering
		want []core.DBOrdering
	}{
		{name: "default", want: []core.DBOrdering{{Field: "created_at"}}},
		{name: "unknown dropped", in: []core.DBOrdering{{Field: "user_id"}, {Field: "title", Ascending: true}}, want: []core.DBOrdering{{Field: "title", Ascending: true}}},
		{name: "all unknown", in: []core.DBOrdering{{Field: "1; DROP TABLE users"}}, want: []core.DBOrdering{{Field: "created_at"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, plan.CleanOrdering(tt.in))
		})
	}
}

func TestService_UpdateStep(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()
	ada := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)
	grace := testutil.CreateUser(t, env.usrRepo, "Grace Hopper", "grace@example.com", "pwd", true)
	p := testutil.CreatePlan(t, env.repo, ada, "Compilers")

	done, undone := true, false
	step := func(i int) *int { return &i }

	_, err := env.svc.UpdateStep(ctx, grace, p.ID, plan.StepUpdate{StepIndex: step(0), Completed: &done})
	assert.Equal(t, plan.ErrNotFound, err)

	_, err = env.svc.UpdateStep(ctx, ada, p.ID, plan.StepUpdate{StepIndex: step(len(p.Steps)), Completed: &done})
	_, ok := err.(*core.ValidationError)
	assert.True(t, ok, "got %v", err)

	for i := range p.Steps {
		p, err = env.svc.UpdateStep(ctx, ada, p.ID, plan.StepUpdate{StepIndex: step(i), Completed: &done})
		require.NoError(t, err)
	}
	assert.True(t, p.IsCompleted)
	assert.Equal(t, 100, p.ProgressPercentage)
	require.NotNil(t, p.CompletedAt)
	require.Len(t, env.mailSvc.SentMessages(), 1)
	assert.Equal(t, "plan_completed", env.mailSvc.SentMessages()[0].TemplateName)
	assert.Contains(t, env.mailSvc.SentMessages()[0].TextContent, p.Title)

	// toggling back and forth keeps the first completion and sends no more mails
	completedAt := *p.CompletedAt
	p, err = env.svc.UpdateStep(ctx, ada, p.ID, plan.StepUpdate{StepIndex: step(0), Completed: &undone})
	require.NoError(t, err)
	assert.False(t, p.IsCompleted)
	p, err = env.svc.UpdateStep(ctx, ada, p.ID, plan.StepUpdate{StepIndex: step(0), Completed: &done})
	require.NoError(t, err)
	assert.True(t, completedAt.Equal(*p.CompletedAt))
	assert.Len(t, env.mailSvc.SentMessages(), 1)

	stored, err := env.svc.Get(ctx, p.ID, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, p.StepProgress, stored.StepProgress)
}

func TestService_Delete(t *testing.T) {
	env := setup(t, nil)
	ctx := context.Background()
	ada := testutil.CreateUser(t, env.usrRepo, "Ada Lovelace", "ada@example.com", "pwd", true)
	p := testutil.CreatePlan(t, env.repo, ada, "Compilers")

	assert.Equal(t, plan.ErrNotFound, env.svc.Delete(ctx, p.ID, "someone-else"))
	require.NoError(t, env.svc.Delete(ctx, p.ID, ada.ID))
	_, err := env.svc.Get(ctx, p.ID, ada.ID)
	assert.Equal(t, plan.ErrNotFound, err)
}
