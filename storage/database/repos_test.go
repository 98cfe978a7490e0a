package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
	"github.com/trezcool/studyplan/core/user"
	inmemdb "github.com/trezcool/studyplan/storage/database/inmem"
	sqlxrepos "github.com/trezcool/studyplan/storage/database/sqlx"
	"github.com/trezcool/studyplan/testutil"
)

type repos struct {
	usr  user.Repository
	plan plan.Repository
	fb   feedback.Repository
}

// backends runs fn against every repository implementation. Postgres runs only when TEST_DATABASE_HOST is set.
func backends(t *testing.T, fn func(t *testing.T, r repos)) {
	t.Run("inmem", func(t *testing.T) {
		db := inmemdb.Open()
		fn(t, repos{
			usr:  inmemdb.NewUserRepository(db),
			plan: inmemdb.NewPlanRepository(db),
			fb:   inmemdb.NewFeedbackRepository(db),
		})
	})
	t.Run("postgres", func(t *testing.T) {
		db := testutil.PrepareDB(t)
		fn(t, repos{
			usr:  sqlxrepos.NewUserRepository(db),
			plan: sqlxrepos.NewPlanRepository(db),
			fb:   sqlxrepos.NewFeedbackRepository(db),
		})
	})
}

// postgres keeps microseconds
func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

func TestUserRepository(t *testing.T) {
	backends(t, func(t *testing.T, r repos) {
		ctx := context.Background()
		ada := testutil.CreateUser(t, r.usr, "Ada Lovelace", "ada@example.com", "pwd", true, now())
		grace := testutil.CreateUser(t, r.usr, "Grace Hopper", "grace@example.com", "pwd", true, now())
		assert.NotEmpty(t, ada.ID)

		t.Run("uniqueness", func(t *testing.T) {
			assert.Equal(t, user.ErrEmailExists, r.usr.CheckEmailUniqueness(ctx, "ada@example.com"))
			assert.NoError(t, r.usr.CheckEmailUniqueness(ctx, "ada@example.com", ada))
			assert.Equal(t, user.ErrEmailExists, r.usr.CheckEmailUniqueness(ctx, "ada@example.com", grace))
			assert.NoError(t, r.usr.CheckEmailUniqueness(ctx, "nobody@example.com"))

			_, err := r.usr.CreateUser(ctx, user.User{Name: "Ada", Email: "ada@example.com", CreatedAt: now(), UpdatedAt: now()})
			assert.Equal(t, user.ErrEmailExists, err)
		})

		t.Run("get", func(t *testing.T) {
			byID, err := r.usr.GetUser(ctx, user.GetFilter{ID: ada.ID})
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", byID.Email)
			assert.NoError(t, byID.CheckPassword("pwd"))

			byEmail, err := r.usr.GetUser(ctx, user.GetFilter{Email: "grace@example.com"})
			require.NoError(t, err)
			assert.Equal(t, grace.ID, byEmail.ID)

			_, err = r.usr.GetUser(ctx, user.GetFilter{ID: "not-a-uuid"})
			assert.Equal(t, user.ErrNotFound, err)
			_, err = r.usr.GetUser(ctx, user.GetFilter{Email: "nobody@example.com"})
			assert.Equal(t, user.ErrNotFound, err)
		})

		t.Run("update", func(t *testing.T) {
			login := now()
			upd := ada
			upd.Name = "Countess of Lovelace"
			upd.LastLogin = &login
			upd.IsActive = false

			saved, err := r.usr.UpdateUser(ctx, upd)
			require.NoError(t, err)
			assert.Equal(t, "Countess of Lovelace", saved.Name)
			assert.False(t, saved.IsActive)
			require.NotNil(t, saved.LastLogin)
			assert.True(t, login.Equal(*saved.LastLogin))
		})

		t.Run("delete", func(t *testing.T) {
			require.NoError(t, r.usr.DeleteUsersByID(ctx, grace.ID))
			_, err := r.usr.GetUser(ctx, user.GetFilter{ID: grace.ID})
			assert.Equal(t, user.ErrNotFound, err)
		})
	})
}

func TestPlanRepository(t *testing.T) {
	backends(t, func(t *testing.T, r repos) {
		ctx := context.Background()
		ada := testutil.CreateUser(t, r.usr, "Ada Lovelace", "ada@example.com", "pwd", true, now())
		grace := testutil.CreateUser(t, r.usr, "Grace Hopper", "grace@example.com", "pwd", true, now())

		t0 := now()
		compilers := testutil.CreatePlan(t, r.plan, ada, "Compilers", t0.Add(-2*time.Hour))
		algebra := testutil.CreatePlan(t, r.plan, ada, "Algebra", t0)
		brewing := testutil.CreatePlan(t, r.plan, ada, "Brewing", t0.Add(-time.Hour))
		cobol := testutil.CreatePlan(t, r.plan, grace, "COBOL", t0)

		ids := func(plans []plan.StudyPlan) []string {
			res := make([]string, 0, len(plans))
			for _, p := range plans {
				res = append(res, p.ID)
			}
			return res
		}

		t.Run("query", func(t *testing.T) {
			tests := []struct {
				name     string
				ordering []core.DBOrdering
				want     []string
			}{
				{name: "newest first", ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{algebra.ID, brewing.ID, compilers.ID}},
				{name: "oldest first", ordering: []core.DBOrdering{{Field: "created_at", Ascending: true}}, want: []string{compilers.ID, brewing.ID, algebra.ID}},
				{name: "by topic", ordering: []core.DBOrdering{{Field: "topic", Ascending: true}}, want: []string{algebra.ID, brewing.ID, compilers.ID}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					plans, err := r.plan.QueryPlans(ctx, plan.QueryFilter{UserID: ada.ID}, tt.ordering)
					require.NoError(t, err)
					assert.Equal(t, tt.want, ids(plans))
				})
			}
		})

		t.Run("get", func(t *testing.T) {
			p, err := r.plan.GetPlan(ctx, compilers.ID, ada.ID)
			require.NoError(t, err)
			assert.Equal(t, compilers.Steps, p.Steps)
			assert.Equal(t, compilers.StepProgress, p.StepProgress)
			assert.Equal(t, ada.ID, p.UserID)
			assert.Equal(t, plan.Intermediate, p.Difficulty)
			assert.Equal(t, 8, p.Weeks)
			require.NotNil(t, p.EstimatedHours)
			assert.Equal(t, 112.0, *p.EstimatedHours)
			assert.Nil(t, p.CompletedAt)

			_, err = r.plan.GetPlan(ctx, cobol.ID, ada.ID)
			assert.Equal(t, plan.ErrNotFound, err)
			_, err = r.plan.GetPlan(ctx, "not-a-uuid", ada.ID)
			assert.Equal(t, plan.ErrNotFound, err)
		})

		t.Run("update", func(t *testing.T) {
			done, idx := true, 0
			upd := brewing
			require.NoError(t, upd.ApplyStepUpdate(plan.StepUpdate{StepIndex: &idx, Completed: &done}, now()))
			upd.Recompute(now())
			upd.UpdatedAt = now()

			saved, err := r.plan.UpdatePlan(ctx, upd)
			require.NoError(t, err)
			assert.Equal(t, 25, saved.ProgressPercentage)
			assert.Equal(t, 1, saved.CompletedSteps)
			assert.True(t, saved.StepProgress[0].Completed)
			assert.True(t, brewing.CreatedAt.Equal(saved.CreatedAt))

			stolen := cobol
			stolen.UserID = ada.ID
			_, err = r.plan.UpdatePlan(ctx, stolen)
			assert.Equal(t, plan.ErrNotFound, err)
		})

		t.Run("delete cascades to feedback", func(t *testing.T) {
			testutil.CreateFeedback(t, r.fb, ada, compilers, 4, true)

			assert.Equal(t, plan.ErrNotFound, r.plan.DeletePlan(ctx, compilers.ID, grace.ID))
			require.NoError(t, r.plan.DeletePlan(ctx, compilers.ID, ada.ID))

			_, err := r.plan.GetPlan(ctx, compilers.ID, ada.ID)
			assert.Equal(t, plan.ErrNotFound, err)
			_, err = r.fb.GetFeedback(ctx, ada.ID, compilers.ID)
			assert.Equal(t, feedback.ErrNotFound, err)
		})
	})
}

func TestFeedbackRepository(t *testing.T) {
	backends(t, func(t *testing.T, r repos) {
		ctx := context.Background()
		ada := testutil.CreateUser(t, r.usr, "Ada Lovelace", "ada@example.com", "pwd", true, now())
		p1 := testutil.CreatePlan(t, r.plan, ada, "Compilers")
		p2 := testutil.CreatePlan(t, r.plan, ada, "Brewing")

		first := testutil.CreateFeedback(t, r.fb, ada, p1, 4, true)
		assert.NotEmpty(t, first.ID)

		t.Run("upsert replaces", func(t *testing.T) {
			suggestions := "more exercises"
			second, err := r.fb.UpsertFeedback(ctx, feedback.Feedback{
				UserID:      ada.ID,
				StudyPlanID: p1.ID,
				Rating:      2,
				Feedback:    "Too hard",
				Helpful:     false,
				Suggestions: &suggestions,
				CreatedAt:   now(),
				UpdatedAt:   now(),
			})
			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID)
			assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
			assert.Equal(t, 2, second.Rating)
			assert.False(t, second.Helpful)
			require.NotNil(t, second.Suggestions)
			assert.Equal(t, suggestions, *second.Suggestions)
		})

		t.Run("get", func(t *testing.T) {
			fb, err := r.fb.GetFeedback(ctx, ada.ID, p1.ID)
			require.NoError(t, err)
			assert.Equal(t, "Too hard", fb.Feedback)

			_, err = r.fb.GetFeedback(ctx, ada.ID, p2.ID)
			assert.Equal(t, feedback.ErrNotFound, err)
			_, err = r.fb.GetFeedback(ctx, ada.ID, "not-a-uuid")
			assert.Equal(t, feedback.ErrNotFound, err)
		})

		t.Run("query", func(t *testing.T) {
			testutil.CreateFeedback(t, r.fb, ada, p2, 5, true)
			fbs, err := r.fb.QueryFeedback(ctx, ada.ID)
			require.NoError(t, err)
			assert.Len(t, fbs, 2)
		})
	})
}
