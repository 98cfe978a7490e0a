package plan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyplan/core"
)

func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }
func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func newTestPlan(steps ...string) StudyPlan {
	p := StudyPlan{ID: "plan-1", UserID: "user-1", Steps: steps}
	p.EnsureStepProgress()
	p.Recompute(time.Now())
	return p
}

func TestStudyPlan_EnsureStepProgress(t *testing.T) {
	p := StudyPlan{Steps: []string{"a", "b", "c"}}
	p.EnsureStepProgress()
	require.Len(t, p.StepProgress, 3)
	for i, sp := range p.StepProgress {
		assert.Equal(t, StepProgress{StepIndex: i}, sp)
	}

	// existing records are kept
	p.StepProgress[1].Notes = "keep me"
	p.EnsureStepProgress()
	assert.Equal(t, "keep me", p.StepProgress[1].Notes)

	empty := StudyPlan{}
	empty.EnsureStepProgress()
	assert.Empty(t, empty.StepProgress)
}

func TestStudyPlan_Recompute_idempotent(t *testing.T) {
	now := time.Now()
	p := newTestPlan("a", "b", "c")
	require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)}, now))

	p.Recompute(now)
	first := p
	p.Recompute(now.Add(time.Hour))

	assert.Equal(t, first.TotalSteps, p.TotalSteps)
	assert.Equal(t, first.CompletedSteps, p.CompletedSteps)
	assert.Equal(t, first.ProgressPercentage, p.ProgressPercentage)
	assert.Equal(t, first.IsCompleted, p.IsCompleted)
	assert.Equal(t, first.CompletedAt, p.CompletedAt)
	assert.Equal(t, 33, p.ProgressPercentage)
}

func TestStudyPlan_Recompute_completionBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	p := newTestPlan("s0", "s1", "s2", "s3", "s4")

	for i := 0; i < 4; i++ {
		require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(i), Completed: boolPtr(true)}, now))
		p.Recompute(now)
	}
	assert.Equal(t, 80, p.ProgressPercentage)
	assert.Equal(t, 4, p.CompletedSteps)
	assert.Equal(t, 5, p.TotalSteps)
	assert.False(t, p.IsCompleted)
	assert.Nil(t, p.CompletedAt)

	doneAt := now.Add(time.Hour)
	require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(4), Completed: boolPtr(true)}, doneAt))
	p.Recompute(doneAt)
	assert.Equal(t, 100, p.ProgressPercentage)
	assert.True(t, p.IsCompleted)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(doneAt))
}

func TestStudyPlan_Recompute_zeroSteps(t *testing.T) {
	p := StudyPlan{}
	assert.NotPanics(t, func() { p.Recompute(time.Now()) })
	assert.Equal(t, 0, p.ProgressPercentage)
	assert.Equal(t, 0, p.TotalSteps)
	assert.False(t, p.IsCompleted)
	assert.Nil(t, p.CompletedAt)
}

func TestStudyPlan_ApplyStepUpdate_lazyInit(t *testing.T) {
	now := time.Now()
	p := StudyPlan{Steps: []string{"a", "b", "c"}}

	require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(1), Completed: boolPtr(true)}, now))
	p.Recompute(now)

	require.Len(t, p.StepProgress, 3)
	for i, sp := range p.StepProgress {
		assert.Equal(t, i, sp.StepIndex)
		assert.Equal(t, i == 1, sp.Completed)
		assert.Equal(t, i == 1, sp.CompletedAt != nil)
	}
	assert.Equal(t, 1, p.CompletedSteps)
	assert.Equal(t, 33, p.ProgressPercentage)
}

func TestStudyPlan_ApplyStepUpdate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	tests := []struct {
		name    string
		setup   func(p *StudyPlan)
		upd     StepUpdate
		wantErr bool
		check   func(t *testing.T, sp StepProgress)
	}{
		{name: "missing stepIndex", upd: StepUpdate{Completed: boolPtr(true)}, wantErr: true},
		{name: "negative stepIndex", upd: StepUpdate{StepIndex: intPtr(-1)}, wantErr: true},
		{name: "out of range stepIndex", upd: StepUpdate{StepIndex: intPtr(3)}, wantErr: true},
		{
			name: "complete sets completedAt",
			upd:  StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)},
			check: func(t *testing.T, sp StepProgress) {
				assert.True(t, sp.Completed)
				require.NotNil(t, sp.CompletedAt)
				assert.True(t, sp.CompletedAt.Equal(t1))
			},
		},
		{
			name: "re-completing keeps first completedAt",
			setup: func(p *StudyPlan) {
				_ = p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)}, t0)
			},
			upd: StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)},
			check: func(t *testing.T, sp StepProgress) {
				require.NotNil(t, sp.CompletedAt)
				assert.True(t, sp.CompletedAt.Equal(t0))
			},
		},
		{
			name: "un-complete clears completedAt",
			setup: func(p *StudyPlan) {
				_ = p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)}, t0)
			},
			upd: StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(false)},
			check: func(t *testing.T, sp StepProgress) {
				assert.False(t, sp.Completed)
				assert.Nil(t, sp.CompletedAt)
			},
		},
		{
			name: "notes only keeps completion",
			setup: func(p *StudyPlan) {
				_ = p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)}, t0)
			},
			upd: StepUpdate{StepIndex: intPtr(0), Notes: strPtr("read chapter 2")},
			check: func(t *testing.T, sp StepProgress) {
				assert.True(t, sp.Completed)
				require.NotNil(t, sp.CompletedAt)
				assert.True(t, sp.CompletedAt.Equal(t0))
				assert.Equal(t, "read chapter 2", sp.Notes)
			},
		},
		{
			name: "absent notes are left unchanged",
			setup: func(p *StudyPlan) {
				_ = p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(0), Notes: strPtr("keep")}, t0)
			},
			upd: StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true)},
			check: func(t *testing.T, sp StepProgress) {
				assert.Equal(t, "keep", sp.Notes)
			},
		},
		{
			name: "missing record is appended",
			setup: func(p *StudyPlan) {
				p.StepProgress = []StepProgress{{StepIndex: 1}, {StepIndex: 2}}
			},
			upd: StepUpdate{StepIndex: intPtr(0), Completed: boolPtr(true), Notes: strPtr("late")},
			check: func(t *testing.T, sp StepProgress) {
				assert.True(t, sp.Completed)
				assert.NotNil(t, sp.CompletedAt)
				assert.Equal(t, "late", sp.Notes)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPlan("a", "b", "c")
			if tt.setup != nil {
				tt.setup(&p)
			}

			err := p.ApplyStepUpdate(tt.upd, t1)
			if tt.wantErr {
				var vErr *core.ValidationError
				require.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)

			require.Len(t, p.StepProgress, 3)
			seen := make(map[int]bool, 3)
			for _, sp := range p.StepProgress {
				assert.False(t, seen[sp.StepIndex], "duplicate stepIndex %d", sp.StepIndex)
				seen[sp.StepIndex] = true
			}
			for _, sp := range p.StepProgress {
				if sp.StepIndex == *tt.upd.StepIndex {
					tt.check(t, sp)
				}
			}
		})
	}
}

func TestStudyPlan_Recompute_completedAtIsSticky(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	p := newTestPlan("a", "b")

	for i := 0; i < 2; i++ {
		require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(i), Completed: boolPtr(true)}, t0))
	}
	p.Recompute(t0)
	require.True(t, p.IsCompleted)
	require.NotNil(t, p.CompletedAt)

	// un-marking a step does not clear the plan-level completedAt
	t1 := t0.Add(24 * time.Hour)
	require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(1), Completed: boolPtr(false)}, t1))
	p.Recompute(t1)
	assert.False(t, p.IsCompleted)
	assert.Equal(t, 50, p.ProgressPercentage)
	require.NotNil(t, p.CompletedAt)
	assert.True(t, p.CompletedAt.Equal(t0))

	// completing again does not overwrite it either
	t2 := t1.Add(24 * time.Hour)
	require.NoError(t, p.ApplyStepUpdate(StepUpdate{StepIndex: intPtr(1), Completed: boolPtr(true)}, t2))
	p.Recompute(t2)
	assert.True(t, p.IsCompleted)
	assert.True(t, p.CompletedAt.Equal(t0))
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	req := GenerateRequest{Topic: "  Rust  "}
	req.Normalize()
	content := SynthesizeFallback(req)

	p := New("user-1", req, content, SourceSmartMock, now)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "Rust", p.Topic)
	assert.Equal(t, Intermediate, p.Difficulty)
	assert.Equal(t, 2.0, p.DailyHours)
	assert.Equal(t, 8, p.Weeks)
	assert.Equal(t, SourceSmartMock, p.Source)
	assert.Len(t, p.StepProgress, 4)
	assert.Equal(t, 4, p.TotalSteps)
	assert.Equal(t, 0, p.ProgressPercentage)
	assert.False(t, p.IsCompleted)
	assert.Equal(t, now, p.CreatedAt)
	require.NotNil(t, p.EstimatedHours)
	assert.Equal(t, 112.0, *p.EstimatedHours)
}
