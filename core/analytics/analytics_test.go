package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
)

func TestCompute_empty(t *testing.T) {
	r := Compute(nil, nil, time.Now())

	assert.Equal(t, Overview{}, r.Overview)
	assert.Equal(t, map[string]int{"beginner": 0, "intermediate": 0, "advanced": 0}, r.Difficulty)
	assert.Equal(t, map[string]int{"openai": 0, "smart-mock": 0}, r.Source)
	assert.Equal(t, FeedbackStats{}, r.Feedback)
	assert.Empty(t, r.TopTopics)
	require.Len(t, r.Activity.WeeklyProgress, 4)
	for i, wp := range r.Activity.WeeklyProgress {
		assert.Equal(t, WeeklyProgress{Week: []string{"Week 1", "Week 2", "Week 3", "Week 4"}[i]}, wp)
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	hours := func(h float64) *float64 { return &h }
	at := func(d time.Duration) *time.Time { t := now.Add(-d); return &t }

	plans := []plan.StudyPlan{
		{ // old, completed long ago
			Topic: "Go", Difficulty: plan.Beginner, Source: plan.SourceSmartMock,
			TotalSteps: 4, CompletedSteps: 4, ProgressPercentage: 100, IsCompleted: true,
			CompletedAt: at(40 * day), EstimatedHours: hours(56), CreatedAt: now.Add(-60 * day),
		},
		{ // week 1 bucket, completed in week 4 bucket
			Topic: "Rust", Difficulty: plan.Advanced, Source: plan.SourceOpenAI,
			TotalSteps: 4, CompletedSteps: 4, ProgressPercentage: 100, IsCompleted: true,
			CompletedAt: at(2 * day), EstimatedHours: hours(252), CreatedAt: now.Add(-25 * day),
		},
		{ // week 3 bucket
			Topic: "Go", Difficulty: plan.Intermediate, Source: plan.SourceSmartMock,
			TotalSteps: 4, CompletedSteps: 1, ProgressPercentage: 25,
			EstimatedHours: hours(112), CreatedAt: now.Add(-10 * day),
		},
		{ // legacy record, week 4 bucket
			Topic: "SQL", Difficulty: plan.Intermediate, Source: plan.SourceLegacyAI,
			TotalSteps: 5, CreatedAt: now.Add(-1 * day),
		},
	}
	fbs := []feedback.Feedback{
		{Rating: 5, Helpful: true},
		{Rating: 4, Helpful: true},
		{Rating: 4, Helpful: false},
	}

	r := Compute(plans, fbs, now)

	assert.Equal(t, Overview{
		TotalPlans:          4,
		CompletedPlans:      2,
		InProgressPlans:     2,
		TotalSteps:          17,
		CompletedSteps:      9,
		AverageProgress:     56, // (100+100+25+0)/4 = 56.25
		TotalEstimatedHours: 420,
		AverageHoursPerPlan: 105,
	}, r.Overview)
	assert.Equal(t, map[string]int{"beginner": 1, "intermediate": 2, "advanced": 1}, r.Difficulty)
	assert.Equal(t, map[string]int{"openai": 1, "smart-mock": 2}, r.Source)
	assert.Equal(t, FeedbackStats{TotalFeedbacks: 3, AverageRating: 4.3, HelpfulCount: 2, HelpfulPercentage: 67}, r.Feedback)

	assert.Equal(t, 3, r.Activity.RecentPlans)
	assert.Equal(t, 1, r.Activity.RecentCompletions)
	assert.Equal(t, []WeeklyProgress{
		{Week: "Week 1", PlansCreated: 1},
		{Week: "Week 2"},
		{Week: "Week 3", PlansCreated: 1},
		{Week: "Week 4", PlansCreated: 1, PlansCompleted: 1},
	}, r.Activity.WeeklyProgress)

	assert.Equal(t, []TopicCount{{Topic: "Go", Count: 2}, {Topic: "Rust", Count: 1}, {Topic: "SQL", Count: 1}}, r.TopTopics)
}

func TestCompute_topTopicsLimit(t *testing.T) {
	now := time.Now()
	var plans []plan.StudyPlan
	for _, topic := range []string{"a", "b", "c", "d", "e", "f", "f"} {
		plans = append(plans, plan.StudyPlan{Topic: topic, CreatedAt: now})
	}

	r := Compute(plans, nil, now)
	require.Len(t, r.TopTopics, 5)
	assert.Equal(t, TopicCount{Topic: "f", Count: 2}, r.TopTopics[0])
	assert.Equal(t, []string{"a", "b", "c", "d"}, []string{r.TopTopics[1].Topic, r.TopTopics[2].Topic, r.TopTopics[3].Topic, r.TopTopics[4].Topic})
}
