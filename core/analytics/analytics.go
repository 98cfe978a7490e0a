// Package analytics rolls up a user's plans and feedback into dashboard figures.
package analytics

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/core/plan"
)

var NowFunc = time.Now // mockable

const (
	recentWindow = 30 * 24 * time.Hour
	week         = 7 * 24 * time.Hour
	weeklyCount  = 4
	topicsCount  = 5
)

type (
	Overview struct {
		TotalPlans          int     `json:"totalPlans"`
		CompletedPlans      int     `json:"completedPlans"`
		InProgressPlans     int     `json:"inProgressPlans"`
		TotalSteps          int     `json:"totalSteps"`
		CompletedSteps      int     `json:"completedSteps"`
		AverageProgress     int     `json:"averageProgress"`
		TotalEstimatedHours float64 `json:"totalEstimatedHours"`
		AverageHoursPerPlan int     `json:"averageHoursPerPlan"`
	}

	FeedbackStats struct {
		TotalFeedbacks    int     `json:"totalFeedbacks"`
		AverageRating     float64 `json:"averageRating"`
		HelpfulCount      int     `json:"helpfulCount"`
		HelpfulPercentage int     `json:"helpfulPercentage"`
	}

	WeeklyProgress struct {
		Week           string `json:"week"`
		PlansCreated   int    `json:"plansCreated"`
		PlansCompleted int    `json:"plansCompleted"`
	}

	Activity struct {
		RecentPlans       int              `json:"recentPlans"`
		RecentCompletions int              `json:"recentCompletions"`
		WeeklyProgress    []WeeklyProgress `json:"weeklyProgress"`
	}

	TopicCount struct {
		Topic string `json:"topic"`
		Count int    `json:"count"`
	}

	Report struct {
		Overview   Overview       `json:"overview"`
		Difficulty map[string]int `json:"difficulty"`
		Source     map[string]int `json:"source"`
		Feedback   FeedbackStats  `json:"feedback"`
		Activity   Activity       `json:"activity"`
		TopTopics  []TopicCount   `json:"topTopics"`
	}
)

// Compute builds the Report. plans are expected oldest first; topic ties keep first appearance.
func Compute(plans []plan.StudyPlan, fbs []feedback.Feedback, now time.Time) Report {
	r := Report{
		Difficulty: map[string]int{
			string(plan.Beginner):     0,
			string(plan.Intermediate): 0,
			string(plan.Advanced):     0,
		},
		Source: map[string]int{
			string(plan.SourceOpenAI):    0,
			string(plan.SourceSmartMock): 0,
		},
		TopTopics: []TopicCount{},
	}

	var progressSum int
	topicIdx := make(map[string]int)
	for _, p := range plans {
		r.Overview.TotalPlans++
		if p.IsCompleted {
			r.Overview.CompletedPlans++
		} else {
			r.Overview.InProgressPlans++
		}
		r.Overview.TotalSteps += p.TotalSteps
		r.Overview.CompletedSteps += p.CompletedSteps
		progressSum += p.ProgressPercentage
		if p.EstimatedHours != nil {
			r.Overview.TotalEstimatedHours += *p.EstimatedHours
		}

		if _, ok := r.Difficulty[string(p.Difficulty)]; ok {
			r.Difficulty[string(p.Difficulty)]++
		}
		if _, ok := r.Source[string(p.Source)]; ok {
			r.Source[string(p.Source)]++
		}

		if i, ok := topicIdx[p.Topic]; ok {
			r.TopTopics[i].Count++
		} else {
			topicIdx[p.Topic] = len(r.TopTopics)
			r.TopTopics = append(r.TopTopics, TopicCount{Topic: p.Topic, Count: 1})
		}
	}
	if n := r.Overview.TotalPlans; n > 0 {
		r.Overview.AverageProgress = int(math.Round(float64(progressSum) / float64(n)))
		r.Overview.AverageHoursPerPlan = int(math.Round(r.Overview.TotalEstimatedHours / float64(n)))
	}

	sort.SliceStable(r.TopTopics, func(i, j int) bool { return r.TopTopics[i].Count > r.TopTopics[j].Count })
	if len(r.TopTopics) > topicsCount {
		r.TopTopics = r.TopTopics[:topicsCount]
	}

	r.Feedback = feedbackStats(fbs)
	r.Activity = activity(plans, now)
	return r
}

func feedbackStats(fbs []feedback.Feedback) FeedbackStats {
	var stats FeedbackStats
	var ratingSum int
	for _, fb := range fbs {
		stats.TotalFeedbacks++
		ratingSum += fb.Rating
		if fb.Helpful {
			stats.HelpfulCount++
		}
	}
	if stats.TotalFeedbacks > 0 {
		stats.AverageRating = math.Round(float64(ratingSum)/float64(stats.TotalFeedbacks)*10) / 10
		stats.HelpfulPercentage = int(math.Round(float64(stats.HelpfulCount) / float64(stats.TotalFeedbacks) * 100))
	}
	return stats
}

func activity(plans []plan.StudyPlan, now time.Time) Activity {
	act := Activity{WeeklyProgress: make([]WeeklyProgress, 0, weeklyCount)}
	recentFrom := now.Add(-recentWindow)
	for _, p := range plans {
		if !p.CreatedAt.Before(recentFrom) {
			act.RecentPlans++
		}
		if p.CompletedAt != nil && !p.CompletedAt.Before(recentFrom) {
			act.RecentCompletions++
		}
	}

	// oldest bucket first: "Week 1" is [now-28d, now-21d)
	for i := weeklyCount - 1; i >= 0; i-- {
		start := now.Add(-time.Duration(i+1) * week)
		end := now.Add(-time.Duration(i) * week)
		wp := WeeklyProgress{Week: "Week " + strconv.Itoa(weeklyCount-i)}
		for _, p := range plans {
			if inRange(p.CreatedAt, start, end) {
				wp.PlansCreated++
			}
			if p.CompletedAt != nil && inRange(*p.CompletedAt, start, end) {
				wp.PlansCompleted++
			}
		}
		act.WeeklyProgress = append(act.WeeklyProgress, wp)
	}
	return act
}

func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

type (
	Service interface {
		Get(ctx context.Context, userID string) (Report, error)
	}

	service struct {
		planSvc     plan.Service
		feedbackSvc feedback.Service
	}
)

var _ Service = (*service)(nil)

func NewService(planSvc plan.Service, feedbackSvc feedback.Service) Service {
	return &service{planSvc: planSvc, feedbackSvc: feedbackSvc}
}

func (svc *service) Get(ctx context.Context, userID string) (Report, error) {
	plans, err := svc.planSvc.Query(ctx, userID, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return Report{}, errors.Wrap(err, "querying study plans")
	}
	fbs, err := svc.feedbackSvc.QueryByUser(ctx, userID)
	if err != nil {
		return Report{}, errors.Wrap(err, "querying feedback")
	}
	return Compute(plans, fbs, NowFunc()), nil
}
