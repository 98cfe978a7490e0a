package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
)

var errNoSteps = errors.New("generated plan has no steps")

const systemPrompt = "You are an expert learning coach. You design realistic, well-structured study plans " +
	"and always answer with a single valid JSON object and nothing else."

// Generator is an external generative-text capability.
type Generator interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

type phase struct {
	name     string
	describe string // %[1]s is the topic
}

var phases = [4]phase{
	{name: "Foundation", describe: "Learn the fundamentals of %[1]s, its key terminology and core concepts"},
	{name: "Core Learning", describe: "Build working knowledge of %[1]s through guided exercises and hands-on practice"},
	{name: "Advanced Topics", describe: "Explore advanced %[1]s concepts, patterns and real-world applications"},
	{name: "Mastery", describe: "Consolidate your %[1]s skills with a capstone project, review and self-assessment"},
}

// Synthesizer produces plan content, delegating to a Generator when one is configured.
type Synthesizer struct {
	gen    Generator
	logger core.Logger
}

// NewSynthesizer returns a Synthesizer. A nil gen always uses deterministic synthesis.
func NewSynthesizer(gen Generator, logger core.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, logger: logger}
}

// Synthesize never fails: any delegated generation error falls back to SynthesizeFallback.
// The returned Source tells which strategy produced the content.
func (s *Synthesizer) Synthesize(ctx context.Context, req GenerateRequest) (Content, Source) {
	if s.gen != nil {
		content, err := s.delegate(ctx, req)
		if err == nil {
			return content, SourceOpenAI
		}
		s.logger.Warn(fmt.Sprintf("plan generation failed, using deterministic synthesis: %v", err), err)
	}
	return SynthesizeFallback(req), SourceSmartMock
}

func (s *Synthesizer) delegate(ctx context.Context, req GenerateRequest) (Content, error) {
	raw, err := s.gen.GenerateText(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		return Content{}, errors.Wrap(err, "generating plan")
	}
	return parseContent(raw, req)
}

func buildPrompt(req GenerateRequest) string {
	return fmt.Sprintf(`Create a detailed study plan for learning "%s".

Learner profile:
- Difficulty level: %s
- Available study time: %s hours per day
- Duration: %d weeks

Respond with a JSON object with exactly these fields:
{
  "title": "a short, motivating plan title",
  "duration": "%d Weeks",
  "description": "a one-paragraph overview of the plan",
  "estimatedHours": <total study hours as a number>,
  "steps": ["Week 1-2: ...", "Week 3-4: ...", "..."]
}

Each step must name its week range, and the steps must cover all %d weeks in order.`,
		req.Topic, req.difficulty(), formatHours(req.dailyHours()), req.duration(), req.duration(), req.duration())
}

// parseContent decodes a generated JSON object, applying defaults to missing fields.
func parseContent(raw string, req GenerateRequest) (Content, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return Content{}, errors.Wrap(err, "decoding generated plan")
	}

	content := Content{
		Title:          stringField(payload, "title"),
		Duration:       stringField(payload, "duration"),
		Description:    stringField(payload, "description"),
		EstimatedHours: numberField(payload, "estimatedHours"),
	}
	if content.Title == "" {
		content.Title = defaultTitle(req)
	}
	if weeks, ok := payload["duration"].(float64); ok {
		content.Duration = formatHours(weeks) + " Weeks"
	}
	if content.Duration == "" {
		content.Duration = defaultDurationLabel(req)
	}
	if items, ok := payload["steps"].([]interface{}); ok {
		for _, item := range items {
			if step, ok := item.(string); ok && strings.TrimSpace(step) != "" {
				content.Steps = append(content.Steps, strings.TrimSpace(step))
			}
		}
	}
	if len(content.Steps) == 0 {
		return Content{}, errNoSteps
	}
	return content, nil
}

// SynthesizeFallback deterministically builds a 4-phase plan.
func SynthesizeFallback(req GenerateRequest) Content {
	topic := core.CleanString(req.Topic)
	dailyHours := req.dailyHours()
	duration := req.duration()
	totalHours := dailyHours * 7 * float64(duration)
	weeksPerPhase := int(math.Ceil(float64(duration) / float64(len(phases))))

	steps := make([]string, 0, len(phases))
	for i, ph := range phases {
		start := i*weeksPerPhase + 1
		end := (i + 1) * weeksPerPhase
		if i == len(phases)-1 {
			end = duration
		}
		steps = append(steps, fmt.Sprintf("Week %d-%d: %s - %s", start, end, ph.name, fmt.Sprintf(ph.describe, topic)))
	}

	return Content{
		Title:    defaultTitle(req),
		Duration: defaultDurationLabel(req),
		Description: fmt.Sprintf("A %d-week %s study plan for %s with %s hours of focused study per day.",
			duration, req.difficulty(), topic, formatHours(dailyHours)),
		EstimatedHours: &totalHours,
		Steps:          steps,
	}
}

func defaultTitle(req GenerateRequest) string {
	return "Study Plan for " + core.CleanString(req.Topic)
}

func defaultDurationLabel(req GenerateRequest) string {
	return fmt.Sprintf("%d Weeks", req.duration())
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// numberField accepts a JSON number or a numeric string; anything else is dropped.
func numberField(payload map[string]interface{}, key string) *float64 {
	switch v := payload[key].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
	}
	return nil
}
