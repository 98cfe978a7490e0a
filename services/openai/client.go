package openaisvc

import (
	"context"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/studyplan/core"
	"github.com/trezcool/studyplan/core/plan"
)

const completionsPath = "/v1/chat/completions"

var (
	ErrNoChoices = errors.New("no completion choices returned")
	ErrEmpty     = errors.New("empty completion")
)

type (
	message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatRequest struct {
		Model          string          `json:"model"`
		Messages       []message       `json:"messages"`
		Temperature    float64         `json:"temperature"`
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
	}

	chatResponse struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}

	apiError struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
)

// Client generates text with the OpenAI chat completions API.
type Client struct {
	http        *resty.Client
	model       string
	temperature float64
}

var _ plan.Generator = (*Client)(nil)

func NewClient(conf core.OpenAIConfig) *Client {
	hc := resty.New().
		SetBaseURL(strings.TrimRight(conf.BaseURL, "/")).
		SetAuthToken(conf.APIKey).
		SetHeader("Accept", "application/json").
		SetTimeout(conf.Timeout)

	return &Client{
		http:        hc,
		model:       conf.Model,
		temperature: conf.Temperature,
	}
}

// GenerateText asks the model for a JSON object answering prompt.
func (c *Client) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	var (
		result chatResponse
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&apiErr).
		Post(completionsPath)
	if err != nil {
		return "", errors.Wrap(err, "requesting chat completion")
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", errors.Errorf("chat completion failed (%d): %s", resp.StatusCode(), msg)
	}

	if len(result.Choices) == 0 {
		return "", ErrNoChoices
	}
	content := strings.TrimSpace(result.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmpty
	}
	return content, nil
}
