package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"fitplan/internal/config"
	"fitplan/internal/planner"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type AIModelRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
}

type AIModelResponse struct {
	Answer string
	Model  string
	Usage  AIUsage
}

type AIClient interface {
	Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error)
}

// NewAIClient picks the completion backend named by AI_PROVIDER.
func NewAIClient(cfg config.Config) AIClient {
	if cfg.AIProvider == config.AIProviderMock {
		return MockAIClient{Model: cfg.GroqModel}
	}
	return NewGroqChatClient(cfg)
}

// GroqChatClient talks to any OpenAI-compatible /chat/completions endpoint;
// by default Groq's.
type GroqChatClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage AIUsage `json:"usage"`
}

// NewGroqChatClient leaves the HTTP client without its own timeout; callers
// bound each call through the request context.
func NewGroqChatClient(cfg config.Config) *GroqChatClient {
	return &GroqChatClient{
		apiKey:     strings.TrimSpace(cfg.GroqAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.GroqBaseURL), "/"),
		model:      strings.TrimSpace(cfg.GroqModel),
		httpClient: &http.Client{},
	}
}

func (c *GroqChatClient) Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
	if c.apiKey == "" {
		return AIModelResponse{}, &planner.ConfigurationError{Setting: "GROQ_API_KEY"}
	}
	if c.baseURL == "" {
		return AIModelResponse{}, &planner.ConfigurationError{Setting: "GROQ_BASE_URL"}
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.model
	}
	if model == "" {
		return AIModelResponse{}, &planner.ConfigurationError{Setting: "GROQ_MODEL"}
	}
	if len(req.Messages) == 0 {
		return AIModelResponse{}, &planner.GenerationError{Err: errors.New("completion request has no messages")}
	}

	bodyRaw, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return AIModelResponse{}, &planner.GenerationError{Err: fmt.Errorf("encode completion request: %w", err)}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyRaw))
	if err != nil {
		return AIModelResponse{}, &planner.GenerationError{Err: err}
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return AIModelResponse{}, &planner.GenerationError{Err: err}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return AIModelResponse{}, &planner.GenerationError{StatusCode: response.StatusCode, Err: err}
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return AIModelResponse{}, &planner.GenerationError{
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("completion service error: %s", truncateForLog(string(responseBody), 500)),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return AIModelResponse{}, &planner.GenerationError{
			StatusCode: response.StatusCode,
			Err:        fmt.Errorf("decode completion response: %w", err),
		}
	}
	if len(parsed.Choices) == 0 {
		return AIModelResponse{}, &planner.GenerationError{Err: errors.New("completion response has no choices")}
	}
	content := parsed.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return AIModelResponse{}, &planner.GenerationError{Err: errors.New("completion response content is empty")}
	}

	modelName := strings.TrimSpace(parsed.Model)
	if modelName == "" {
		modelName = model
	}
	return AIModelResponse{
		Answer: *content,
		Model:  modelName,
		Usage:  parsed.Usage,
	}, nil
}

// MockAIClient answers offline with a fixed two-day plan wrapped in prose,
// which also exercises the extraction path.
type MockAIClient struct {
	Model string
}

const mockPlanAnswer = `Here is your plan:
{
  "summary": "Two sample days mixing bodyweight strength work with simple hostel-friendly meals.",
  "disclaimer": "Sample output for local development. Not medical advice.",
  "days": [
    {
      "day": "Day 1",
      "workout": [
        {"name": "Bodyweight squats", "sets": 3, "reps": "12-15", "duration_minutes": 10, "notes": "Keep knees over toes"},
        {"name": "Brisk walk", "duration_minutes": 20}
      ],
      "diet": [
        {"meal": "Breakfast", "description": "Oats with banana and curd", "approx_calories": 400},
        {"meal": "Lunch", "description": "Dal, rice and sabzi from the mess", "approx_calories": 650},
        {"meal": "Dinner", "description": "Two rotis, paneer bhurji and salad", "approx_calories": 550}
      ]
    },
    {
      "day": "Day 2",
      "workout": [
        {"name": "Push-ups", "sets": 3, "reps": "8-10", "notes": "Knees down if needed"},
        {"name": "Plank", "sets": 3, "reps": "30s"}
      ],
      "diet": [
        {"meal": "Breakfast", "description": "Two boiled eggs and toast", "approx_calories": 350},
        {"meal": "Lunch", "description": "Rajma chawal with curd", "approx_calories": 700}
      ]
    }
  ]
}
Stay consistent!`

func (m MockAIClient) Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return AIModelResponse{}, &planner.GenerationError{Err: err}
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(m.Model)
	}
	if model == "" {
		model = defaultPlanModel
	}
	return AIModelResponse{
		Answer: mockPlanAnswer,
		Model:  model,
		Usage: AIUsage{
			PromptTokens:     900,
			CompletionTokens: 450,
			TotalTokens:      1350,
		},
	}, nil
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
