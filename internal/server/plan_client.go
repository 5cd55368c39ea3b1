package server

import (
	"context"
	"errors"
	"strings"

	"fitplan/internal/planner"
)

const (
	defaultPlanModel = "llama-3.3-70b-versatile"
	planTemperature  = 0.4

	trainerSystemPrompt = "You are a certified fitness trainer and dietitian for college students. " +
		"Always generate safe, realistic, and budget-friendly workout and diet plans. " +
		"Avoid medical claims and add a short disclaimer at the end."
	jsonOnlySystemPrompt = "For this task, you MUST respond with ONLY valid JSON, no markdown, " +
		"no explanation, and no text before or after the JSON. " +
		"If you are unsure, still respond with best-effort JSON following the schema."
)

// PlanClient turns a built prompt into the model's raw plan text.
type PlanClient struct {
	ai    AIClient
	model string
}

func NewPlanClient(ai AIClient, model string) *PlanClient {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultPlanModel
	}
	return &PlanClient{ai: ai, model: model}
}

func (p *PlanClient) Model() string {
	return p.model
}

// GeneratePlan returns the first choice's content unmodified. Failures are
// either *planner.ConfigurationError or *planner.GenerationError.
func (p *PlanClient) GeneratePlan(ctx context.Context, prompt string) (string, error) {
	resp, err := p.ai.Query(ctx, AIModelRequest{
		Model: p.model,
		Messages: []ChatMessage{
			{Role: "system", Content: trainerSystemPrompt},
			{Role: "system", Content: jsonOnlySystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: planTemperature,
	})
	if err != nil {
		var configErr *planner.ConfigurationError
		var genErr *planner.GenerationError
		if errors.As(err, &configErr) || errors.As(err, &genErr) {
			return "", err
		}
		return "", &planner.GenerationError{Err: err}
	}
	if resp.Answer == "" {
		return "", &planner.GenerationError{Err: errors.New("completion returned no content")}
	}
	return resp.Answer, nil
}
