package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/teamflow/internal/models"
)

type AIService struct {
	client *openai.Client
	model  string
}

// GeneratedTask is a task suggestion extracted from free text
type GeneratedTask struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	DueDate          *time.Time          `json:"due_date"`
	Priority         models.TaskPriority `json:"priority"`
	EstimatedMinutes *int                `json:"estimated_minutes"`
}

// RankedTask is one entry of the model's ranking, lower rank is more urgent
type RankedTask struct {
	ID   uint64  `json:"id"`
	Rank float64 `json:"rank"`
}

func NewAIService(apiKey, model string) *AIService {
	return NewAIServiceWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewAIServiceWithConfig builds the service from an explicit client configuration
func NewAIServiceWithConfig(cfg openai.ClientConfig, model string) *AIService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &AIService{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// GenerateTasksFromText extracts tasks from free text such as an email or a voice transcript
func (s *AIService) GenerateTasksFromText(ctx context.Context, text string, now time.Time) ([]GeneratedTask, error) {
	prompt := fmt.Sprintf(`You extract actionable tasks from text.

Current time: %s

Text:
%s

Reply with a JSON array only, no prose:
[
  {
    "title": "short title",
    "description": "details",
    "due_date": "RFC3339 timestamp, or null when the text gives no deadline",
    "priority": "critical | high | medium | low",
    "estimated_minutes": "integer, or null"
  }
]

Resolve relative deadlines ("tomorrow", "next week") against the current time.
Return [] when there is nothing to do.`, now.Format(time.RFC3339), text)

	var tasks []GeneratedTask
	if err := s.completeJSON(ctx, prompt, 0.3, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RankTasks asks the model to order tasks by urgency
func (s *AIService) RankTasks(ctx context.Context, tasks []models.Task, now time.Time) ([]RankedTask, error) {
	type summary struct {
		ID       uint64              `json:"id"`
		Title    string              `json:"title"`
		Priority models.TaskPriority `json:"priority"`
		Status   models.TaskStatus   `json:"status"`
		DueDate  *time.Time          `json:"due_date"`
	}

	summaries := make([]summary, len(tasks))
	for i, t := range tasks {
		summaries[i] = summary{ID: t.ID, Title: t.Title, Priority: t.Priority, Status: t.Status, DueDate: t.DueDate}
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tasks: %w", err)
	}

	prompt := fmt.Sprintf(`You prioritize a task list.

Current time: %s

Tasks:
%s

Reply with a JSON array only, one entry per task: [{"id": 1, "rank": 1.0}].
Lower rank means do it sooner. Weigh deadlines first, then priority.`, now.Format(time.RFC3339), payload)

	var ranked []RankedTask
	if err := s.completeJSON(ctx, prompt, 0, &ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

func (s *AIService) completeJSON(ctx context.Context, prompt string, temperature float32, out interface{}) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("OpenAI client not initialized")
	}

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: temperature,
		},
	)
	if err != nil {
		return fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return nil
}

// stripCodeFence removes a surrounding ```json fence that models add despite instructions
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimPrefix(content, "json")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
