package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/teamflow/internal/access"
	"github.com/yukikurage/teamflow/internal/models"
)

// fakeOpenAI answers every chat completion with content.
func fakeOpenAI(t *testing.T, content string) *AIService {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:     "chatcmpl-test",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			}},
		}))
	}))
	t.Cleanup(server.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = server.URL + "/v1"
	return NewAIServiceWithConfig(cfg, "test-model")
}

func TestRankTasks(t *testing.T) {
	env := setupServiceTestEnv(t)

	first := env.createTask(t, CreateTaskInput{Title: "first", Status: models.TaskStatusTodo})
	second := env.createTask(t, CreateTaskInput{Title: "second", Status: models.TaskStatusTodo})
	done := env.createTask(t, CreateTaskInput{Title: "done", Status: models.TaskStatusDone})

	content := fmt.Sprintf("```json\n[{\"id\": %d, \"rank\": 2}, {\"id\": %d, \"rank\": 1}, {\"id\": %d, \"rank\": 0}, {\"id\": 9999, \"rank\": 0}]\n```",
		first.ID, second.ID, done.ID)
	env.tasks.aiService = fakeOpenAI(t, content)

	ranked, err := env.tasks.RankTasks(context.Background(), env.orgID, env.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ranked)

	tasks, _, err := env.tasks.ListTasks(ListTasksInput{UserID: env.owner.ID, OrganizationID: env.orgID, TimeScope: access.TimeAll})
	require.NoError(t, err)
	assert.Equal(t, []uint64{second.ID, first.ID, done.ID}, taskIDs(tasks))

	reloaded, err := env.tasks.GetTask(done.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.SmartRank, "closed tasks are not ranked")
}

func TestRankTasks_NotConfigured(t *testing.T) {
	env := setupServiceTestEnv(t)

	_, err := env.tasks.RankTasks(context.Background(), env.orgID, env.owner.ID)
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)

	_, err = env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "call Bob"})
	assert.ErrorIs(t, err, ErrAIServiceNotConfigured)
}

func TestGenerateTasks(t *testing.T) {
	env := setupServiceTestEnv(t)
	env.tasks.aiService = fakeOpenAI(t, `[
		{"title": "Send invoice", "description": "to Globex", "due_date": "2026-03-11T17:00:00Z", "priority": "high", "estimated_minutes": 20},
		{"title": "  ", "description": "blank"},
		{"title": "Book venue", "due_date": "2025-01-01T00:00:00Z", "priority": "whenever", "estimated_minutes": -5}
	]`)

	tasks, err := env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "email body"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Send invoice", tasks[0].Title)
	assert.Equal(t, models.PriorityHigh, tasks[0].Priority)
	require.NotNil(t, tasks[0].DueDate)
	require.NotNil(t, tasks[0].EstimatedMinutes)
	assert.Equal(t, 20, *tasks[0].EstimatedMinutes)

	assert.Equal(t, "Book venue", tasks[1].Title)
	assert.Nil(t, tasks[1].DueDate, "stale deadlines are dropped")
	assert.Equal(t, models.PriorityMedium, tasks[1].Priority)
	assert.Nil(t, tasks[1].EstimatedMinutes)

	assert.Zero(t, env.countTasks(t), "suggestions are not persisted")
}

func TestGenerateTasks_Empty(t *testing.T) {
	env := setupServiceTestEnv(t)

	env.tasks.aiService = fakeOpenAI(t, `[]`)
	_, err := env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "nothing here"})
	assert.ErrorIs(t, err, ErrAINoTasksGenerated)

	env.tasks.aiService = fakeOpenAI(t, `[{"title": ""}]`)
	_, err = env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "still nothing"})
	assert.ErrorIs(t, err, ErrAINoValidTasks)

	env.tasks.aiService = fakeOpenAI(t, `not json`)
	_, err = env.tasks.GenerateTasks(context.Background(), GenerateTasksInput{Text: "garbage"})
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[1]`, stripCodeFence("```json\n[1]\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("```\n[1]\n```"))
	assert.Equal(t, `[1]`, stripCodeFence("  [1] "))
}
