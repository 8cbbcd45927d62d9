package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/MATHILDEdemariable/jourj/internal/models"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// MaxSuggestionsPerRequest bounds how many tasks one request may return
	MaxSuggestionsPerRequest = 12

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIProvider implements the SuggestionProvider interface using OpenAI's API
type OpenAIProvider struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// Suggest proposes wedding-day tasks for a freeform scenario. The response is
// requested in JSON mode; entries missing a title or a positive duration are
// dropped and counted, never fatal.
func (p *OpenAIProvider) Suggest(ctx context.Context, req SuggestionRequest) ([]models.SuggestedTask, int, error) {
	prompt := buildSuggestionPrompt(req)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a wedding day-of coordinator. You propose concrete, schedulable tasks for the wedding day. Respond with valid JSON only."),
		openai.UserMessage(prompt),
	}

	apiReq := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	requestID := ExtractRequestID(ctx)
	planningIDStr := ExtractPlanningID(ctx)
	jobIDStr := ExtractJobID(ctx)

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "suggest_tasks"),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", SanitizePrompt(prompt, true)),
			zap.String("planning_id", planningIDStr),
			zap.String("job_id", jobIDStr),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, apiReq)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "suggest_tasks"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.String("planning_id", planningIDStr),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, 0, fmt.Errorf("failed to get suggestions: %w", apiErr)
		}
		return nil, 0, fmt.Errorf("failed to get suggestions: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, 0, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "suggest_tasks"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("planning_id", planningIDStr),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return parseSuggestionsResponse(content)
}

// parseSuggestionsResponse parses the model output into suggested tasks. Some
// models wrap the JSON object in prose; in that case the outermost braces are
// extracted before a second parse attempt. Invalid entries are dropped and
// counted.
func parseSuggestionsResponse(content string) ([]models.SuggestedTask, int, error) {
	var payload struct {
		Tasks []models.SuggestedTask `json:"tasks"`
	}

	raw := content
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, 0, fmt.Errorf("failed to parse suggestions response: %w", err)
		}
	}

	tasks := make([]models.SuggestedTask, 0, len(payload.Tasks))
	dropped := 0
	for _, t := range payload.Tasks {
		if !t.Valid() {
			dropped++
			continue
		}
		if t.Category != "" && !t.Category.Valid() {
			t.Category = models.CategoryCustom
		}
		tasks = append(tasks, t)
		if len(tasks) >= MaxSuggestionsPerRequest {
			break
		}
	}

	return tasks, dropped, nil
}

// buildSuggestionPrompt builds the prompt for suggestion generation.
func buildSuggestionPrompt(req SuggestionRequest) string {
	prompt := fmt.Sprintf(`Propose schedulable tasks for the wedding day described below.

Scenario: %q`, req.Scenario)

	if req.AnchorTime != nil {
		prompt += fmt.Sprintf("\n\nThe ceremony starts at %s. Propose tasks that fit around it.",
			req.AnchorTime.Format("15:04"))
	}

	if len(req.ExistingTitles) > 0 {
		prompt += "\n\nThese activities are already planned, do not repeat them:"
		for _, title := range req.ExistingTitles {
			prompt += "\n- " + title
		}
	}

	categories := make([]string, 0, len(models.Categories()))
	for _, c := range models.Categories() {
		categories = append(categories, string(c))
	}

	prompt += fmt.Sprintf(`

Respond with a JSON object in this format:
{
  "tasks": [
    {
      "title": "short task title in French",
      "description": "one-sentence description in French",
      "duration_minutes": 30,
      "category": "one of: %s",
      "priority": "high" | "medium" | "low"
    }
  ]
}

Guidelines:
- Propose between 3 and %d tasks.
- duration_minutes must be a positive integer, realistic for the task.
- Only propose tasks for the wedding day itself, not preparations in the weeks before.
- Titles and descriptions must be in French.

Return only valid JSON.`, strings.Join(categories, ", "), MaxSuggestionsPerRequest)

	return prompt
}
