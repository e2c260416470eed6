package advice

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "deepseek/deepseek-chat-v3.1:free"

// openRouterBaseURL is OpenRouter's OpenAI-compatible endpoint.
const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterCompleter sends single-message chat completions to
// OpenRouter.
type OpenRouterCompleter struct {
	client openai.Client
	apiKey string
	model  string
}

// NewOpenRouterCompleter creates the completer. model may be empty to
// use DefaultModel. An empty apiKey makes every completion fail fast,
// which the Advisor turns into its fallback guidance.
func NewOpenRouterCompleter(apiKey, model string) *OpenRouterCompleter {
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(openRouterBaseURL),
	)
	return &OpenRouterCompleter{client: client, apiKey: apiKey, model: model}
}

// Complete sends the prompt as a single user message and returns the
// assistant text.
func (c *OpenRouterCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("OPENROUTER_API_KEY not set")
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
