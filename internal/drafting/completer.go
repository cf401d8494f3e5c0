package drafting

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel and DefaultTemperature are used for every draft.
const (
	DefaultModel       = string(openai.ChatModelGPT4o)
	DefaultTemperature = 0.4
)

// Completer runs a single system + user prompt and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// OpenAICompleter is a Completer backed by the OpenAI chat completions API.
// One instance is created at startup and shared.
type OpenAICompleter struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAICompleter creates a completer. An empty model uses DefaultModel.
func NewOpenAICompleter(apiKey, model string, opts ...option.RequestOption) *OpenAICompleter {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &OpenAICompleter{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: DefaultTemperature,
	}
}

// Complete sends the prompt and returns the first choice, trimmed.
func (c *OpenAICompleter) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
