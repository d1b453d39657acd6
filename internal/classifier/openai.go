package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/quantpulse/jumpsent/internal/models"
)

const openAIRequestTimeout = 60 * time.Second

const sentimentPrompt = `You are a sentiment classifier for financial news headlines, ` +
	`including Japanese ones. Respond with only a JSON object of the form ` +
	`{"negative": x, "neutral": y, "positive": z} where the three values are ` +
	`probabilities summing to 1.`

// OpenAI scores text through a chat completion that is asked to emit the
// probability triple directly.
type OpenAI struct {
	client    *openai.Client
	model     string
	maxLength int
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("[OpenAIClassifier] missing OPENAI_API_KEY in environment")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{Timeout: openAIRequestTimeout}

	return &OpenAI{
		client:    openai.NewClientWithConfig(config),
		model:     model,
		maxLength: DefaultMaxLength,
	}, nil
}

func (o *OpenAI) Classify(ctx context.Context, text string) (models.Probabilities, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Truncate(text, o.maxLength)},
		},
	})
	if err != nil {
		return models.Probabilities{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.Probabilities{}, errors.New("chat completion returned no choices")
	}

	var probs models.Probabilities
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &probs); err != nil {
		return models.Probabilities{}, fmt.Errorf("failed to parse completion %q: %w", content, err)
	}
	return probs, nil
}
