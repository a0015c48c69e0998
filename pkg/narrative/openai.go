package narrative

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/raykavin/signalrun/pkg/core"
)

const systemPrompt = `You are a trading assistant writing short Telegram updates
about active trade signals. Reply with plain text, at most four lines, no
markdown, no financial advice disclaimers.`

// OpenAI renders updates through a chat-completion model. Failures surface
// as core.ErrRenderFailed so the dispatcher can suppress the message without
// losing its bookkeeping.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an LLM-backed narrator. When model is empty, GPT-4o mini
// is used. BaseURL redirects the API endpoint, e.g. for a proxy.
func NewOpenAI(settings core.OpenAISettings) *OpenAI {
	model := settings.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	cfg := openai.DefaultConfig(settings.APIKey)
	if settings.BaseURL != "" {
		cfg.BaseURL = settings.BaseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Render implements core.Narrator.
func (o *OpenAI) Render(ctx context.Context, signal *core.Signal, status *core.Status) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(signal, status)},
		},
		MaxTokens:   120,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrRenderFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", core.ErrRenderFailed)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: blank completion", core.ErrRenderFailed)
	}
	return text, nil
}

func buildPrompt(signal *core.Signal, status *core.Status) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Signal: %s %s, entry %.5f, stop %.5f.\n",
		signal.Direction, signal.Symbol, signal.EntryPrice, signal.StopLoss)
	fmt.Fprintf(&sb, "Current price %.5f, profit %.5f.\n", status.Price, status.Profit)

	for i, target := range signal.TakeProfits {
		state := "not reached"
		if status.TargetsHit[i] {
			state = "reached"
		}
		fmt.Fprintf(&sb, "TP%d at %.5f: %.1f%% progress, %s.\n",
			i+1, target, status.PctToTargets[i], state)
	}
	if status.StopHit {
		sb.WriteString("The stop loss has been hit, the signal is closed.\n")
	}

	sb.WriteString("Write the update message.")
	return sb.String()
}
