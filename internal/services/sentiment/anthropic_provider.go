package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
)

const defaultClaudeModel = "claude-3-5-haiku-latest"

// AnthropicProvider asks Claude for a sentiment.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewAnthropicProvider(apiKey, model string, maxTokens int, temperature float64) *AnthropicProvider {
	if model == "" {
		model = defaultClaudeModel
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: temperature,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Analyze(ctx context.Context, req models.SentimentRequest) (models.SentimentResult, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(Prompt(req)))},
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(p.temperature)
	}
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	parsed, err := Parse(text.String())
	if err != nil {
		return models.SentimentResult{}, err
	}
	return fromParsed(parsed, p.Name()), nil
}

var _ domsvc.SentimentProvider = (*AnthropicProvider)(nil)
