package sentiment

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider asks Gemini for a sentiment.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, temperature float64) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model, temperature: float32(temperature)}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Analyze(ctx context.Context, req models.SentimentRequest) (models.SentimentResult, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(p.temperature),
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{genai.NewPartFromText(Prompt(req))}},
	}, cfg)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("gemini generate: %w", err)
	}
	parsed, err := Parse(resp.Text())
	if err != nil {
		return models.SentimentResult{}, err
	}
	return fromParsed(parsed, p.Name()), nil
}

var _ domsvc.SentimentProvider = (*GeminiProvider)(nil)
