package sentiment

import (
	"context"
	"fmt"

	domsvc "FinScope/internal/domain/service"
	"FinScope/pkg/config"
	applogger "FinScope/pkg/logger"
)

// New builds the configured provider. Anything other than rule_based is wrapped with the
// rule based fallback.
func New(ctx context.Context, cfg *config.Config, lgr *applogger.Logger) (domsvc.SentimentProvider, error) {
	rules := NewRuleBasedProvider()
	var primary domsvc.SentimentProvider

	sc := cfg.Sentiment
	switch sc.Provider {
	case "", "rule_based":
		return rules, nil
	case "http":
		primary = NewHTTPProvider(sc.URL, sc.Timeout, sc.Retries)
	case "anthropic":
		primary = NewAnthropicProvider(sc.APIKey, sc.Model, sc.MaxTokens, sc.Temperature)
	case "gemini":
		g, err := NewGeminiProvider(ctx, sc.APIKey, sc.Model, sc.Temperature)
		if err != nil {
			return nil, err
		}
		primary = g
	default:
		return nil, fmt.Errorf("unknown sentiment provider %q", sc.Provider)
	}

	if lgr != nil {
		lgr.Info("sentiment provider configured",
			applogger.String("provider", primary.Name()),
			applogger.String("model", sc.Model))
	}
	return NewFallbackProvider(primary, rules, lgr), nil
}
