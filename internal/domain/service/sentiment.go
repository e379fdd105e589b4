package service

import (
	"context"

	"FinScope/internal/domain/models"
)

// SentimentProvider produces a market sentiment for a symbol from the analysis context.
// Implementations may call remote models and must honour ctx.
type SentimentProvider interface {
	Analyze(ctx context.Context, req models.SentimentRequest) (models.SentimentResult, error)
	Name() string
}
