package sentiment

import (
	"context"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
	applogger "FinScope/pkg/logger"
)

// FallbackProvider calls the primary provider and answers from the secondary when it fails.
// Results from the secondary are marked degraded.
type FallbackProvider struct {
	primary   domsvc.SentimentProvider
	secondary domsvc.SentimentProvider
	logger    *applogger.Logger
}

func NewFallbackProvider(primary, secondary domsvc.SentimentProvider, lgr *applogger.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, secondary: secondary, logger: lgr}
}

func (p *FallbackProvider) Name() string { return p.primary.Name() }

func (p *FallbackProvider) Analyze(ctx context.Context, req models.SentimentRequest) (models.SentimentResult, error) {
	res, err := p.primary.Analyze(ctx, req)
	if err == nil {
		return res, nil
	}
	if p.logger != nil {
		p.logger.Warn("sentiment provider failed, using fallback",
			applogger.String("provider", p.primary.Name()),
			applogger.String("fallback", p.secondary.Name()),
			applogger.String("symbol", req.Symbol),
			applogger.Error(err))
	}
	res, ferr := p.secondary.Analyze(ctx, req)
	if ferr != nil {
		return models.SentimentResult{}, models.External(p.primary.Name(), err)
	}
	res.Degraded = true
	return res, nil
}

var _ domsvc.SentimentProvider = (*FallbackProvider)(nil)
