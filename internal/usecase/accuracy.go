package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/util"
)

// holdBand is the largest absolute move, in percent, for which a hold call counts as right.
const holdBand = 2.0

// AccuracyUseCase scores stored predictions once their horizon has elapsed.
type AccuracyUseCase struct {
	history domrepo.PredictionHistory
	prices  domrepo.PriceHistoryProvider
	metrics domrepo.Metrics
	logger  *applogger.Logger
	now     func() time.Time
}

func NewAccuracyUseCase(history domrepo.PredictionHistory, prices domrepo.PriceHistoryProvider, metrics domrepo.Metrics, lgr *applogger.Logger) *AccuracyUseCase {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	return &AccuracyUseCase{history: history, prices: prices, metrics: metrics, logger: lgr, now: time.Now}
}

// Correct decides whether a call was right given the price move. Buy and sell need the
// move in their direction; hold needs the move to stay within holdBand percent.
func Correct(action models.Action, current, actual float64) bool {
	move := util.PctChange(current, actual)
	switch action {
	case models.ActionBuy:
		return actual > current
	case models.ActionSell:
		return actual < current
	default:
		return math.Abs(move) <= holdBand
	}
}

// Evaluate scores every due prediction of symbol and returns the symbol's track record.
// A prediction without a bar after its due date stays pending.
func (uc *AccuracyUseCase) Evaluate(ctx context.Context, symbol string) (*models.AccuracyReport, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, models.Invalid("symbol", "required")
	}
	now := uc.now().UTC()

	pending, err := uc.history.Pending(ctx, symbol, now)
	if err != nil {
		return nil, fmt.Errorf("pending predictions: %w", err)
	}

	rep := &models.AccuracyReport{Symbol: symbol}
	for _, p := range pending {
		actual, ok, err := uc.priceAt(ctx, symbol, p.DueAt(), now)
		if err != nil {
			rep.EvaluationsFailed++
			uc.metrics.RecordError("accuracy_prices")
			uc.logger.Warn("accuracy price lookup failed", applogger.String("id", p.ID), applogger.Error(err))
			continue
		}
		if !ok {
			rep.Pending++
			continue
		}
		correct := Correct(p.Action, p.CurrentPrice, actual)
		if err := uc.history.MarkEvaluated(ctx, p.ID, actual, correct, now); err != nil {
			rep.EvaluationsFailed++
			uc.logger.Warn("mark prediction evaluated failed", applogger.String("id", p.ID), applogger.Error(err))
			continue
		}
		rep.NewlyEvaluated++
	}

	done, err := uc.history.Evaluated(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("evaluated predictions: %w", err)
	}
	summarize(rep, done)

	uc.logger.Info("accuracy evaluated",
		applogger.String("symbol", symbol),
		applogger.Int("evaluated", rep.Evaluated),
		applogger.Int("new", rep.NewlyEvaluated),
		applogger.Int("pending", rep.Pending))
	return rep, nil
}

// priceAt returns the first daily close on or after due.
func (uc *AccuracyUseCase) priceAt(ctx context.Context, symbol string, due, now time.Time) (float64, bool, error) {
	to := due.AddDate(0, 0, 10)
	if to.After(now) {
		to = now
	}
	bars, err := uc.prices.GetPrices(ctx, symbol, due, to, domrepo.IV1d)
	if err != nil {
		return 0, false, err
	}
	for _, b := range bars {
		if !b.Timestamp.Before(due) && b.Close > 0 {
			return b.Close, true, nil
		}
	}
	return 0, false, nil
}

func summarize(rep *models.AccuracyReport, done []*models.PredictionRecord) {
	type tally struct{ n, ok int }
	byAction := map[models.Action]*tally{}
	var errSum float64
	var errN int

	for _, r := range done {
		if r.Correct == nil || r.ActualPrice == nil {
			continue
		}
		rep.Evaluated++
		t := byAction[r.Action]
		if t == nil {
			t = &tally{}
			byAction[r.Action] = t
		}
		t.n++
		if *r.Correct {
			rep.Correct++
			t.ok++
		}
		if *r.ActualPrice > 0 && r.PredictedPrice > 0 {
			errSum += math.Abs(r.PredictedPrice-*r.ActualPrice) / *r.ActualPrice * 100
			errN++
		}
	}
	if rep.Evaluated == 0 {
		return
	}
	rep.HitRate = util.Round(float64(rep.Correct)/float64(rep.Evaluated), 4)
	if errN > 0 {
		rep.MeanAbsPctError = util.Round(errSum/float64(errN), 2)
	}
	rep.ByAction = make(map[models.Action]float64, len(byAction))
	for a, t := range byAction {
		rep.ByAction[a] = util.Round(float64(t.ok)/float64(t.n), 4)
	}
}
