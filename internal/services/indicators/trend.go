package indicators

import "FinScope/internal/domain/models"

// Trend classifies the latest bar of a benchmark series. Price and the short average must
// both sit on the same side of the long average; anything else is neutral, as is a series
// too short for the long average.
func Trend(set *Set) models.MarketTrend {
	snap, ok := set.Latest()
	if !ok || snap.SMAShort == nil || snap.SMALong == nil {
		return models.Neutral
	}
	long := *snap.SMALong
	switch {
	case snap.Close > long && *snap.SMAShort > long:
		return models.Bullish
	case snap.Close < long && *snap.SMAShort < long:
		return models.Bearish
	}
	return models.Neutral
}
