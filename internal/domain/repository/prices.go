package repository

import (
	"context"
	"time"

	"FinScope/internal/domain/models"
)

// PriceHistoryProvider returns bars in ascending time order.
type PriceHistoryProvider interface {
	GetPrices(ctx context.Context, symbol string, from, to time.Time, iv Interval) ([]models.PricePoint, error)
	GetPriceHistory(ctx context.Context, symbol string, iv Interval, limit int) ([]models.PricePoint, error)
}

// FundamentalsProvider returns the reports known for a symbol, any order.
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, symbol string) ([]models.FundamentalReport, error)
}

// PriceWriter persists bars and reports pulled from an upstream vendor.
type PriceWriter interface {
	StoreBars(ctx context.Context, symbol string, iv Interval, bars []models.PricePoint) error
	StoreFundamentals(ctx context.Context, reports []models.FundamentalReport) error
}
