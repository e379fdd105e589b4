package models

// Requests for the HTTP API. Defined in domain for reuse by the CLI and the queue jobs.

type AnalyzeRequest struct {
	Symbol    string   `query:"symbol" json:"symbol" validate:"required,ticker"`
	Interval  string   `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	N         int      `query:"n" json:"n" default:"300" validate:"gte=1,lte=5000"`
	Macro     *float64 `query:"macro" json:"macro,omitempty" validate:"omitempty,gte=0,lte=1"`
	Trend     string   `query:"trend" json:"trend,omitempty" validate:"omitempty,oneof=bullish bearish neutral"`
	TimeFrame string   `query:"time_frame" json:"time_frame" default:"30d" validate:"horizon"`
	Refresh   bool     `query:"refresh" json:"refresh"`
}

type IndicatorsRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,ticker"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	N        int    `query:"n" json:"n" default:"300" validate:"gte=1,lte=5000"`
}

type FundamentalsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
}

type RecommendRequest struct {
	Technical   float64 `json:"technical" validate:"gte=0,lte=1"`
	Fundamental float64 `json:"fundamental" validate:"gte=0,lte=1"`
	Sentiment   float64 `json:"sentiment" validate:"gte=0,lte=1"`
	Macro       float64 `json:"macro" validate:"gte=0,lte=1"`
}

type PredictRequest struct {
	CurrentPrice   float64            `json:"current_price" validate:"gt=0"`
	Recommendation string             `json:"recommendation" validate:"required,oneof=strong_buy buy hold sell strong_sell"`
	Confidence     float64            `json:"confidence" validate:"gte=0,lte=100"`
	Trend          string             `json:"trend" default:"neutral" validate:"oneof=bullish bearish neutral"`
	TimeFrame      string             `json:"time_frame" default:"30d" validate:"horizon"`
	Indicators     *IndicatorSnapshot `json:"indicators,omitempty"`
	Ratios         *FinancialRatios   `json:"ratios,omitempty"`
}

type BacktestRequest struct {
	Symbol         string   `json:"symbol" validate:"required,ticker"`
	Interval       string   `json:"interval" default:"1d" validate:"oneof=1h 1d 1wk"`
	N              int      `json:"n" default:"750" validate:"gte=1,lte=20000"`
	Strategies     []string `json:"strategies" validate:"omitempty,dive,required"`
	InitialCapital float64  `json:"initial_capital" validate:"gte=0"`
	CommissionRate *float64 `json:"commission_rate,omitempty" validate:"omitempty,gte=0,lt=1"`
	SlippageRate   *float64 `json:"slippage_rate,omitempty" validate:"omitempty,gte=0,lt=1"`
	Async          bool     `json:"async"`
}

type AccuracyRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,ticker"`
}
