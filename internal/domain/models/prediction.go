package models

import "time"

// PriceAdjustment is one named contribution to the predicted move, in percent.
type PriceAdjustment struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
}

// Scenarios bound the prediction: Bearish <= Base <= Bullish.
type Scenarios struct {
	Bullish float64 `json:"bullish"`
	Base    float64 `json:"base"`
	Bearish float64 `json:"bearish"`
}

// PricePrediction is derived per analysis run and stored only next to its recommendation.
type PricePrediction struct {
	CurrentPrice   float64           `json:"current_price"`
	PredictedPrice float64           `json:"predicted_price"`
	ChangePercent  float64           `json:"change_percent"`
	Confidence     float64           `json:"confidence"`
	TimeFrame      string            `json:"time_frame"`
	Reasoning      string            `json:"reasoning"`
	Adjustments    []PriceAdjustment `json:"adjustments"`
	RiskFactors    []string          `json:"risk_factors"`
	Scenarios      Scenarios         `json:"scenarios"`
}

// PredictionRecord is a stored prediction awaiting or holding its accuracy outcome.
type PredictionRecord struct {
	ID             string         `json:"id"`
	Symbol         string         `json:"symbol"`
	GeneratedAt    time.Time      `json:"generated_at"`
	HorizonDays    int            `json:"horizon_days"`
	Recommendation Recommendation `json:"recommendation"`
	Action         Action         `json:"action"`
	Score          float64        `json:"score"`
	Confidence     float64        `json:"confidence"`
	CurrentPrice   float64        `json:"current_price"`
	PredictedPrice float64        `json:"predicted_price"`
	ActualPrice    *float64       `json:"actual_price,omitempty"`
	Correct        *bool          `json:"correct,omitempty"`
	EvaluatedAt    *time.Time     `json:"evaluated_at,omitempty"`
}

// DueAt is when the prediction horizon elapses.
func (r PredictionRecord) DueAt() time.Time {
	return r.GeneratedAt.AddDate(0, 0, r.HorizonDays)
}

// AccuracyReport summarises evaluated predictions for a symbol.
type AccuracyReport struct {
	Symbol            string             `json:"symbol"`
	Evaluated         int                `json:"evaluated"`
	Correct           int                `json:"correct"`
	HitRate           float64            `json:"hit_rate"`
	MeanAbsPctError   float64            `json:"mean_abs_pct_error"`
	ByAction          map[Action]float64 `json:"by_action,omitempty"`
	Pending           int                `json:"pending"`
	NewlyEvaluated    int                `json:"newly_evaluated"`
	EvaluationsFailed int                `json:"evaluations_failed,omitempty"`
}
