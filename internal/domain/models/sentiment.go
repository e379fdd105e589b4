package models

// SentimentRequest carries the context the sentiment provider sees.
type SentimentRequest struct {
	Symbol           string            `json:"symbol"`
	CurrentPrice     float64           `json:"current_price"`
	TechnicalScore   float64           `json:"technical_score"`
	FundamentalScore float64           `json:"fundamental_score"`
	Technical        IndicatorSnapshot `json:"technical"`
	Ratios           FinancialRatios   `json:"ratios"`
	Summary          string            `json:"summary"`
}

// SentimentResult is the structured answer of a sentiment provider.
// Degraded marks a result produced by the fallback after the configured provider failed.
type SentimentResult struct {
	Sentiment   Sentiment `json:"sentiment"`
	Confidence  float64   `json:"confidence"`
	Reasoning   string    `json:"reasoning"`
	KeyFactors  []string  `json:"key_factors"`
	RiskFactors []string  `json:"risk_factors"`
	Source      string    `json:"source"`
	Degraded    bool      `json:"degraded,omitempty"`
}
