package sentiment

import (
	"fmt"
	"strings"

	"FinScope/internal/domain/models"
)

const systemPrompt = "You are an equity analyst. Answer only with a JSON object with the keys " +
	"sentiment (bullish, bearish or neutral), confidence (0 to 1), reasoning, key_factors and risk_factors."

// Prompt renders the fixed user message for a sentiment request.
func Prompt(req models.SentimentRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Symbol: %s\nPrice: %.2f\n", req.Symbol, req.CurrentPrice)
	fmt.Fprintf(&b, "Technical score: %.2f\nFundamental score: %.2f\n", req.TechnicalScore, req.FundamentalScore)
	writeOpt(&b, "RSI", req.Technical.RSI)
	writeOpt(&b, "MACD", req.Technical.MACD)
	writeOpt(&b, "MACD signal", req.Technical.MACDSignal)
	writeOpt(&b, "P/E", req.Ratios.PE)
	writeOpt(&b, "ROE", req.Ratios.ROE)
	writeOpt(&b, "Debt/Equity", req.Ratios.DebtToEquity)
	writeOpt(&b, "Revenue growth", req.Ratios.RevenueGrowth)
	if req.Summary != "" {
		fmt.Fprintf(&b, "Fundamentals: %s\n", req.Summary)
	}
	b.WriteString("What is the market sentiment for this stock?")
	return b.String()
}

func writeOpt(b *strings.Builder, name string, v *float64) {
	if v != nil {
		fmt.Fprintf(b, "%s: %.2f\n", name, *v)
	}
}

func fromParsed(p ParsedSentiment, source string) models.SentimentResult {
	return models.SentimentResult{
		Sentiment:   p.Sentiment,
		Confidence:  p.Confidence,
		Reasoning:   p.Reasoning,
		KeyFactors:  p.KeyFactors,
		RiskFactors: p.RiskFactors,
		Source:      source,
	}
}
