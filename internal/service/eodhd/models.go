package eodhd

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// EODBar is one row of /eod.
type EODBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        float64 `json:"volume"`
}

// IntradayBar is one row of /intraday. Timestamp is unix seconds, UTC.
type IntradayBar struct {
	Timestamp int64   `json:"timestamp"`
	Datetime  string  `json:"datetime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// FundamentalsResponse keeps the parts of /fundamentals the ratio engine reads.
type FundamentalsResponse struct {
	General *struct {
		Code     string `json:"Code"`
		Exchange string `json:"Exchange"`
	} `json:"General"`
	Financials        *Financials   `json:"Financials"`
	Earnings          *Earnings     `json:"Earnings"`
	OutstandingShares *SharesCounts `json:"outstandingShares"`
}

// SharesCounts are keyed by position ("0", "1", ...).
type SharesCounts struct {
	Annual    objectMap[SharesEntry] `json:"annual"`
	Quarterly objectMap[SharesEntry] `json:"quarterly"`
}

// SharesEntry is one share count observation.
type SharesEntry struct {
	DateFormatted string  `json:"dateFormatted"`
	Shares        float64 `json:"shares"`
}

// Financials holds the three statements.
type Financials struct {
	BalanceSheet    *Statement `json:"Balance_Sheet"`
	CashFlow        *Statement `json:"Cash_Flow"`
	IncomeStatement *Statement `json:"Income_Statement"`
}

// Statement rows are keyed by period end date. Values arrive as strings, numbers or null.
type Statement struct {
	Quarterly objectMap[map[string]interface{}] `json:"quarterly"`
	Yearly    objectMap[map[string]interface{}] `json:"yearly"`
}

// Earnings holds reported EPS keyed by period end date.
type Earnings struct {
	History objectMap[EarningsEntry] `json:"History"`
	Annual  objectMap[EarningsEntry] `json:"Annual"`
}

type EarningsEntry struct {
	Date      string   `json:"date"`
	EPSActual *float64 `json:"epsActual"`
}

// objectMap decodes a JSON object and treats the empty arrays the API sends for missing
// sections as an empty map.
type objectMap[T any] map[string]T

func (m *objectMap[T]) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*m = nil
		return nil
	}
	var raw map[string]T
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// number reads a statement cell.
func number(row map[string]interface{}, keys ...string) *float64 {
	for _, k := range keys {
		switch v := row[k].(type) {
		case float64:
			f := v
			return &f
		case string:
			v = strings.TrimSpace(v)
			if v == "" || v == "None" || v == "null" {
				continue
			}
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}
