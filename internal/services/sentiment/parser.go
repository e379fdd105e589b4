package sentiment

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"FinScope/internal/domain/models"
	"FinScope/pkg/util"
)

// ParsedSentiment is what could be extracted from a model reply.
type ParsedSentiment struct {
	Sentiment   models.Sentiment
	Confidence  float64
	Reasoning   string
	KeyFactors  []string
	RiskFactors []string
}

// ParseError reports a reply that carries no usable sentiment.
type ParseError struct {
	Reason  string
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse sentiment: %s (%q)", e.Reason, e.Excerpt)
}

type rawReply struct {
	Sentiment   string      `json:"sentiment"`
	Confidence  json.Number `json:"confidence"`
	Reasoning   string      `json:"reasoning"`
	KeyFactors  []string    `json:"key_factors"`
	RiskFactors []string    `json:"risk_factors"`
}

// Parse extracts a sentiment from model output. A JSON object anywhere in the text is
// preferred; otherwise "key: value" lines are read. Confidence in percent is scaled
// to [0,1] and a missing confidence reads 0.5.
func Parse(text string) (ParsedSentiment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ParsedSentiment{}, &ParseError{Reason: "empty reply"}
	}
	raw, ok := parseJSON(text)
	if !ok {
		raw = parseLines(text)
	}

	out := ParsedSentiment{
		Sentiment:   models.Sentiment(strings.ToLower(strings.TrimSpace(raw.Sentiment))),
		Reasoning:   strings.TrimSpace(raw.Reasoning),
		KeyFactors:  clean(raw.KeyFactors),
		RiskFactors: clean(raw.RiskFactors),
	}
	if !out.Sentiment.Valid() {
		return ParsedSentiment{}, &ParseError{Reason: "no valid sentiment", Excerpt: excerpt(text)}
	}
	conf, err := confidence(string(raw.Confidence))
	if err != nil {
		return ParsedSentiment{}, &ParseError{Reason: err.Error(), Excerpt: excerpt(text)}
	}
	out.Confidence = conf
	return out, nil
}

func parseJSON(text string) (rawReply, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return rawReply{}, false
	}
	var r rawReply
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return rawReply{}, false
	}
	return r, true
}

func parseLines(text string) rawReply {
	var r rawReply
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimLeft(strings.TrimSpace(sc.Text()), "-*# ")
		key, val, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.Trim(key, "*\"' "))
		val = strings.Trim(strings.TrimSpace(val), "*\", ")
		switch key {
		case "sentiment":
			r.Sentiment = firstWord(val)
		case "confidence":
			r.Confidence = json.Number(firstWord(val))
		case "reasoning", "reason":
			r.Reasoning = val
		case "key factors", "key_factors":
			r.KeyFactors = splitList(val)
		case "risk factors", "risk_factors", "risks":
			r.RiskFactors = splitList(val)
		}
	}
	return r
}

// confidence reads a fraction or a percentage. "85%" and bare values of 2 and above are
// percentages; anything between 1 and 2 is an overshooting fraction and clamps to 1.
func confidence(s string) (float64, error) {
	if s == "" {
		return 0.5, nil
	}
	num, pct := strings.CutSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil || !util.Finite(v) || v < 0 {
		return 0, fmt.Errorf("bad confidence %q", s)
	}
	if pct || v >= 2 {
		v /= 100
	}
	return util.Clamp(v, 0, 1), nil
}

func firstWord(s string) string {
	f := strings.Fields(s)
	if len(f) == 0 {
		return ""
	}
	return strings.Trim(f[0], ".,;\"'")
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func excerpt(s string) string {
	const limit = 80
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
