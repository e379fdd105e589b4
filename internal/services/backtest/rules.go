package backtest

import (
	"fmt"
	"sort"

	"FinScope/internal/domain/models"
)

// Rule evaluates one bar. ok is false when an indicator it reads is undefined there;
// such bars are skipped rather than read as a false signal.
type Rule func(p models.PricePoint, s models.IndicatorSnapshot) (signal, ok bool)

// Strategy is a compiled pair of rules.
type Strategy struct {
	Name        string
	Description string
	Entry       Rule
	Exit        Rule
}

// FromDefinition compiles both rules of a catalog definition.
func FromDefinition(def models.StrategyDefinition) (Strategy, error) {
	if def.Name == "" {
		return Strategy{}, models.Invalid("strategy.name", "required")
	}
	entry, err := compile(def.Entry, "entry")
	if err != nil {
		return Strategy{}, err
	}
	exit, err := compile(def.Exit, "exit")
	if err != nil {
		return Strategy{}, err
	}
	return Strategy{Name: def.Name, Description: def.Description, Entry: entry, Exit: exit}, nil
}

// CompileRule turns a declarative rule into a Rule. Malformed specs yield an InvalidInputError.
func CompileRule(spec models.RuleSpec) (Rule, error) {
	return compile(spec, "rule")
}

type thresholdRule func(v float64) func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool)

func compile(spec models.RuleSpec, path string) (Rule, error) {
	switch spec.Kind {
	case "all", "any":
		if len(spec.Rules) == 0 {
			return nil, models.Invalid(path+".rules", "%s needs at least one rule", spec.Kind)
		}
		children := make([]Rule, len(spec.Rules))
		for i, c := range spec.Rules {
			r, err := compile(c, fmt.Sprintf("%s.rules[%d]", path, i))
			if err != nil {
				return nil, err
			}
			children[i] = r
		}
		if spec.Kind == "all" {
			return allOf(children), nil
		}
		return anyOf(children), nil
	}

	if mk, ok := thresholdKinds[spec.Kind]; ok {
		if spec.Threshold == nil {
			return nil, models.Invalid(path+".threshold", "%s needs a threshold", spec.Kind)
		}
		return Rule(mk(*spec.Threshold)), nil
	}
	if r, ok := plainKinds[spec.Kind]; ok {
		return r, nil
	}
	return nil, models.Invalid(path+".kind", "unknown rule kind %q", spec.Kind)
}

// allOf is false as soon as one defined child is false, undefined if any child is.
func allOf(rs []Rule) Rule {
	return func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
		defined := true
		for _, r := range rs {
			sig, ok := r(p, s)
			if ok && !sig {
				return false, true
			}
			defined = defined && ok
		}
		return defined, defined
	}
}

// anyOf is true as soon as one defined child is true, undefined if any child is.
func anyOf(rs []Rule) Rule {
	return func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
		defined := true
		for _, r := range rs {
			sig, ok := r(p, s)
			if ok && sig {
				return true, true
			}
			defined = defined && ok
		}
		return false, defined
	}
}

func below(get func(models.PricePoint, models.IndicatorSnapshot) *float64) thresholdRule {
	return func(v float64) func(models.PricePoint, models.IndicatorSnapshot) (bool, bool) {
		return func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
			x := get(p, s)
			if x == nil {
				return false, false
			}
			return *x < v, true
		}
	}
}

func above(get func(models.PricePoint, models.IndicatorSnapshot) *float64) thresholdRule {
	return func(v float64) func(models.PricePoint, models.IndicatorSnapshot) (bool, bool) {
		return func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
			x := get(p, s)
			if x == nil {
				return false, false
			}
			return *x > v, true
		}
	}
}

// compare builds a rule reading two values; a nil on either side is undefined.
func compare(a, b func(models.PricePoint, models.IndicatorSnapshot) *float64, less bool) Rule {
	return func(p models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
		x, y := a(p, s), b(p, s)
		if x == nil || y == nil {
			return false, false
		}
		if less {
			return *x < *y, true
		}
		return *x > *y, true
	}
}

func cross(dir int) Rule {
	return func(_ models.PricePoint, s models.IndicatorSnapshot) (bool, bool) {
		if s.MACD == nil || s.MACDSignal == nil || s.PrevMACD == nil || s.PrevMACDSignal == nil {
			return false, false
		}
		return s.MACDCross() == dir, true
	}
}

type getter = func(models.PricePoint, models.IndicatorSnapshot) *float64

var (
	closeOf    getter = func(p models.PricePoint, _ models.IndicatorSnapshot) *float64 { c := p.Close; return &c }
	rsiOf      getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.RSI }
	smaShort   getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.SMAShort }
	smaLong    getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.SMALong }
	macdOf     getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.MACD }
	signalOf   getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.MACDSignal }
	upperBand  getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.BollingerUpper }
	middleBand getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.BollingerMiddle }
	lowerBand  getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.BollingerLower }
	stochK     getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.StochK }
	williams   getter = func(_ models.PricePoint, s models.IndicatorSnapshot) *float64 { return s.WilliamsR }
)

var thresholdKinds = map[string]thresholdRule{
	"rsi_below":      below(rsiOf),
	"rsi_above":      above(rsiOf),
	"stoch_below":    below(stochK),
	"stoch_above":    above(stochK),
	"williams_below": below(williams),
	"williams_above": above(williams),
}

var plainKinds = map[string]Rule{
	"close_above_sma_short":   compare(closeOf, smaShort, false),
	"close_below_sma_short":   compare(closeOf, smaShort, true),
	"close_above_sma_long":    compare(closeOf, smaLong, false),
	"close_below_sma_long":    compare(closeOf, smaLong, true),
	"sma_short_above_long":    compare(smaShort, smaLong, false),
	"sma_short_below_long":    compare(smaShort, smaLong, true),
	"macd_above_signal":       compare(macdOf, signalOf, false),
	"macd_below_signal":       compare(macdOf, signalOf, true),
	"macd_cross_up":           cross(1),
	"macd_cross_down":         cross(-1),
	"close_below_lower_band":  compare(closeOf, lowerBand, true),
	"close_above_upper_band":  compare(closeOf, upperBand, false),
	"close_above_middle_band": compare(closeOf, middleBand, false),
}

// Kinds lists every rule kind CompileRule accepts.
func Kinds() []string {
	out := []string{"all", "any"}
	for k := range thresholdKinds {
		out = append(out, k)
	}
	for k := range plainKinds {
		out = append(out, k)
	}
	sort.Strings(out[2:])
	return out
}
