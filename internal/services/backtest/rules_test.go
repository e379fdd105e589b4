package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinScope/internal/domain/models"
)

func TestCompileRuleErrors(t *testing.T) {
	cases := []struct {
		spec  models.RuleSpec
		field string
	}{
		{models.RuleSpec{Kind: "moon_phase"}, "rule.kind"},
		{models.RuleSpec{Kind: "rsi_below"}, "rule.threshold"},
		{models.RuleSpec{Kind: "all"}, "rule.rules"},
		{models.RuleSpec{Kind: "any", Rules: []models.RuleSpec{{Kind: "macd_cross_up"}, {Kind: "stoch_above"}}}, "rule.rules[1].threshold"},
	}
	for _, c := range cases {
		_, err := CompileRule(c.spec)
		var ie *models.InvalidInputError
		require.ErrorAs(t, err, &ie, c.field)
		assert.Equal(t, c.field, ie.Field)
	}

	_, err := FromDefinition(models.StrategyDefinition{Name: "x", Entry: models.RuleSpec{Kind: "rsi_below", Threshold: th(30)}, Exit: models.RuleSpec{Kind: "nope"}})
	var ie *models.InvalidInputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "exit.kind", ie.Field)
}

func TestThresholdRules(t *testing.T) {
	r, err := CompileRule(models.RuleSpec{Kind: "rsi_below", Threshold: th(30)})
	require.NoError(t, err)

	sig, ok := r(models.PricePoint{}, models.IndicatorSnapshot{})
	assert.False(t, ok, "undefined RSI")
	assert.False(t, sig)

	sig, ok = r(models.PricePoint{}, models.IndicatorSnapshot{RSI: th(25)})
	assert.True(t, ok)
	assert.True(t, sig)

	sig, ok = r(models.PricePoint{}, models.IndicatorSnapshot{RSI: th(35)})
	assert.True(t, ok)
	assert.False(t, sig)
}

func TestCompositeRulesAreThreeValued(t *testing.T) {
	all, err := CompileRule(models.RuleSpec{Kind: "all", Rules: []models.RuleSpec{
		{Kind: "rsi_below", Threshold: th(30)},
		{Kind: "stoch_below", Threshold: th(20)},
	}})
	require.NoError(t, err)
	anyRule, err := CompileRule(models.RuleSpec{Kind: "any", Rules: []models.RuleSpec{
		{Kind: "rsi_below", Threshold: th(30)},
		{Kind: "stoch_below", Threshold: th(20)},
	}})
	require.NoError(t, err)

	p := models.PricePoint{}
	cases := []struct {
		snap          models.IndicatorSnapshot
		allSig, allOK bool
		anySig, anyOK bool
	}{
		{models.IndicatorSnapshot{RSI: th(20), StochK: th(10)}, true, true, true, true},
		{models.IndicatorSnapshot{RSI: th(40), StochK: th(10)}, false, true, true, true},
		{models.IndicatorSnapshot{RSI: th(40)}, false, true, false, false},
		{models.IndicatorSnapshot{RSI: th(20)}, false, false, true, true},
		{models.IndicatorSnapshot{}, false, false, false, false},
	}
	for i, c := range cases {
		sig, ok := all(p, c.snap)
		assert.Equal(t, c.allSig, sig, "all case %d", i)
		assert.Equal(t, c.allOK, ok, "all case %d", i)
		sig, ok = anyRule(p, c.snap)
		assert.Equal(t, c.anySig, sig, "any case %d", i)
		assert.Equal(t, c.anyOK, ok, "any case %d", i)
	}
}

func TestPriceRules(t *testing.T) {
	r, err := CompileRule(models.RuleSpec{Kind: "close_below_lower_band"})
	require.NoError(t, err)
	sig, ok := r(models.PricePoint{Close: 9}, models.IndicatorSnapshot{BollingerLower: th(10)})
	assert.True(t, ok)
	assert.True(t, sig)

	cross, err := CompileRule(models.RuleSpec{Kind: "macd_cross_up"})
	require.NoError(t, err)
	sig, ok = cross(models.PricePoint{}, models.IndicatorSnapshot{MACD: th(1), MACDSignal: th(0), PrevMACD: th(-1), PrevMACDSignal: th(0)})
	assert.True(t, ok)
	assert.True(t, sig)
	_, ok = cross(models.PricePoint{}, models.IndicatorSnapshot{MACD: th(1), MACDSignal: th(0)})
	assert.False(t, ok)
}

func TestBuiltinsCompile(t *testing.T) {
	names := map[string]bool{}
	for _, def := range Builtins() {
		_, err := FromDefinition(def)
		require.NoError(t, err, def.Name)
		names[def.Name] = true
	}
	for _, n := range []string{"rsi_reversion", "sma_crossover", "macd_momentum", "bollinger_reversion", "stochastic_reversal"} {
		assert.True(t, names[n], n)
	}
	assert.Contains(t, Kinds(), "williams_above")
}
