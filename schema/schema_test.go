package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grid-deployer-go/schema"
	"grid-deployer-go/strategy"
)

func testRegistry(t *testing.T) *strategy.Registry {
	t.Helper()
	reg := strategy.NewRegistry()
	cfg, err := strategy.NewGridStrategy()
	require.NoError(t, err)
	require.NoError(t, reg.Register(cfg))
	return reg
}

func TestValidateField_Required(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", []string{"baseline-io-ratio is required"}},
		{"whitespace", "   ", []string{"baseline-io-ratio is required"}},
		{"valid", "0.5", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := schema.ValidateField(reg, "grid", strategy.BindingBaselineRatio, tc.value)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateField_CustomMessage(t *testing.T) {
	reg := strategy.NewRegistry()
	cfg, err := strategy.NewStrategyConfig("fixture", "Fixture", "", "0", []strategy.FieldMetadata{
		{Binding: "amount", InputType: strategy.InputNumber, Required: true, Message: "Amount cannot be blank"},
	})
	require.NoError(t, err)
	require.NoError(t, reg.Register(cfg))

	got := schema.ValidateField(reg, "fixture", "amount", "")
	assert.Equal(t, []string{"Amount cannot be blank"}, got)
}

func TestValidateField_OptionalEmptyAlwaysValid(t *testing.T) {
	reg := strategy.NewRegistry()
	cfg, err := strategy.NewStrategyConfig("fixture", "Fixture", "", "0", []strategy.FieldMetadata{
		{Binding: "slippage", InputType: strategy.InputNumber, Min: "0", Max: "1"},
	})
	require.NoError(t, err)
	require.NoError(t, reg.Register(cfg))

	// 空值不触发 number/min/max 规则
	assert.Empty(t, schema.ValidateField(reg, "fixture", "slippage", ""))
	assert.Empty(t, schema.ValidateField(reg, "fixture", "slippage", "  "))
	// 非空值正常验证
	assert.Equal(t, []string{"Must be a valid number"}, schema.ValidateField(reg, "fixture", "slippage", "abc"))
}

func TestValidateField_NumericBounds(t *testing.T) {
	reg := testRegistry(t)

	cases := []struct {
		name    string
		binding string
		value   string
		want    []string
	}{
		{"not a number", strategy.BindingGrowthRate, "fast", []string{"Must be a valid number"}},
		{"below min", strategy.BindingGrowthRate, "-0.1", []string{"Must be at least 0"}},
		{"above max", strategy.BindingGrowthRate, "1.5", []string{"Must be at most 1"}},
		{"at min", strategy.BindingGrowthRate, "0", []string{}},
		{"at max", strategy.BindingGrowthRate, "1", []string{}},
		{"inside range", strategy.BindingGrowthRate, "0.05", []string{}},
		{"infinity rejected", strategy.BindingTrancheSize, "Inf", []string{"Must be a valid number"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := schema.ValidateField(reg, "grid", tc.binding, tc.value)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateField_UnknownBindingSilentNoOp(t *testing.T) {
	reg := testRegistry(t)
	assert.Empty(t, schema.ValidateField(reg, "grid", "no-such-binding", "whatever"))
	assert.Empty(t, schema.ValidateField(reg, "no-such-strategy", "tranche-size", "whatever"))
}

func TestValidateField_Idempotent(t *testing.T) {
	reg := testRegistry(t)
	first := schema.ValidateField(reg, "grid", strategy.BindingGrowthRate, "-3")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, schema.ValidateField(reg, "grid", strategy.BindingGrowthRate, "-3"))
	}
}

func TestSchema_SafeParseAggregate(t *testing.T) {
	reg := testRegistry(t)
	s := schema.ForStrategy(reg, "grid")
	require.NotNil(t, s)

	res := s.SafeParse(map[string]string{
		strategy.BindingBaselineRatio: "0.5",
		strategy.BindingGrowthRate:    "abc",
		strategy.BindingTrancheSize:   "",
	})
	require.False(t, res.Success)

	paths := make(map[string][]string)
	for _, e := range res.Errors {
		paths[e.Path] = append(paths[e.Path], e.Message)
	}
	assert.Equal(t, []string{"Must be a valid number"}, paths["parameters.io-ratio-growth"])
	assert.Equal(t, []string{"tranche-size is required"}, paths["parameters.tranche-size"])
	assert.NotContains(t, paths, "parameters.baseline-io-ratio")

	ok := s.SafeParse(map[string]string{
		strategy.BindingBaselineRatio: "0.5",
		strategy.BindingGrowthRate:    "0.1",
		strategy.BindingTrancheSize:   "100",
	})
	require.True(t, ok.Success)
	assert.Equal(t, "0.1", ok.Values["parameters.io-ratio-growth"])
	assert.Empty(t, ok.Errors)
}

func TestSchema_UnknownStrategyNil(t *testing.T) {
	reg := testRegistry(t)
	assert.Nil(t, schema.ForStrategy(reg, "momentum"))
}
