package strategy

import (
	"math"
	"strconv"
)

// GridKey 网格策略在注册表中的 key。
const GridKey = "grid"

// Grid strategy bindings.
const (
	BindingBaselineRatio = "baseline-io-ratio"
	BindingGrowthRate    = "io-ratio-growth"
	BindingTrancheSize   = "tranche-size"
)

const (
	// visualLevels 阶梯可视化档位数
	visualLevels = 5
	// returnHorizon 收益预估累加的档位数（与可视化档位数不同，历史行为）
	returnHorizon = 10
)

// GridLevel 定义阶梯中的单个档位。
type GridLevel struct {
	Level  int     // 从 1 开始
	Price  float64 // 该档位价格
	Amount float64 // 档位下单量（tranche size）
	Total  float64 // Price * Amount
}

// gridInputs 解析三个参数；任一缺失、非数字或 <= 0 都视为整体无效。
func gridInputs(values map[string]string) (baseline, growth, tranche float64, ok bool) {
	baseline, err := strconv.ParseFloat(values[BindingBaselineRatio], 64)
	if err != nil || math.IsInf(baseline, 0) || math.IsNaN(baseline) || baseline <= 0 {
		return 0, 0, 0, false
	}
	growth, err = strconv.ParseFloat(values[BindingGrowthRate], 64)
	if err != nil || math.IsInf(growth, 0) || math.IsNaN(growth) || growth <= 0 {
		return 0, 0, 0, false
	}
	tranche, err = strconv.ParseFloat(values[BindingTrancheSize], 64)
	if err != nil || math.IsInf(tranche, 0) || math.IsNaN(tranche) || tranche <= 0 {
		return 0, 0, 0, false
	}
	return baseline, growth, tranche, true
}

// CalculateGridLevels computes the visualized price ladder from the raw
// field values. Invalid input yields an empty slice, never a partial ladder.
// price(i) = baseline * (1+growth)^i, 0-indexed.
func CalculateGridLevels(values map[string]string) []GridLevel {
	baseline, growth, tranche, ok := gridInputs(values)
	if !ok {
		return nil
	}
	levels := make([]GridLevel, 0, visualLevels)
	for i := 0; i < visualLevels; i++ {
		price := baseline * math.Pow(1+growth, float64(i))
		levels = append(levels, GridLevel{
			Level:  i + 1,
			Price:  price,
			Amount: tranche,
			Total:  price * tranche,
		})
	}
	return levels
}

// CalculateMaxReturns sums Total over a 10-level horizon. The horizon is
// deliberately wider than the 5-level visualization. Invalid input yields 0.
func CalculateMaxReturns(values map[string]string) float64 {
	baseline, growth, tranche, ok := gridInputs(values)
	if !ok {
		return 0
	}
	sum := 0.0
	for i := 0; i < returnHorizon; i++ {
		sum += baseline * math.Pow(1+growth, float64(i)) * tranche
	}
	return sum
}

// NewGridStrategy 返回固定价格阶梯策略的配置。
func NewGridStrategy() (*StrategyConfig, error) {
	fields := []FieldMetadata{
		{
			Binding:   BindingBaselineRatio,
			Name:      "Baseline ratio",
			InputType: InputNumber,
			Min:       "0",
			Required:  true,
			HelpText:  "Price at the first ladder level (input token per output token)",
		},
		{
			Binding:   BindingGrowthRate,
			Name:      "Growth rate",
			InputType: InputNumber,
			Min:       "0",
			Max:       "1",
			Required:  true,
			HelpText:  "Fractional price increase between consecutive levels",
		},
		{
			Binding:   BindingTrancheSize,
			Name:      "Tranche size",
			InputType: InputNumber,
			Min:       "0",
			Required:  true,
			HelpText:  "Token amount allocated to each ladder level",
		},
	}
	cfg, err := NewStrategyConfig(
		GridKey,
		"Grid",
		"Buy orders at geometrically increasing prices, each for a fixed amount",
		"1.0.0",
		fields,
	)
	if err != nil {
		return nil, err
	}
	cfg.MaxReturns = CalculateMaxReturns
	cfg.Levels = CalculateGridLevels
	return cfg, nil
}
