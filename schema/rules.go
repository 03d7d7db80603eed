package schema

import (
	"math"
	"strconv"

	"grid-deployer-go/strategy"
)

// rule 一条验证规则：applies 判断是否适用，check 返回失败消息。
type rule struct {
	name    string
	applies func(meta strategy.FieldMetadata, value string, empty bool) bool
	check   func(meta strategy.FieldMetadata, value string) (msg string, ok bool)
}

// parseFinite 解析有限浮点数。
func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// fieldRules 按固定顺序评估。空值：必填字段只触发 required 规则，
// 非必填字段不触发任何规则。
var fieldRules = []rule{
	{
		name: "required",
		applies: func(meta strategy.FieldMetadata, _ string, empty bool) bool {
			return meta.Required && empty
		},
		check: func(meta strategy.FieldMetadata, _ string) (string, bool) {
			if meta.Message != "" {
				return meta.Message, false
			}
			return meta.Binding + " is required", false
		},
	},
	{
		name: "number",
		applies: func(meta strategy.FieldMetadata, _ string, empty bool) bool {
			return !empty && meta.InputType == strategy.InputNumber
		},
		check: func(_ strategy.FieldMetadata, value string) (string, bool) {
			if _, ok := parseFinite(value); !ok {
				return "Must be a valid number", false
			}
			return "", true
		},
	},
	{
		name: "min",
		applies: func(meta strategy.FieldMetadata, _ string, empty bool) bool {
			return !empty && meta.Min != ""
		},
		check: func(meta strategy.FieldMetadata, value string) (string, bool) {
			v, ok := parseFinite(value)
			if !ok {
				// 解析失败交给 number 规则报告
				return "", true
			}
			minV, ok := parseFinite(meta.Min)
			if !ok {
				return "", true
			}
			if v < minV {
				return "Must be at least " + meta.Min, false
			}
			return "", true
		},
	},
	{
		name: "max",
		applies: func(meta strategy.FieldMetadata, _ string, empty bool) bool {
			return !empty && meta.Max != ""
		},
		check: func(meta strategy.FieldMetadata, value string) (string, bool) {
			v, ok := parseFinite(value)
			if !ok {
				return "", true
			}
			maxV, ok := parseFinite(meta.Max)
			if !ok {
				return "", true
			}
			if v > maxV {
				return "Must be at most " + meta.Max, false
			}
			return "", true
		},
	},
}
