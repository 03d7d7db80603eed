package strategy

import (
	"fmt"
	"strconv"
	"strings"
)

// InputType 字段输入类型
type InputType string

const (
	InputText    InputType = "text"
	InputNumber  InputType = "number"
	InputAddress InputType = "address"
)

// FieldMetadata describes one user-facing strategy parameter. Min/Max are
// numeric strings so "unset" is distinguishable from zero.
type FieldMetadata struct {
	Binding   string    `yaml:"binding"`
	Name      string    `yaml:"name"`
	InputType InputType `yaml:"input_type"`
	Min       string    `yaml:"min"`
	Max       string    `yaml:"max"`
	Required  bool      `yaml:"required"`
	HelpText  string    `yaml:"help_text"`
	Message   string    `yaml:"message"` // custom required-error message
}

// Validate 检查元数据自身的一致性（min ≤ max）。
func (f FieldMetadata) Validate() error {
	if strings.TrimSpace(f.Binding) == "" {
		return fmt.Errorf("field binding is required")
	}
	if f.Min != "" && f.Max != "" {
		minV, err := strconv.ParseFloat(f.Min, 64)
		if err != nil {
			return fmt.Errorf("field %s: invalid min %q", f.Binding, f.Min)
		}
		maxV, err := strconv.ParseFloat(f.Max, 64)
		if err != nil {
			return fmt.Errorf("field %s: invalid max %q", f.Binding, f.Max)
		}
		if minV > maxV {
			return fmt.Errorf("field %s: min %s > max %s", f.Binding, f.Min, f.Max)
		}
	}
	return nil
}
