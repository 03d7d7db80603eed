package strategy

import (
	"fmt"
	"sync"
)

// CalcFunc 根据已验证的字段值计算结果（纯函数）。
type CalcFunc func(values map[string]string) float64

// LevelsFunc 根据字段值生成价格阶梯。
type LevelsFunc func(values map[string]string) []GridLevel

// StrategyConfig bundles everything the form layer needs for one strategy:
// ordered field metadata plus the calculation functions. Immutable once
// registered.
type StrategyConfig struct {
	Key         string
	Name        string
	Description string
	Version     string

	fields []FieldMetadata

	MaxReturns CalcFunc
	Levels     LevelsFunc
}

// NewStrategyConfig 构建策略配置；字段顺序即声明顺序，后续不可变。
func NewStrategyConfig(key, name, description, version string, fields []FieldMetadata) (*StrategyConfig, error) {
	if key == "" {
		return nil, fmt.Errorf("strategy key is required")
	}
	seen := make(map[string]bool, len(fields))
	ordered := make([]FieldMetadata, 0, len(fields))
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("strategy %s: %w", key, err)
		}
		if seen[f.Binding] {
			return nil, fmt.Errorf("strategy %s: duplicate binding %s", key, f.Binding)
		}
		seen[f.Binding] = true
		ordered = append(ordered, f)
	}
	return &StrategyConfig{
		Key:         key,
		Name:        name,
		Description: description,
		Version:     version,
		fields:      ordered,
	}, nil
}

// Fields returns field metadata in declaration order. The order is
// load-bearing: schema generation iterates it as-is.
func (c *StrategyConfig) Fields() []FieldMetadata {
	out := make([]FieldMetadata, len(c.fields))
	copy(out, c.fields)
	return out
}

// Field 按 binding 查找单个字段，不存在返回 false。
func (c *StrategyConfig) Field(binding string) (FieldMetadata, bool) {
	for _, f := range c.fields {
		if f.Binding == binding {
			return f, true
		}
	}
	return FieldMetadata{}, false
}

// RequiredBindings 返回所有必填字段的 binding，保持声明顺序。
func (c *StrategyConfig) RequiredBindings() []string {
	out := make([]string, 0, len(c.fields))
	for _, f := range c.fields {
		if f.Required {
			out = append(out, f.Binding)
		}
	}
	return out
}

// Registry 策略注册表。显式对象而非全局单例，便于测试替换。
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*StrategyConfig
	order   []string
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*StrategyConfig)}
}

// Register 登记一个策略配置；重复 key 报错。
func (r *Registry) Register(cfg *StrategyConfig) error {
	if cfg == nil {
		return fmt.Errorf("nil strategy config")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[cfg.Key]; ok {
		return fmt.Errorf("strategy %s already registered", cfg.Key)
	}
	r.configs[cfg.Key] = cfg
	r.order = append(r.order, cfg.Key)
	return nil
}

// Get returns the config for key, or nil when absent. Never errors.
func (r *Registry) Get(key string) *StrategyConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.configs[key]
}

// Keys 返回注册顺序的策略 key 列表。
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
