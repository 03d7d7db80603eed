// Package schema builds executable validators from strategy field metadata
// at run time. Rules live in a declarative table (rules.go) evaluated by one
// generic interpreter, so the rule set stays independently testable.
package schema

import (
	"strings"

	"grid-deployer-go/strategy"
)

// FieldError 单条验证错误，Path 形如 parameters.<binding>。
type FieldError struct {
	Path    string
	Message string
}

// Result is the safe-parse envelope: either Success with the accepted
// values, or the accumulated errors. Never both.
type Result struct {
	Success bool
	Values  map[string]string
	Errors  []FieldError
}

// FieldSchema 单字段验证器。
type FieldSchema struct {
	meta strategy.FieldMetadata
	path string
}

// Path returns the parameter path this field validates.
func (f *FieldSchema) Path() string { return f.path }

// SafeParse evaluates every applicable rule against value. Rules do not
// short-circuit: a field may accumulate multiple messages.
func (f *FieldSchema) SafeParse(value string) Result {
	empty := strings.TrimSpace(value) == ""

	var errs []FieldError
	for _, r := range fieldRules {
		if !r.applies(f.meta, value, empty) {
			continue
		}
		if msg, ok := r.check(f.meta, value); !ok {
			errs = append(errs, FieldError{Path: f.path, Message: msg})
		}
	}
	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Success: true, Values: map[string]string{f.path: value}}
}

// Schema 聚合参数集验证器，字段顺序与声明顺序一致。
type Schema struct {
	fields []*FieldSchema
}

// Build 根据字段元数据构建聚合验证器。
func Build(fields []strategy.FieldMetadata) *Schema {
	s := &Schema{fields: make([]*FieldSchema, 0, len(fields))}
	for _, meta := range fields {
		s.fields = append(s.fields, &FieldSchema{
			meta: meta,
			path: "parameters." + meta.Binding,
		})
	}
	return s
}

// ForStrategy 从注册表构建某个策略的聚合验证器；策略不存在返回 nil。
func ForStrategy(reg *strategy.Registry, strategyKey string) *Schema {
	cfg := reg.Get(strategyKey)
	if cfg == nil {
		return nil
	}
	return Build(cfg.Fields())
}

// SafeParse validates the whole parameter set. Values are keyed by binding;
// errors carry the full parameters.<binding> path.
func (s *Schema) SafeParse(values map[string]string) Result {
	accepted := make(map[string]string, len(s.fields))
	var errs []FieldError
	for _, f := range s.fields {
		r := f.SafeParse(values[f.meta.Binding])
		if r.Success {
			accepted[f.path] = values[f.meta.Binding]
			continue
		}
		errs = append(errs, r.Errors...)
	}
	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Success: true, Values: accepted}
}

// ValidateField validates a single binding of a strategy and returns the
// error messages. An unknown strategy or binding yields an empty slice;
// callers must not infer field existence from an empty result.
func ValidateField(reg *strategy.Registry, strategyKey, binding, value string) []string {
	cfg := reg.Get(strategyKey)
	if cfg == nil {
		return []string{}
	}
	meta, ok := cfg.Field(binding)
	if !ok {
		return []string{}
	}
	fs := &FieldSchema{meta: meta, path: "parameters." + meta.Binding}
	r := fs.SafeParse(value)
	if r.Success {
		return []string{}
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return msgs
}
