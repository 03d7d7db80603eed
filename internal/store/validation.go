package store

import "strings"

// ValidationState 聚合的验证状态，完全由表单输入派生。
type ValidationState struct {
	IsValid      bool
	Errors       map[string][]string // parameters.<binding> -> 消息列表
	IsValidating bool
}

// fallbackRequiredBindings 注册表查不到策略时的兜底必填列表。
var fallbackRequiredBindings = []string{
	"baseline-io-ratio",
	"io-ratio-growth",
	"tranche-size",
}

// recomputeLocked 同步重算验证状态；调用方必须持有写锁。
func (s *Store) recomputeLocked() {
	state := ValidationState{
		IsValid:      true,
		Errors:       make(map[string][]string),
		IsValidating: s.isValidating,
	}
	if s.schema != nil {
		result := s.schema.SafeParse(s.fieldValues)
		state.IsValid = result.Success
		for _, e := range result.Errors {
			state.Errors[e.Path] = append(state.Errors[e.Path], e.Message)
		}
	}
	s.validation = state
}

// revalidateLocked 字段内容变化后的重算，计入验证指标。
// 代币选择、部署标志等派生重算不走这里，不污染验证计数。
func (s *Store) revalidateLocked() {
	s.recomputeLocked()
	if s.metrics != nil {
		s.metrics.RecordValidation(s.validation.IsValid)
	}
}

// Validation 返回当前验证状态副本。
func (s *Store) Validation() ValidationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := ValidationState{
		IsValid:      s.validation.IsValid,
		IsValidating: s.validation.IsValidating,
		Errors:       make(map[string][]string, len(s.validation.Errors)),
	}
	for k, v := range s.validation.Errors {
		out.Errors[k] = append([]string(nil), v...)
	}
	return out
}

// HasRequiredValues reports whether every required binding has a usable
// value. This is a string-level check: a trimmed value of "" or the literal
// strings "0" / "NaN" counts as no value, deliberately not a numeric
// comparison.
func (s *Store) HasRequiredValues() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasRequiredValuesLocked()
}

func (s *Store) hasRequiredValuesLocked() bool {
	required := fallbackRequiredBindings
	if s.registry != nil {
		if cfg := s.registry.Get(s.strategyKey); cfg != nil {
			required = cfg.RequiredBindings()
		}
	}
	for _, binding := range required {
		v := strings.TrimSpace(s.fieldValues[binding])
		if v == "" || v == "0" || v == "NaN" {
			return false
		}
	}
	return true
}

// CanSubmit reports submit readiness: wallet connected, all token slots
// selected, required values present, zero validation errors and no
// deployment in flight.
func (s *Store) CanSubmit() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.wallet == nil || !s.wallet.Connected() {
		return false
	}
	for _, slot := range s.tokenSlots {
		if _, ok := s.tokens[slot]; !ok {
			return false
		}
	}
	if !s.hasRequiredValuesLocked() {
		return false
	}
	if !s.validation.IsValid || len(s.validation.Errors) > 0 {
		return false
	}
	if s.deploying {
		return false
	}
	return true
}
