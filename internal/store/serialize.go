package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"grid-deployer-go/gateway"
)

// serializedState 会话内可往返的表单快照。对外只是不透明字符串。
type serializedState struct {
	StrategyKey string                       `json:"strategyKey"`
	FieldValues map[string]string            `json:"fieldValues"`
	Tokens      map[string]gateway.TokenInfo `json:"tokens"`
}

// SerializeState 将当前表单状态序列化为不透明字符串。
func (s *Store) SerializeState() (string, error) {
	s.mu.RLock()
	snap := serializedState{
		StrategyKey: s.strategyKey,
		FieldValues: make(map[string]string, len(s.fieldValues)),
		Tokens:      make(map[string]gateway.TokenInfo, len(s.tokens)),
	}
	for k, v := range s.fieldValues {
		snap.FieldValues[k] = v
	}
	for k, v := range s.tokens {
		snap.Tokens[k] = v
	}
	s.mu.RUnlock()

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("serialize state: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// RestoreState 从序列化字符串恢复表单状态并重算派生值。
func (s *Store) RestoreState(blob string) error {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	var snap serializedState
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if snap.StrategyKey != s.strategyKey {
		return fmt.Errorf("restore state: strategy %q does not match %q", snap.StrategyKey, s.strategyKey)
	}

	s.mu.Lock()
	s.fieldValues = make(map[string]string, len(snap.FieldValues))
	for k, v := range snap.FieldValues {
		s.fieldValues[k] = v
	}
	s.tokens = make(map[string]gateway.TokenInfo, len(snap.Tokens))
	for k, v := range snap.Tokens {
		s.tokens[k] = v
	}
	s.revalidateLocked()
	s.mu.Unlock()
	s.emit("state_restored", nil)
	return nil
}
