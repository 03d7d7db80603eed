package store

import (
	"sync"

	"grid-deployer-go/gateway"
	"grid-deployer-go/metrics"
	"grid-deployer-go/schema"
	"grid-deployer-go/strategy"
)

// EventSink 接收状态变化事件（可观测性钩子）。
type EventSink func(event string, fields map[string]interface{})

// Store 维护一次部署配置的表单状态（字段值、代币选择、钱包快照），
// 是字段值的唯一写入方。每次变更后同步重算派生状态，无陈旧窗口。
type Store struct {
	mu sync.RWMutex

	registry    *strategy.Registry
	strategyKey string
	schema      *schema.Schema

	fieldValues map[string]string
	tokens      map[string]gateway.TokenInfo // slot -> 已选代币
	tokenSlots  []string                     // 必须完成选择的槽位

	wallet    gateway.WalletSession
	deploying bool

	validation   ValidationState
	isValidating bool

	sink      EventSink
	publisher *Publisher
	metrics   *metrics.Metrics
}

// Config 表单存储配置
type Config struct {
	Registry    *strategy.Registry
	StrategyKey string
	TokenSlots  []string // 例如 ["input", "output"]
	Wallet      gateway.WalletSession
	Sink        EventSink
	Metrics     *metrics.Metrics
}

// New 创建表单存储并立即做一次派生计算。
func New(cfg Config) *Store {
	s := &Store{
		registry:    cfg.Registry,
		strategyKey: cfg.StrategyKey,
		schema:      schema.ForStrategy(cfg.Registry, cfg.StrategyKey),
		fieldValues: make(map[string]string),
		tokens:      make(map[string]gateway.TokenInfo),
		tokenSlots:  cfg.TokenSlots,
		wallet:      cfg.Wallet,
		sink:        cfg.Sink,
		publisher:   NewPublisher(),
		metrics:     cfg.Metrics,
	}
	s.mu.Lock()
	s.recomputeLocked()
	s.mu.Unlock()
	return s
}

// SetFieldValue 更新一个字段值并同步重算验证状态。
func (s *Store) SetFieldValue(binding, value string) {
	s.mu.Lock()
	s.fieldValues[binding] = value
	s.revalidateLocked()
	s.mu.Unlock()
	s.emit("field_changed", map[string]interface{}{"binding": binding})
}

// FieldValue 读取一个字段值。
func (s *Store) FieldValue(binding string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fieldValues[binding]
}

// FieldValues 返回全部字段值副本。
func (s *Store) FieldValues() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.fieldValues))
	for k, v := range s.fieldValues {
		out[k] = v
	}
	return out
}

// SetToken 登记某个槽位的代币选择。
func (s *Store) SetToken(slot string, info gateway.TokenInfo) {
	s.mu.Lock()
	s.tokens[slot] = info
	s.recomputeLocked()
	s.mu.Unlock()
	s.emit("token_selected", map[string]interface{}{"slot": slot, "address": info.Address})
}

// ClearToken 清除某个槽位的代币选择。
func (s *Store) ClearToken(slot string) {
	s.mu.Lock()
	delete(s.tokens, slot)
	s.recomputeLocked()
	s.mu.Unlock()
	s.emit("token_cleared", map[string]interface{}{"slot": slot})
}

// Token 读取某个槽位的代币。
func (s *Store) Token(slot string) (gateway.TokenInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.tokens[slot]
	return info, ok
}

// SetDeploying 镜像部署中标志（由编排器状态回调驱动）。
func (s *Store) SetDeploying(v bool) {
	s.mu.Lock()
	s.deploying = v
	s.recomputeLocked()
	s.mu.Unlock()
}

// SetValidating 标记防抖验证在途。
func (s *Store) SetValidating(v bool) {
	s.mu.Lock()
	s.isValidating = v
	s.validation.IsValidating = v
	s.mu.Unlock()
}

// Reset 清空字段值与代币选择，部署成功后由编排器调用。
func (s *Store) Reset() {
	s.mu.Lock()
	s.fieldValues = make(map[string]string)
	s.tokens = make(map[string]gateway.TokenInfo)
	s.recomputeLocked()
	s.mu.Unlock()
	s.emit("form_reset", nil)
}

func (s *Store) emit(event string, fields map[string]interface{}) {
	if s.sink != nil {
		s.sink(event, fields)
	}
	if s.publisher != nil {
		s.publisher.Publish(Event{Name: event, Fields: fields})
	}
}

// Events 订阅状态变化事件。
func (s *Store) Events() <-chan Event {
	return s.publisher.Subscribe()
}

// Unsubscribe 退订并关闭 Events 返回的通道。
func (s *Store) Unsubscribe(ch <-chan Event) {
	s.publisher.Unsubscribe(ch)
}
