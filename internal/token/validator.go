// Package token validates token-address input against the gateway without a
// network call per keystroke: requests are trailing-edge debounced, stamped
// with a per-slot generation counter, and bounded by a hard timeout.
package token

import (
	"errors"
	"sync"
	"time"

	"grid-deployer-go/gateway"
)

// ErrTimeout 验证超时，防止无限等待。
var ErrTimeout = errors.New("token validation timed out")

// LookupFunc 实际的代币查询（gateway 的 token accessor）。
type LookupFunc func(address string) (gateway.TokenInfo, error)

// ResultFunc 接收最终结果；过期响应不会到达这里。
type ResultFunc func(slot string, info gateway.TokenInfo, err error)

// Config 验证器配置
type Config struct {
	Lookup   LookupFunc
	OnResult ResultFunc
	Debounce time.Duration // 静默窗口，默认 1s
	Timeout  time.Duration // 强制超时，默认 10s
}

// Validator 按槽位管理防抖与在途验证。
// 一次编辑不会取消已发出的查询；靠代数戳丢弃过期响应（last write wins）。
type Validator struct {
	lookup   LookupFunc
	onResult ResultFunc

	mu       sync.Mutex
	debounce time.Duration
	timeout  time.Duration
	gens     map[string]uint64
	timers   map[string]*time.Timer
}

// New 创建验证器。
func New(cfg Config) (*Validator, error) {
	if cfg.Lookup == nil {
		return nil, errors.New("lookup is required")
	}
	if cfg.OnResult == nil {
		return nil, errors.New("result handler is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Validator{
		lookup:   cfg.Lookup,
		onResult: cfg.OnResult,
		debounce: cfg.Debounce,
		timeout:  cfg.Timeout,
		gens:     make(map[string]uint64),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Request schedules a validation for slot. A newer request within the quiet
// window replaces the pending one; only the survivor reaches the gateway.
// Returns the generation stamp issued for this request.
func (v *Validator) Request(slot, address string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.gens[slot]++
	gen := v.gens[slot]

	if t, ok := v.timers[slot]; ok {
		t.Stop()
	}
	v.timers[slot] = time.AfterFunc(v.debounce, func() {
		v.run(slot, address, gen)
	})
	return gen
}

// SetPacing 在线调整静默窗口与超时（配置热更新）。
// 已排期的请求仍按旧窗口触发，之后的请求用新值。
func (v *Validator) SetPacing(debounce, timeout time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if debounce > 0 {
		v.debounce = debounce
	}
	if timeout > 0 {
		v.timeout = timeout
	}
}

// Cancel abandons any pending validation for slot. An already-issued gateway
// call keeps running but its response will be discarded as stale.
func (v *Validator) Cancel(slot string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gens[slot]++
	if t, ok := v.timers[slot]; ok {
		t.Stop()
		delete(v.timers, slot)
	}
}

// Generation 返回槽位当前代数（测试用）。
func (v *Validator) Generation(slot string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gens[slot]
}

type lookupResult struct {
	info gateway.TokenInfo
	err  error
}

func (v *Validator) run(slot, address string, gen uint64) {
	v.mu.Lock()
	latest := v.gens[slot] == gen
	timeout := v.timeout
	v.mu.Unlock()
	if !latest {
		return
	}

	ch := make(chan lookupResult, 1)
	go func() {
		info, err := v.lookup(address)
		ch <- lookupResult{info: info, err: err}
	}()

	var res lookupResult
	select {
	case res = <-ch:
	case <-time.After(timeout):
		res = lookupResult{err: ErrTimeout}
	}

	// 应用前再次核对代数：晚到的响应直接丢弃
	if !v.isLatest(slot, gen) {
		return
	}
	v.onResult(slot, res.info, res.err)
}

func (v *Validator) isLatest(slot string, gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gens[slot] == gen
}
