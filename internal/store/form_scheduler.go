package store

import (
	"sync"
	"time"
)

// FlushFunc 把整表字段值推送到网关侧。
type FlushFunc func(values map[string]string)

// FormScheduler 合并表单编辑的网关同步：本地规则验证在每次编辑时
// 同步重算，网关同步在编辑停顿一个静默窗口后只执行一次（尾缘触发）。
type FormScheduler struct {
	store *Store
	flush FlushFunc

	mu     sync.Mutex
	window time.Duration
	timer  *time.Timer
	gen    uint64 // 每次编辑递增；过期的定时器回调直接丢弃
}

func NewFormScheduler(s *Store, window time.Duration, flush FlushFunc) *FormScheduler {
	if window <= 0 {
		window = 300 * time.Millisecond
	}
	return &FormScheduler{store: s, window: window, flush: flush}
}

// FieldEdited 写入字段并同步重算本地验证；网关同步进入静默窗口，
// 窗口内的后续编辑会把它往后推。
func (f *FormScheduler) FieldEdited(binding, value string) {
	f.store.SetFieldValue(binding, value)
	f.store.SetValidating(true)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	gen := f.gen
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.window, func() {
		f.run(gen)
	})
}

func (f *FormScheduler) run(gen uint64) {
	f.mu.Lock()
	latest := gen == f.gen
	f.mu.Unlock()
	if !latest {
		return
	}
	if f.flush != nil {
		f.flush(f.store.FieldValues())
	}
	f.store.SetValidating(false)
}

// Flush 立即执行挂起的网关同步，取消未到期的定时器。
func (f *FormScheduler) Flush() {
	f.mu.Lock()
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.mu.Unlock()

	if f.flush != nil {
		f.flush(f.store.FieldValues())
	}
	f.store.SetValidating(false)
}

// SetWindow 在线调整静默窗口；对已排期的同步不生效。
func (f *FormScheduler) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	f.mu.Lock()
	f.window = window
	f.mu.Unlock()
}
