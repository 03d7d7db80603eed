package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件变化，带冷却时间避免频繁重载。
type Watcher struct {
	path     string
	cooldown time.Duration
	watcher  *fsnotify.Watcher
	onUpdate func(AppConfig)

	mu         sync.Mutex
	lastReload time.Time

	stopChan chan struct{}
	doneChan chan struct{}
}

// NewWatcher 创建配置监听器；onUpdate 在每次成功重载后收到新配置。
func NewWatcher(path string, cooldown time.Duration, onUpdate func(AppConfig)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	return &Watcher{
		path:     path,
		cooldown: cooldown,
		watcher:  fw,
		onUpdate: onUpdate,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start 启动监听
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}
	go w.watch(ctx)
	return nil
}

// Stop 停止监听
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		// 已经停止
	default:
		close(w.stopChan)
	}

	select {
	case <-w.doneChan:
	case <-time.After(1 * time.Second):
		// 超时，watch goroutine 可能没有启动
	}
	return w.watcher.Close()
}

// Health 监听器是否仍在运行。
func (w *Watcher) Health() error {
	select {
	case <-w.stopChan:
		return fmt.Errorf("watcher stopped")
	default:
		return nil
	}
}

// watch 监听文件变化
func (w *Watcher) watch(ctx context.Context) {
	defer close(w.doneChan)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// 只处理写入和创建事件
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create {
				w.handleChange()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// 监听错误不中断循环
		}
	}
}

// handleChange 冷却窗口内的重复事件被忽略；加载失败保留旧配置。
func (w *Watcher) handleChange() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if time.Since(w.lastReload) < w.cooldown {
		return
	}

	cfg, err := LoadWithEnvOverrides(w.path)
	if err != nil {
		return
	}
	w.lastReload = time.Now()
	if w.onUpdate != nil {
		w.onUpdate(cfg)
	}
}
