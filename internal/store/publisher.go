package store

import "sync"

// Event 一次状态变化通知。
type Event struct {
	Name   string
	Fields map[string]interface{}
}

// Publisher 一个轻量事件分发器。慢订阅者丢事件而不是阻塞写入方。
type Publisher struct {
	mu   sync.RWMutex
	subs []chan Event
}

func NewPublisher() *Publisher {
	return &Publisher{subs: make([]chan Event, 0)}
}

func (p *Publisher) Subscribe() <-chan Event {
	ch := make(chan Event, 8)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Unsubscribe 移除订阅并关闭其通道；之后的 Publish 不再投递给它。
func (p *Publisher) Unsubscribe(ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, sub := range p.subs {
		if (<-chan Event)(sub) == ch {
			p.subs = append(p.subs[:i], p.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (p *Publisher) Publish(e Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
