package eventbus

import (
	"reflect"
	"sync"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 订阅
type Subscription struct {
	bus      *Bus
	typ      reflect.Type
	out      chan interface{}
	done     chan struct{}
	lossless bool

	// mu 保护 out 的关闭：投递持读锁，Close 持写锁
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// deliver 投递事件；返回 false 表示事件被丢弃
//
// 已关闭的订阅视为投递成功（不计入丢弃）。
func (s *Subscription) deliver(event interface{}) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return true
	}

	if s.lossless {
		select {
		case s.out <- event:
		case <-s.done:
		}
		return true
	}

	select {
	case s.out <- event:
		return true
	default:
		return false
	}
}

// Close 取消订阅
//
// 并发安全，可以多次调用。关闭后：
//  1. 唤醒阻塞中的无损投递
//  2. 从总线移除订阅
//  3. 关闭事件通道
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.bus.removeSub(s)

		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
	})
	return nil
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Emit 发射事件
func (e *Emitter) Emit(event interface{}) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	e.node.emit(event)
	return nil
}

// Close 关闭发射器
//
// 引用计数归零时尝试删除节点。
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}
