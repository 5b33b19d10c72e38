package mocks

import (
	"reflect"
	"sync"

	"github.com/dep2p/go-cns/pkg/interfaces"
)

// MockEventBus 模拟 EventBus 接口实现
//
// 订阅按事件的具体类型（而非指针值）归类，与真实总线一致。
type MockEventBus struct {
	mu   sync.RWMutex
	subs map[reflect.Type][]*MockSubscription

	// 可覆盖的方法
	SubscribeFunc func(eventType interface{}, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error)
	EmitterFunc   func(eventType interface{}, opts ...interfaces.EmitterOpt) (interfaces.Emitter, error)

	// 调用记录
	SubscribeCalls []reflect.Type
}

// MockSubscription 模拟 Subscription 接口实现
type MockSubscription struct {
	typ      reflect.Type
	ch       chan interface{}
	lossless bool
	bus      *MockEventBus

	mu     sync.RWMutex
	closed bool
}

// MockEmitter 模拟 Emitter 接口实现
type MockEmitter struct {
	typ reflect.Type
	bus *MockEventBus
}

// NewMockEventBus 创建 MockEventBus
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{subs: make(map[reflect.Type][]*MockSubscription)}
}

func eventTypeOf(eventType interface{}) reflect.Type {
	t := reflect.TypeOf(eventType)
	if t != nil && t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// Subscribe 订阅指定类型的事件
func (m *MockEventBus) Subscribe(eventType interface{}, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	typ := eventTypeOf(eventType)

	m.mu.Lock()
	m.SubscribeCalls = append(m.SubscribeCalls, typ)
	m.mu.Unlock()

	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(eventType, opts...)
	}

	settings := &interfaces.SubscriptionSettings{Buffer: 16}
	for _, opt := range opts {
		opt(settings)
	}
	sub := &MockSubscription{
		typ:      typ,
		ch:       make(chan interface{}, settings.Buffer),
		lossless: settings.Lossless,
		bus:      m,
	}

	m.mu.Lock()
	m.subs[typ] = append(m.subs[typ], sub)
	m.mu.Unlock()
	return sub, nil
}

// Emitter 获取指定事件类型的发射器
func (m *MockEventBus) Emitter(eventType interface{}, opts ...interfaces.EmitterOpt) (interfaces.Emitter, error) {
	if m.EmitterFunc != nil {
		return m.EmitterFunc(eventType, opts...)
	}
	return &MockEmitter{typ: eventTypeOf(eventType), bus: m}, nil
}

// GetAllEventTypes 返回有订阅者的事件类型
func (m *MockEventBus) GetAllEventTypes() []interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]interface{}, 0, len(m.subs))
	for t := range m.subs {
		out = append(out, reflect.New(t).Interface())
	}
	return out
}

// Publish 向 evt 类型的订阅者投递事件
//
// 无损订阅阻塞等待，普通订阅缓冲区满时丢弃。
func (m *MockEventBus) Publish(evt interface{}) {
	m.mu.RLock()
	subs := append([]*MockSubscription(nil), m.subs[reflect.TypeOf(evt)]...)
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(evt)
	}
}

// Subscribers 返回指定事件类型的订阅者数量
func (m *MockEventBus) Subscribers(eventType interface{}) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[eventTypeOf(eventType)])
}

// ============================================================================
//                              MockSubscription
// ============================================================================

// Out 返回接收事件的通道
func (s *MockSubscription) Out() <-chan interface{} {
	return s.ch
}

// Close 取消订阅
func (s *MockSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	s.bus.mu.Lock()
	subs := s.bus.subs[s.typ]
	for i, sub := range subs {
		if sub == s {
			s.bus.subs[s.typ] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.bus.mu.Unlock()
	return nil
}

// IsClosed 检查是否已关闭
func (s *MockSubscription) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *MockSubscription) deliver(evt interface{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	if s.lossless {
		s.ch <- evt
		return
	}
	select {
	case s.ch <- evt:
	default:
	}
}

// ============================================================================
//                              MockEmitter
// ============================================================================

// Emit 发射事件
func (e *MockEmitter) Emit(event interface{}) error {
	e.bus.Publish(event)
	return nil
}

// Close 关闭发射器
func (e *MockEmitter) Close() error {
	return nil
}

var (
	_ interfaces.EventBus     = (*MockEventBus)(nil)
	_ interfaces.Subscription = (*MockSubscription)(nil)
	_ interfaces.Emitter      = (*MockEmitter)(nil)
)
