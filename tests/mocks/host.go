package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/types"
)

// ErrNoRoute MockHost 默认不建立任何远程链路
var ErrNoRoute = errors.New("mocks: no route")

// MockHost 模拟 Host 接口实现
//
// 默认行为是一个没有远程链路的单节点：端口表与服务表保存在内存中，
// 发往本节点的负载同步投递给端口处理器，发往其他节点返回 ErrNoRoute。
type MockHost struct {
	IDValue   types.NodeID
	AddrValue string
	Bus       *MockEventBus

	// 可覆盖的方法
	BindFunc    func(port uint64, handler interfaces.PortHandler) error
	BindAnyFunc func(handler interfaces.PortHandler) (uint64, error)
	SendFunc    func(ctx context.Context, node types.NodeID, port uint64, payload []byte) error
	TrySendFunc func(node types.NodeID, port uint64, payload []byte) error
	SendToFunc  func(ctx context.Context, loc types.Location, payload []byte) error
	ConnectFunc func(ctx context.Context, addr string) (types.NodeID, error)
	InstallFunc func(name string, svc interfaces.Service) error

	mu       sync.Mutex
	ports    map[uint64]interfaces.PortHandler
	services map[string]interfaces.Service
	nextPort uint64
	closed   bool

	// 调用记录
	BindCalls   []uint64
	UnbindCalls []uint64
	SendCalls   []SendCall
}

// SendCall 记录 Send/TrySend/SendTo 调用参数
type SendCall struct {
	Node    types.NodeID
	Port    uint64
	Payload []byte
}

// NewMockHost 创建 MockHost
func NewMockHost(id types.NodeID) *MockHost {
	return &MockHost{
		IDValue:  id,
		Bus:      NewMockEventBus(),
		ports:    make(map[uint64]interfaces.PortHandler),
		services: make(map[string]interfaces.Service),
		nextPort: 1024,
	}
}

// ID 返回节点标识
func (m *MockHost) ID() types.NodeID { return m.IDValue }

// Addr 返回节点地址
func (m *MockHost) Addr() string { return m.AddrValue }

// EventBus 返回事件总线
func (m *MockHost) EventBus() interfaces.EventBus { return m.Bus }

// Bind 绑定端口
func (m *MockHost) Bind(port uint64, handler interfaces.PortHandler) error {
	if m.BindFunc != nil {
		return m.BindFunc(port, handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ports[port]; ok {
		return errors.New("mocks: address in use")
	}
	m.ports[port] = handler
	m.BindCalls = append(m.BindCalls, port)
	return nil
}

// BindAny 绑定动态端口
func (m *MockHost) BindAny(handler interfaces.PortHandler) (uint64, error) {
	if m.BindAnyFunc != nil {
		return m.BindAnyFunc(handler)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		port := m.nextPort
		m.nextPort++
		if _, ok := m.ports[port]; !ok {
			m.ports[port] = handler
			m.BindCalls = append(m.BindCalls, port)
			return port, nil
		}
	}
}

// Unbind 解除端口绑定
func (m *MockHost) Unbind(port uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ports, port)
	m.UnbindCalls = append(m.UnbindCalls, port)
}

// Bound 端口是否已绑定
func (m *MockHost) Bound(port uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ports[port]
	return ok
}

// Send 向节点端口发送负载
func (m *MockHost) Send(ctx context.Context, node types.NodeID, port uint64, payload []byte) error {
	m.record(node, port, payload)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, node, port, payload)
	}
	return m.deliver(node, port, payload)
}

// TrySend 向节点端口发送负载，不等待
//
// 未设置 TrySendFunc 时与 Send 行为相同。
func (m *MockHost) TrySend(node types.NodeID, port uint64, payload []byte) error {
	if m.TrySendFunc != nil {
		m.record(node, port, payload)
		return m.TrySendFunc(node, port, payload)
	}
	return m.Send(context.Background(), node, port, payload)
}

// SendTo 向位置发送负载
func (m *MockHost) SendTo(ctx context.Context, loc types.Location, payload []byte) error {
	m.record(loc.Node, loc.Port, payload)
	if m.SendToFunc != nil {
		return m.SendToFunc(ctx, loc, payload)
	}
	return m.deliver(loc.Node, loc.Port, payload)
}

// Connect 建立链路；默认失败
func (m *MockHost) Connect(ctx context.Context, addr string) (types.NodeID, error) {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx, addr)
	}
	return types.EmptyNodeID, ErrNoRoute
}

// Install 安装服务
func (m *MockHost) Install(name string, svc interfaces.Service) error {
	if m.InstallFunc != nil {
		return m.InstallFunc(name, svc)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[name]; ok {
		return errors.New("mocks: service exists")
	}
	m.services[name] = svc
	return nil
}

// Service 查找服务
func (m *MockHost) Service(name string) (interfaces.Service, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[name]
	return svc, ok
}

// Uninstall 移除服务
func (m *MockHost) Uninstall(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, name)
}

// Close 关闭节点
func (m *MockHost) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Sent 返回 Send/SendTo 调用记录的副本
func (m *MockHost) Sent() []SendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SendCall(nil), m.SendCalls...)
}

// Deliver 模拟从 from 节点收到发往本地端口的负载
//
// 端口未绑定时返回 false。
func (m *MockHost) Deliver(from types.NodeID, port uint64, payload []byte) bool {
	m.mu.Lock()
	handler, ok := m.ports[port]
	m.mu.Unlock()
	if ok {
		handler(from, payload)
	}
	return ok
}

func (m *MockHost) record(node types.NodeID, port uint64, payload []byte) {
	m.mu.Lock()
	m.SendCalls = append(m.SendCalls, SendCall{Node: node, Port: port, Payload: append([]byte(nil), payload...)})
	m.mu.Unlock()
}

func (m *MockHost) deliver(node types.NodeID, port uint64, payload []byte) error {
	if node != m.IDValue {
		return ErrNoRoute
	}
	m.mu.Lock()
	handler, ok := m.ports[port]
	m.mu.Unlock()
	if ok {
		handler(m.IDValue, append([]byte(nil), payload...))
	}
	return nil
}

var _ interfaces.Host = (*MockHost)(nil)
