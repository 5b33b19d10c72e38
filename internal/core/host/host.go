package host

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-cns/internal/core/link"
	"github.com/dep2p/go-cns/internal/core/transport/tcp"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("core/host")

// Host 节点实现
//
// 聚合传输层、链路注册表、端口分发与服务注册表。
type Host struct {
	config    Config
	id        types.NodeID
	addr      string
	eventbus  pkgif.EventBus
	transport *tcp.Transport
	registry  *link.Registry
	listener  net.Listener

	portsMu  sync.RWMutex
	ports    map[uint64]pkgif.PortHandler
	nextPort uint64

	servicesMu sync.RWMutex
	services   map[string]pkgif.Service

	// 未绑定端口的日志节流
	unboundLog rate.Sometimes

	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

var _ pkgif.Host = (*Host)(nil)

// New 创建节点
//
// 配置了监听地址时立即绑定，绑定失败直接返回错误；Start 之后才接受入站连接。
func New(cfg Config, bus pkgif.EventBus) (*Host, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bus == nil {
		return nil, fmt.Errorf("host: event bus is required")
	}

	id := cfg.ID
	if id.IsEmpty() {
		id = types.NewNodeID()
	}

	h := &Host{
		config:     cfg,
		id:         id,
		eventbus:   bus,
		transport:  tcp.NewTransport(cfg.Transport),
		ports:      make(map[uint64]pkgif.PortHandler),
		nextPort:   DynamicPortBase,
		services:   make(map[string]pkgif.Service),
		unboundLog: rate.Sometimes{Interval: 10 * time.Second},
	}

	if cfg.ListenAddr != "" {
		ln, err := h.transport.Listen(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		h.listener = ln
		h.addr = ln.Addr().String()
	}
	if cfg.AdvertiseAddr != "" {
		h.addr = cfg.AdvertiseAddr
	}

	registry, err := link.NewRegistry(
		link.Identity{ID: id, ListenAddr: h.addr},
		cfg.Link, h.transport, link.HandlerFunc(h.dispatch), bus,
	)
	if err != nil {
		_ = h.transport.Close()
		return nil, err
	}
	h.registry = registry

	return h, nil
}

// ID 返回节点标识
func (h *Host) ID() types.NodeID {
	return h.id
}

// Addr 返回节点对外地址
func (h *Host) Addr() string {
	return h.addr
}

// EventBus 返回事件总线
func (h *Host) EventBus() pkgif.EventBus {
	return h.eventbus
}

// Registry 返回链路注册表
func (h *Host) Registry() *link.Registry {
	return h.registry
}

// Start 开始接受入站连接
func (h *Host) Start(_ context.Context) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	if !h.started.CompareAndSwap(false, true) {
		return nil
	}

	if h.listener != nil {
		h.wg.Add(1)
		go h.acceptLoop()
	}

	logger.Info("节点已启动", "id", h.id.ShortString(), "addr", h.addr)
	return nil
}

// Close 关闭节点
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if h.listener != nil {
		err = multierr.Append(err, h.listener.Close())
	}
	err = multierr.Append(err, h.registry.Close())
	err = multierr.Append(err, h.transport.Close())
	h.wg.Wait()

	logger.Info("节点已关闭", "id", h.id.ShortString())
	return ignoreClosed(err)
}

// acceptLoop 接受连接循环
func (h *Host) acceptLoop() {
	defer h.wg.Done()

	for {
		conn, err := h.listener.Accept()
		if err != nil {
			if h.closed.Load() {
				return
			}
			logger.Warn("接受连接失败", "error", err)
			return
		}

		// 握手可能耗时，异步处理
		go func() {
			if _, err := h.registry.Accept(conn); err != nil {
				logger.Debug("入站链路建立失败", "remote", conn.RemoteAddr().String(), "error", err)
			}
		}()
	}
}

// ============================================================================
//                              端口
// ============================================================================

// Bind 将处理器绑定到指定端口
func (h *Host) Bind(port uint64, handler pkgif.PortHandler) error {
	if port == 0 || handler == nil {
		return fmt.Errorf("host: invalid binding for port %d", port)
	}

	h.portsMu.Lock()
	defer h.portsMu.Unlock()

	if _, ok := h.ports[port]; ok {
		return fmt.Errorf("%w: port %d", ErrAddressInUse, port)
	}
	h.ports[port] = handler
	return nil
}

// BindAny 将处理器绑定到一个空闲的动态端口
func (h *Host) BindAny(handler pkgif.PortHandler) (uint64, error) {
	if handler == nil {
		return 0, fmt.Errorf("host: nil handler")
	}

	h.portsMu.Lock()
	defer h.portsMu.Unlock()

	for {
		port := h.nextPort
		h.nextPort++
		if h.nextPort == 0 {
			h.nextPort = DynamicPortBase
		}
		if _, ok := h.ports[port]; !ok {
			h.ports[port] = handler
			return port, nil
		}
	}
}

// Unbind 解除端口绑定
func (h *Host) Unbind(port uint64) {
	h.portsMu.Lock()
	delete(h.ports, port)
	h.portsMu.Unlock()
}

// dispatch 把收到的信封分发到端口处理器
func (h *Host) dispatch(from *link.Link, env link.Envelope) {
	h.portsMu.RLock()
	handler, ok := h.ports[env.Port]
	h.portsMu.RUnlock()

	if !ok {
		h.unboundLog.Do(func() {
			logger.Warn("丢弃发往未绑定端口的数据", "port", env.Port, "from", from.RemoteID().ShortString())
		})
		return
	}
	handler(from.RemoteID(), env.Payload)
}

// ============================================================================
//                              发送
// ============================================================================

// Send 通过已有链路向节点的端口发送负载
//
// 发往本节点的负载直接分发，不经过网络。
func (h *Host) Send(ctx context.Context, node types.NodeID, port uint64, payload []byte) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	if node == h.id {
		return h.deliverLocal(port, payload)
	}

	l, ok := h.registry.Get(node)
	if !ok {
		return fmt.Errorf("%w: %s", link.ErrNoLink, node.ShortString())
	}
	return l.Send(ctx, link.Envelope{Port: port, Payload: payload})
}

// TrySend 通过已有链路向节点的端口发送负载，不等待发送队列
//
// 队列已满返回 link.ErrQueueFull。
func (h *Host) TrySend(node types.NodeID, port uint64, payload []byte) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	if node == h.id {
		return h.deliverLocal(port, payload)
	}

	l, ok := h.registry.Get(node)
	if !ok {
		return fmt.Errorf("%w: %s", link.ErrNoLink, node.ShortString())
	}
	return l.TrySend(link.Envelope{Port: port, Payload: payload})
}

// SendTo 向位置发送负载
//
// 优先复用到该节点的已有链路，否则按位置中的地址拨号。
func (h *Host) SendTo(ctx context.Context, loc types.Location, payload []byte) error {
	if h.closed.Load() {
		return ErrHostClosed
	}
	if loc.Node == h.id {
		return h.deliverLocal(loc.Port, payload)
	}

	if l, ok := h.registry.Get(loc.Node); ok {
		return l.Send(ctx, link.Envelope{Port: loc.Port, Payload: payload})
	}
	if loc.Addr == "" {
		return fmt.Errorf("%w: %s", ErrNoRoute, loc.Node.ShortString())
	}

	l, err := h.registry.GetOrCreate(ctx, loc.Addr)
	if err != nil {
		return err
	}
	if l.RemoteID() != loc.Node && !loc.Node.IsEmpty() {
		return fmt.Errorf("%w: %s answers as %s", ErrNoRoute, loc.Addr, l.RemoteID().ShortString())
	}
	return l.Send(ctx, link.Envelope{Port: loc.Port, Payload: payload})
}

// Connect 建立到地址的链路
func (h *Host) Connect(ctx context.Context, addr string) (types.NodeID, error) {
	if h.closed.Load() {
		return types.EmptyNodeID, ErrHostClosed
	}
	l, err := h.registry.GetOrCreate(ctx, addr)
	if err != nil {
		return types.EmptyNodeID, err
	}
	return l.RemoteID(), nil
}

func (h *Host) deliverLocal(port uint64, payload []byte) error {
	h.portsMu.RLock()
	handler, ok := h.ports[port]
	h.portsMu.RUnlock()

	if ok {
		handler(h.id, append([]byte(nil), payload...))
	}
	return nil
}

// ============================================================================
//                              服务注册表
// ============================================================================

// Install 以名称安装服务
func (h *Host) Install(name string, svc pkgif.Service) error {
	h.servicesMu.Lock()
	defer h.servicesMu.Unlock()

	if _, ok := h.services[name]; ok {
		return fmt.Errorf("%w: %q", ErrServiceExists, name)
	}
	h.services[name] = svc
	logger.Debug("服务已安装", "name", name)
	return nil
}

// Service 按名称查找服务
func (h *Host) Service(name string) (pkgif.Service, bool) {
	h.servicesMu.RLock()
	defer h.servicesMu.RUnlock()

	svc, ok := h.services[name]
	return svc, ok
}

// Uninstall 移除服务
func (h *Host) Uninstall(name string) {
	h.servicesMu.Lock()
	delete(h.services, name)
	h.servicesMu.Unlock()
}

func ignoreClosed(err error) error {
	var kept error
	for _, e := range multierr.Errors(err) {
		if !isNetClosed(e) {
			kept = multierr.Append(kept, e)
		}
	}
	return kept
}

func isNetClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
