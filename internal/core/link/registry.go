package link

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/types"
)

// ============================================================================
//                              配置
// ============================================================================

// DefaultProtocolID 默认协议标识
const DefaultProtocolID = "/cns/link/1.0.0"

// Config 注册表配置
type Config struct {
	// ProtocolID 握手协议标识
	ProtocolID string

	// HandshakeTimeout 握手超时
	HandshakeTimeout time.Duration

	// SendQueueSize 每条链路的发送队列长度
	SendQueueSize int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		ProtocolID:       DefaultProtocolID,
		HandshakeTimeout: 10 * time.Second,
		SendQueueSize:    256,
	}
}

// Dialer 建立出站字节流连接
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

// ============================================================================
//                              Registry
// ============================================================================

// Registry 链路注册表
//
// 按远端节点标识和地址索引存活链路，按需拨号建立新链路。
type Registry struct {
	local   Identity
	cfg     Config
	dialer  Dialer
	handler Handler

	lostEmitter pkgif.Emitter
	upEmitter   pkgif.Emitter

	dials singleflight.Group

	mu     sync.Mutex
	byID   map[types.NodeID]*Link
	byAddr map[string]*Link
	closed bool
}

// NewRegistry 创建链路注册表
//
// handler 接收所有链路上的信封；bus 用于发布链路事件。
func NewRegistry(local Identity, cfg Config, dialer Dialer, handler Handler, bus pkgif.EventBus) (*Registry, error) {
	if local.ID.IsEmpty() {
		return nil, fmt.Errorf("%w: empty local identity", ErrInvalidIdentity)
	}
	if cfg.ProtocolID == "" {
		cfg.ProtocolID = DefaultProtocolID
	}

	lost, err := bus.Emitter(new(types.EvtLinkLost))
	if err != nil {
		return nil, fmt.Errorf("link: create emitter: %w", err)
	}
	up, err := bus.Emitter(new(types.EvtLinkUp))
	if err != nil {
		_ = lost.Close()
		return nil, fmt.Errorf("link: create emitter: %w", err)
	}

	return &Registry{
		local:       local,
		cfg:         cfg,
		dialer:      dialer,
		handler:     handler,
		lostEmitter: lost,
		upEmitter:   up,
		byID:        make(map[types.NodeID]*Link),
		byAddr:      make(map[string]*Link),
	}, nil
}

// LocalID 返回本地节点标识
func (r *Registry) LocalID() types.NodeID {
	return r.local.ID
}

// GetOrCreate 返回到 addr 的存活链路，没有则拨号建立
//
// 对同一地址的并发调用只拨号一次。
func (r *Registry) GetOrCreate(ctx context.Context, addr string) (*Link, error) {
	if l := r.lookupAddr(addr); l != nil {
		return l, nil
	}

	ch := r.dials.DoChan(addr, func() (interface{}, error) {
		if l := r.lookupAddr(addr); l != nil {
			return l, nil
		}
		return r.dial(addr)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Link), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dial 拨号并握手
//
// 不继承调用方的 ctx：拨号结果由所有等待者共享，超时由拨号器与握手超时约束。
func (r *Registry) dial(addr string) (*Link, error) {
	if r.isClosed() {
		return nil, ErrRegistryClosed
	}

	conn, err := r.dialer.Dial(context.Background(), addr)
	if err != nil {
		return nil, err
	}

	remote, err := Handshake(conn, r.local, r.cfg.ProtocolID, r.cfg.HandshakeTimeout)
	if err != nil {
		logger.Debug("出站握手失败", "addr", addr, "error", err)
		return nil, err
	}

	l := newLink(conn, r.local, remote, false, r.cfg.SendQueueSize, r.handler, r.onLinkClosed)
	l.dialAddr = addr
	return r.register(l)
}

// Accept 将入站连接包装为链路
//
// 对方身份在握手中获知。
func (r *Registry) Accept(conn net.Conn) (*Link, error) {
	if r.isClosed() {
		_ = conn.Close()
		return nil, ErrRegistryClosed
	}

	remote, err := Handshake(conn, r.local, r.cfg.ProtocolID, r.cfg.HandshakeTimeout)
	if err != nil {
		logger.Debug("入站握手失败", "remote", conn.RemoteAddr().String(), "error", err)
		return nil, err
	}

	l := newLink(conn, r.local, remote, true, r.cfg.SendQueueSize, r.handler, r.onLinkClosed)
	return r.register(l)
}

// Get 返回到指定节点的存活链路
func (r *Registry) Get(id types.NodeID) (*Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byID[id]
	if !ok || l.IsClosed() {
		return nil, false
	}
	return l, true
}

// Links 返回所有已注册链路
func (r *Registry) Links() []*Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	links := make([]*Link, 0, len(r.byID))
	for _, l := range r.byID {
		links = append(links, l)
	}
	return links
}

// Close 关闭注册表及所有链路
//
// 每条已注册链路仍会发出链路丢失事件。
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	links := make([]*Link, 0, len(r.byID))
	for _, l := range r.byID {
		links = append(links, l)
	}
	r.mu.Unlock()

	for _, l := range links {
		_ = l.Close()
	}

	_ = r.upEmitter.Close()
	return r.lostEmitter.Close()
}

// ============================================================================
//                              内部方法
// ============================================================================

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) lookupAddr(addr string) *Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byAddr[addr]
	if !ok || l.IsClosed() {
		return nil
	}
	return l
}

// dialerOf 返回拨出该链路的节点
func (r *Registry) dialerOf(l *Link) types.NodeID {
	if l.inbound {
		return l.remote.ID
	}
	return r.local.ID
}

// register 登记新链路并启动收发
//
// 已有到同一节点的存活链路时，保留由较小 NodeID 一方拨出的链路；
// 两端按同一规则取舍，落选链路静默关闭。返回最终保留的链路。
func (r *Registry) register(l *Link) (*Link, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = l.conn.Close()
		return nil, ErrRegistryClosed
	}

	id := l.remote.ID
	if existing, ok := r.byID[id]; ok && !existing.IsClosed() {
		if !r.dialerOf(l).Less(r.dialerOf(existing)) {
			// 新链路落选
			if l.dialAddr != "" {
				r.byAddr[l.dialAddr] = existing
			}
			r.mu.Unlock()
			logger.Debug("重复链路，保留已有链路", "peer", id.ShortString())
			l.onClose = nil
			_ = l.Close()
			return existing, nil
		}

		// 已有链路落选：先解除登记，其拆除不会产生事件
		r.unindexLocked(existing)
		defer func() {
			logger.Debug("重复链路，替换已有链路", "peer", id.ShortString())
			_ = existing.Close()
		}()
	}

	r.byID[id] = l
	if l.remote.ListenAddr != "" {
		r.byAddr[l.remote.ListenAddr] = l
	}
	if l.dialAddr != "" {
		r.byAddr[l.dialAddr] = l
	}
	r.mu.Unlock()

	l.start()

	logger.Info("链路已建立", "peer", id.ShortString(), "addr", l.RemoteAddr(), "inbound", l.inbound)
	_ = r.upEmitter.Emit(types.EvtLinkUp{
		Node:    id,
		Addr:    l.RemoteAddr(),
		Inbound: l.inbound,
		Time:    time.Now(),
	})
	return l, nil
}

// unindexLocked 移除链路的所有索引，调用方持有 r.mu
func (r *Registry) unindexLocked(l *Link) bool {
	if r.byID[l.remote.ID] != l {
		return false
	}
	delete(r.byID, l.remote.ID)
	for addr, al := range r.byAddr {
		if al == l {
			delete(r.byAddr, addr)
		}
	}
	return true
}

// onLinkClosed 链路拆除回调
//
// 只有仍处于登记状态的链路才发出链路丢失事件。
func (r *Registry) onLinkClosed(l *Link, reason error) {
	r.mu.Lock()
	registered := r.unindexLocked(l)
	r.mu.Unlock()

	if !registered {
		return
	}

	if reason == nil || eofLike(reason) {
		logger.Debug("链路关闭", "peer", l.remote.ID.ShortString())
	} else {
		logger.Info("链路丢失", "peer", l.remote.ID.ShortString(), "reason", reason)
	}

	_ = r.lostEmitter.Emit(types.EvtLinkLost{
		Node:   l.remote.ID,
		Addr:   l.RemoteAddr(),
		Reason: reason,
		Time:   time.Now(),
	})
}
