package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	cnspb "github.com/dep2p/go-cns/pkg/lib/proto/cns"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("cns/client")

// result 一次调用的结果
type result struct {
	msg cnspb.Message
	err error
}

// pair 名称与作用域
type pair struct {
	name  types.Name
	level types.AccessLevel
}

// resolveWait 同一 (name, level) 上合并的解析等待
//
// 请求发出后条目一直保留到响应到达或链路丢失，即使本地等待者已全部离开；
// 之后的解析重新挂到线上已有的请求，不再向服务端追加等待。
type resolveWait struct {
	requestID uint64
	waiters   []chan result
}

// Proxy 名称服务客户端代理
//
// 把同步调用转换为与服务端之间的请求/响应。每个调用持有以 RequestID 为键的
// 一次性通道；同一 (name, level) 的并发解析只发出一个请求，响应到达后按排队顺序唤醒。
// 与服务端的链路丢失时所有未完成调用以 ErrLinkLost 失败，之后的调用返回
// ErrNotConnected，不自动重连。
type Proxy struct {
	cfg   Config
	host  pkgif.Host
	bus   pkgif.EventBus
	clock clock.Clock

	replyPort uint64
	inbox     chan cnspb.Message
	logonCh   chan bool
	closing   chan struct{}
	pumpDone  chan struct{}
	lostSub   pkgif.Subscription

	mu          sync.Mutex
	started     bool
	closed      bool
	connected   bool
	server      types.NodeID
	nextID      uint64
	calls       map[uint64]chan result
	resolves    map[pair]*resolveWait
	resolveByID map[uint64]pair

	badMsgLog rate.Sometimes
}

// Option 代理选项
type Option func(*Proxy)

// WithClock 设置时钟（测试用）
func WithClock(c clock.Clock) Option {
	return func(p *Proxy) {
		p.clock = c
	}
}

// New 创建代理并绑定响应端口
func New(h pkgif.Host, cfg Config, opts ...Option) (*Proxy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultConfig().InboxSize
	}

	p := &Proxy{
		cfg:         cfg,
		host:        h,
		bus:         h.EventBus(),
		clock:       clock.New(),
		inbox:       make(chan cnspb.Message, cfg.InboxSize),
		logonCh:     make(chan bool, 1),
		closing:     make(chan struct{}),
		pumpDone:    make(chan struct{}),
		calls:       make(map[uint64]chan result),
		resolves:    make(map[pair]*resolveWait),
		resolveByID: make(map[uint64]pair),
		badMsgLog:   rate.Sometimes{Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}

	port, err := h.BindAny(p.receive)
	if err != nil {
		return nil, fmt.Errorf("client: bind reply port: %w", err)
	}
	p.replyPort = port
	return p, nil
}

// ServerID 返回已登录的服务端节点；未登录时为空
func (p *Proxy) ServerID() types.NodeID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return types.EmptyNodeID
	}
	return p.server
}

// Connected 是否已登录且链路存活
func (p *Proxy) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// ReplyLocation 返回代理接收响应的位置
func (p *Proxy) ReplyLocation() types.Location {
	return types.Location{Node: p.host.ID(), Addr: p.host.Addr(), Port: p.replyPort}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动响应分发循环
//
// 重复调用直接返回成功。
func (p *Proxy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrProxyClosed
	}
	if p.started {
		return nil
	}

	sub, err := p.bus.Subscribe(new(types.EvtLinkLost), pkgif.Lossless(), pkgif.BufSize(16))
	if err != nil {
		return fmt.Errorf("client: subscribe link events: %w", err)
	}
	p.lostSub = sub
	p.started = true

	go p.pump()
	return nil
}

// Init 连接服务端并登录
//
// 按顺序尝试配置的地址，第一个连接成功的生效；服务端拒绝登录时返回
// ErrLogonRejected，所有地址都无法连接时返回 ErrConnectFailed。
// 未配置地址时登录本节点上的服务端。
func (p *Proxy) Init(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}

	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if connected {
		return ErrAlreadyConnected
	}

	if len(p.cfg.ServerAddrs) == 0 {
		return p.logonLocal(ctx)
	}

	var errs error
	for _, addr := range p.cfg.ServerAddrs {
		id, err := p.host.Connect(ctx, addr)
		if err != nil {
			logger.Debug("连接名称服务失败", "addr", addr, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", addr, err))
			continue
		}

		err = p.logon(ctx, id)
		if err == nil {
			logger.Info("已登录名称服务", "addr", addr, "server", id.ShortString())
			return nil
		}
		if errors.Is(err, ErrLogonRejected) {
			return err
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("%w: %v", ErrConnectFailed, errs)
}

// logonLocal 登录本节点上的服务端
//
// 本地投递不报告未绑定的端口，先按服务名确认服务端已安装。
func (p *Proxy) logonLocal(ctx context.Context) error {
	if _, ok := p.host.Service(p.cfg.ServiceName); !ok {
		return fmt.Errorf("%w: no local %q service", ErrConnectFailed, p.cfg.ServiceName)
	}

	err := p.logon(ctx, p.host.ID())
	if errors.Is(err, ErrRequestTimeout) {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	return err
}

// logon 向节点 server 发送登录并等待响应
func (p *Proxy) logon(ctx context.Context, server types.NodeID) error {
	// 丢弃过期的登录响应
	select {
	case <-p.logonCh:
	default:
	}

	payload, err := cnspb.Marshal(&cnspb.Logon{ReplyLocation: p.ReplyLocation()})
	if err != nil {
		return err
	}
	if err := p.host.Send(ctx, server, p.cfg.AdminPort, payload); err != nil {
		return err
	}

	var timeout <-chan time.Time
	if p.cfg.LogonTimeout > 0 {
		timer := p.clock.Timer(p.cfg.LogonTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ok := <-p.logonCh:
		if !ok {
			return ErrLogonRejected
		}
	case <-timeout:
		return ErrRequestTimeout
	case <-ctx.Done():
		return ctx.Err()
	case <-p.closing:
		return ErrProxyClosed
	}

	p.mu.Lock()
	p.server = server
	p.connected = true
	p.mu.Unlock()
	return nil
}

// Close 关闭代理
//
// 未完成的调用以 ErrProxyClosed 失败。与服务端的链路由节点持有，不在此关闭。
func (p *Proxy) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.connected = false
	started := p.started
	pending := p.takePendingLocked()
	p.mu.Unlock()

	failAll(pending, ErrProxyClosed)
	close(p.closing)
	p.host.Unbind(p.replyPort)

	if started {
		<-p.pumpDone
		return p.lostSub.Close()
	}
	return nil
}

// ============================================================================
//                              调用
// ============================================================================

// Resolve 解析名称
//
// 名称尚未注册时阻塞，直到注册到达、链路丢失、ctx 结束或调用超时。
func (p *Proxy) Resolve(ctx context.Context, name types.Name, level types.AccessLevel) (types.Location, error) {
	key := pair{name, level}
	ch := make(chan result, 1)

	p.mu.Lock()
	if err := p.usableLocked(); err != nil {
		p.mu.Unlock()
		return types.Location{}, err
	}
	rw, attached := p.resolves[key]
	if attached {
		rw.waiters = append(rw.waiters, ch)
	} else {
		rw = &resolveWait{requestID: p.allocIDLocked(), waiters: []chan result{ch}}
		p.resolves[key] = rw
		p.resolveByID[rw.requestID] = key
	}
	server := p.server
	p.mu.Unlock()

	if !attached {
		err := p.send(ctx, server, &cnspb.ResolveRequest{
			Header: p.header(rw.requestID),
			Name:   name,
			Level:  level,
		})
		if err != nil {
			p.mu.Lock()
			var waiters []chan result
			if p.resolves[key] == rw {
				waiters = rw.waiters
				delete(p.resolves, key)
				delete(p.resolveByID, rw.requestID)
			}
			p.mu.Unlock()
			failAll(waiters, err)
			return types.Location{}, err
		}
	}

	msg, err := p.wait(ctx, ch, func() { p.detachResolve(key, rw, ch) })
	if err != nil {
		return types.Location{}, err
	}
	reply := msg.(*cnspb.ResolveReply)
	if reply.Location.IsZero() {
		return types.Location{}, ErrNotFound
	}
	return reply.Location, nil
}

// Register 注册名称
//
// 名称已租用时 key 必须是租约凭证；成功返回新凭证。
func (p *Proxy) Register(ctx context.Context, name types.Name, level types.AccessLevel, loc types.Location, key types.RegistrationKey) (types.RegistrationKey, error) {
	msg, err := p.call(ctx, func(h cnspb.Header) cnspb.Message {
		return &cnspb.RegisterRequest{Header: h, Name: name, Level: level, Location: loc, Key: key}
	})
	if err != nil {
		return types.NoKey, err
	}
	reply := msg.(*cnspb.RegisterReply)
	if reply.Key.IsZero() {
		return types.NoKey, ErrRegisterRejected
	}
	return reply.Key, nil
}

// Lease 租用名称
//
// key 为该名称当前的绑定或租约凭证；名称未被占用时传 types.NoKey。
func (p *Proxy) Lease(ctx context.Context, name types.Name, level types.AccessLevel, key types.RegistrationKey) (types.RegistrationKey, error) {
	msg, err := p.call(ctx, func(h cnspb.Header) cnspb.Message {
		return &cnspb.LeaseRequest{Header: h, Name: name, Level: level, Key: key}
	})
	if err != nil {
		return types.NoKey, err
	}
	reply := msg.(*cnspb.LeaseReply)
	if reply.Key.IsZero() {
		return types.NoKey, ErrLeaseRejected
	}
	return reply.Key, nil
}

// Deregister 注销名称
func (p *Proxy) Deregister(ctx context.Context, name types.Name, level types.AccessLevel, key types.RegistrationKey) error {
	msg, err := p.call(ctx, func(h cnspb.Header) cnspb.Message {
		return &cnspb.DeregisterRequest{Header: h, Name: name, Level: level, Key: key}
	})
	if err != nil {
		return err
	}
	if !msg.(*cnspb.DeregisterReply).Success {
		return ErrDeregisterRejected
	}
	return nil
}

// call 发送一条请求并等待以 RequestID 关联的响应
func (p *Proxy) call(ctx context.Context, build func(cnspb.Header) cnspb.Message) (cnspb.Message, error) {
	ch := make(chan result, 1)

	p.mu.Lock()
	if err := p.usableLocked(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	id := p.allocIDLocked()
	p.calls[id] = ch
	server := p.server
	p.mu.Unlock()

	forget := func() {
		p.mu.Lock()
		delete(p.calls, id)
		p.mu.Unlock()
	}

	if err := p.send(ctx, server, build(p.header(id))); err != nil {
		forget()
		return nil, err
	}
	return p.wait(ctx, ch, forget)
}

// wait 等待结果；ctx 结束或超时时调用 cancel 撤销等待
func (p *Proxy) wait(ctx context.Context, ch <-chan result, cancel func()) (cnspb.Message, error) {
	var timeout <-chan time.Time
	if p.cfg.RequestTimeout > 0 {
		timer := p.clock.Timer(p.cfg.RequestTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case <-timeout:
		cancel()
		return nil, ErrRequestTimeout
	}
}

func (p *Proxy) send(ctx context.Context, server types.NodeID, msg cnspb.Message) error {
	payload, err := cnspb.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.host.Send(ctx, server, p.cfg.AdminPort, payload); err != nil {
		return fmt.Errorf("client: send %s: %w", msg.Kind(), err)
	}
	return nil
}

func (p *Proxy) header(id uint64) cnspb.Header {
	return cnspb.Header{ReplyPort: p.replyPort, RequestID: id}
}

// detachResolve 撤销一个解析等待
//
// 条目本身保留：服务端上的请求仍在排队，响应到达或链路丢失时才移除。
func (p *Proxy) detachResolve(key pair, rw *resolveWait, ch chan result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resolves[key] != rw {
		return
	}
	for i, w := range rw.waiters {
		if w == ch {
			rw.waiters = append(rw.waiters[:i], rw.waiters[i+1:]...)
			break
		}
	}
}

func (p *Proxy) usableLocked() error {
	if p.closed {
		return ErrProxyClosed
	}
	if !p.connected {
		return ErrNotConnected
	}
	return nil
}

func (p *Proxy) allocIDLocked() uint64 {
	p.nextID++
	return p.nextID
}

// takePendingLocked 取出并清空所有等待者
func (p *Proxy) takePendingLocked() []chan result {
	var out []chan result
	for id, ch := range p.calls {
		out = append(out, ch)
		delete(p.calls, id)
	}
	for key, rw := range p.resolves {
		out = append(out, rw.waiters...)
		delete(p.resolves, key)
	}
	for id := range p.resolveByID {
		delete(p.resolveByID, id)
	}
	return out
}

func failAll(waiters []chan result, err error) {
	for _, ch := range waiters {
		ch <- result{err: err}
	}
}

// ============================================================================
//                              分发循环
// ============================================================================

// receive 响应端口处理器，在链路接收循环中调用
func (p *Proxy) receive(from types.NodeID, payload []byte) {
	msg, err := cnspb.Unmarshal(payload)
	if err != nil {
		p.badMsgLog.Do(func() {
			logger.Warn("丢弃无法解析的响应", "from", from.ShortString(), "error", err)
		})
		return
	}

	select {
	case p.inbox <- msg:
	case <-p.closing:
	}
}

func (p *Proxy) pump() {
	defer close(p.pumpDone)

	lost := p.lostSub.Out()
	for {
		select {
		case <-p.closing:
			return
		case msg := <-p.inbox:
			p.dispatch(msg)
		case ev, ok := <-lost:
			if !ok {
				lost = nil
				continue
			}
			if e, ok := ev.(types.EvtLinkLost); ok {
				p.handleLinkLost(e)
			}
		}
	}
}

// dispatch 把响应交给对应的等待者
func (p *Proxy) dispatch(msg cnspb.Message) {
	switch m := msg.(type) {
	case *cnspb.LogonReply:
		select {
		case p.logonCh <- m.Success:
		default:
		}

	case *cnspb.ResolveReply:
		p.mu.Lock()
		key, ok := p.resolveByID[m.RequestID]
		var waiters []chan result
		if ok {
			waiters = p.resolves[key].waiters
			delete(p.resolves, key)
			delete(p.resolveByID, m.RequestID)
		}
		p.mu.Unlock()

		for _, ch := range waiters {
			ch <- result{msg: m}
		}

	case *cnspb.RegisterReply, *cnspb.LeaseReply, *cnspb.DeregisterReply:
		id := cnspb.HeaderOf(m).RequestID
		p.mu.Lock()
		ch, ok := p.calls[id]
		delete(p.calls, id)
		p.mu.Unlock()

		if ok {
			ch <- result{msg: m}
		} else {
			logger.Debug("丢弃无人等待的响应", "kind", m.Kind().String(), "requestID", id)
		}

	default:
		p.badMsgLog.Do(func() {
			logger.Warn("忽略非响应消息", "kind", msg.Kind().String())
		})
	}
}

// handleLinkLost 与服务端的链路丢失时唤醒所有等待者
func (p *Proxy) handleLinkLost(e types.EvtLinkLost) {
	p.mu.Lock()
	if !p.connected || e.Node != p.server {
		p.mu.Unlock()
		return
	}
	p.connected = false
	p.mu.Unlock()

	// 链路丢失前已到达的响应先交付
	for drained := false; !drained; {
		select {
		case msg := <-p.inbox:
			p.dispatch(msg)
		default:
			drained = true
		}
	}

	p.mu.Lock()
	pending := p.takePendingLocked()
	p.mu.Unlock()

	failAll(pending, ErrLinkLost)
	logger.Warn("与名称服务的链路丢失", "server", e.Node.ShortString(), "failed", len(pending))
}
