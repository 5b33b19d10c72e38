package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-cns/internal/core/link"
	"github.com/dep2p/go-cns/internal/core/metrics"
	"github.com/dep2p/go-cns/internal/core/storage"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	cnspb "github.com/dep2p/go-cns/pkg/lib/proto/cns"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("cns/server")

// inbound 入站消息
type inbound struct {
	from types.NodeID
	msg  cnspb.Message
}

// Server 通道名称服务端
//
// 所有表只由单个事件循环访问。事件来源按优先级：停止信号 > 链路丢失 > 入站消息。
type Server struct {
	cfg      Config
	host     pkgif.Host
	bus      pkgif.EventBus
	reporter metrics.Reporter
	tables   *tables

	mu    sync.Mutex
	state State

	inbox    chan inbound
	stopCh   chan struct{}
	stopOnce sync.Once
	loopDone chan struct{}
	lostSub  pkgif.Subscription

	stats     atomic.Pointer[Stats]
	requests  uint64
	rejected  uint64
	linksLost uint64

	badMsgLog rate.Sometimes
	dropLog   rate.Sometimes
}

var _ pkgif.Service = (*Server)(nil)

// Option 服务端选项
type Option func(*Server)

// WithReporter 设置指标上报
func WithReporter(r metrics.Reporter) Option {
	return func(s *Server) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithKeyMinter 设置凭证签发器
func WithKeyMinter(m *types.KeyMinter) Option {
	return func(s *Server) {
		s.tables.minter = m
	}
}

// New 创建服务端
//
// store 可以为 nil，此时租约不持久化。
func New(h pkgif.Host, store storage.LeaseStore, cfg Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}

	s := &Server{
		cfg:       cfg,
		host:      h,
		bus:       h.EventBus(),
		reporter:  metrics.Nop,
		tables:    newTables(store, nil),
		inbox:     make(chan inbound, cfg.InboxSize),
		stopCh:    make(chan struct{}),
		loopDone:  make(chan struct{}),
		badMsgLog: rate.Sometimes{Interval: 10 * time.Second},
		dropLog:   rate.Sometimes{Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stats.Store(&Stats{})
	return s, nil
}

// State 返回当前状态
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats 返回最近一次事件处理后的统计快照
func (s *Server) Stats() Stats {
	return *s.stats.Load()
}

// Location 返回服务端管理端口的位置
func (s *Server) Location() types.Location {
	return types.Location{Node: s.host.ID(), Addr: s.host.Addr(), Port: s.cfg.AdminPort}
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动服务
//
// 占用管理端口失败（已有服务端）时返回错误，状态保持 NotStarted。
func (s *Server) Start(_ context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrStopped
	}

	if err := s.tables.load(); err != nil {
		return fmt.Errorf("server: load leases: %w", err)
	}

	sub, err := s.bus.Subscribe(new(types.EvtLinkLost), pkgif.Lossless(), pkgif.BufSize(64))
	if err != nil {
		return fmt.Errorf("server: subscribe link events: %w", err)
	}
	defer func() {
		if err != nil {
			_ = sub.Close()
		}
	}()

	if err := s.host.Bind(s.cfg.AdminPort, s.receive); err != nil {
		logger.Error("名称服务启动失败", "port", s.cfg.AdminPort, "error", err)
		return fmt.Errorf("server: claim admin port %d: %w", s.cfg.AdminPort, err)
	}
	if err := s.host.Install(s.cfg.ServiceName, s); err != nil {
		s.host.Unbind(s.cfg.AdminPort)
		return fmt.Errorf("server: install service: %w", err)
	}

	s.lostSub = sub
	s.state = StateRunning
	s.publishStats()

	go s.loop()

	logger.Info("名称服务已启动",
		"service", s.cfg.ServiceName,
		"node", s.host.ID().ShortString(),
		"addr", s.host.Addr(),
		"port", s.cfg.AdminPort)
	return nil
}

// Stop 停止服务
//
// 可并发重复调用；每个调用者都在事件循环退出后返回，或在 ctx 结束时提前返回。
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateNotStarted {
		s.state = StateStopped
		close(s.loopDone)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })

	select {
	case <-s.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done 返回事件循环退出后关闭的通道
func (s *Server) Done() <-chan struct{} {
	return s.loopDone
}

// ============================================================================
//                              事件循环
// ============================================================================

// receive 管理端口处理器，在链路接收循环中调用
func (s *Server) receive(from types.NodeID, payload []byte) {
	msg, err := cnspb.Unmarshal(payload)
	if err != nil {
		s.badMsgLog.Do(func() {
			logger.Warn("丢弃无法解析的消息", "from", from.ShortString(), "error", err)
		})
		return
	}

	select {
	case s.inbox <- inbound{from: from, msg: msg}:
	case <-s.stopCh:
	}
}

func (s *Server) loop() {
	defer s.shutdown()

	lost := s.lostSub.Out()
	for {
		// 停止优先
		select {
		case <-s.stopCh:
			return
		default:
		}

		// 其次是链路丢失
		select {
		case ev, ok := <-lost:
			if !ok {
				lost = nil
				continue
			}
			s.handleLinkLost(ev)
			continue
		default:
		}

		select {
		case <-s.stopCh:
			return
		case ev, ok := <-lost:
			if !ok {
				lost = nil
				continue
			}
			s.handleLinkLost(ev)
		case in := <-s.inbox:
			s.handleInbound(in)
		}
	}
}

func (s *Server) shutdown() {
	s.host.Unbind(s.cfg.AdminPort)
	s.host.Uninstall(s.cfg.ServiceName)
	if err := s.lostSub.Close(); err != nil {
		logger.Debug("关闭事件订阅失败", "error", err)
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	close(s.loopDone)

	logger.Info("名称服务已停止", "service", s.cfg.ServiceName)
}

func (s *Server) handleLinkLost(ev interface{}) {
	e, ok := ev.(types.EvtLinkLost)
	if !ok {
		return
	}

	waiters, bindings := s.tables.linkLost(e.Node)
	s.linksLost++
	s.reporter.LinkLost()
	s.publishStats()

	logger.Info("客户端链路丢失，已清理",
		"node", e.Node.ShortString(),
		"bindings", bindings,
		"pending", waiters)
}

// handleInbound 处理一条入站消息
//
// 处理器 panic 在此恢复，只影响这一条消息。
func (s *Server) handleInbound(in inbound) {
	defer func() {
		if r := recover(); r != nil {
			s.reporter.HandlerPanic()
			logger.Error("处理消息时发生 panic",
				"kind", in.msg.Kind().String(),
				"from", in.from.ShortString(),
				"panic", r,
				"stack", string(debug.Stack()))
		}
		s.publishStats()
	}()

	kind := in.msg.Kind().String()
	out, rejected := s.tables.handle(in.from, in.msg)

	s.requests++
	s.reporter.RequestHandled(kind)
	if rejected {
		s.rejected++
		s.reporter.RequestRejected(kind)
	}

	for _, o := range out {
		s.send(o)
	}
}

// send 发送响应
//
// 不等待发送队列：客户端队列已满时丢弃这条响应，事件循环继续处理其他消息。
func (s *Server) send(o outbound) {
	payload, err := cnspb.Marshal(o.msg)
	if err != nil {
		logger.Error("编码响应失败", "kind", o.msg.Kind().String(), "error", err)
		return
	}

	err = s.host.TrySend(o.node, o.port, payload)
	switch {
	case err == nil:
	case errors.Is(err, link.ErrQueueFull):
		s.reporter.ReplyDropped()
		s.dropLog.Do(func() {
			logger.Warn("客户端发送队列已满，丢弃响应",
				"kind", o.msg.Kind().String(),
				"to", o.node.ShortString())
		})
	default:
		logger.Warn("发送响应失败",
			"kind", o.msg.Kind().String(),
			"to", o.node.ShortString(),
			"error", err)
	}
}

func (s *Server) publishStats() {
	b, l, p, sess := s.tables.sizes()
	s.stats.Store(&Stats{
		Bindings:  b,
		Leases:    l,
		Pending:   p,
		Sessions:  sess,
		Requests:  s.requests,
		Rejected:  s.rejected,
		LinksLost: s.linksLost,
	})
	s.reporter.SetTables(metrics.TableSizes{Bindings: b, Leases: l, Pending: p, Sessions: sess})
}
