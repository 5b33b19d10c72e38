package link

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/dep2p/go-cns/pkg/lib/log"
	linkpb "github.com/dep2p/go-cns/pkg/lib/proto/link"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("core/link")

// Envelope 链路上承载的信封
type Envelope = linkpb.Envelope

// Handler 处理链路收到的信封
//
// 在链路的接收循环中同步调用，实现不应长时间阻塞。
type Handler interface {
	HandleEnvelope(from *Link, env Envelope)
}

// HandlerFunc 函数形式的 Handler
type HandlerFunc func(from *Link, env Envelope)

// HandleEnvelope 实现 Handler
func (f HandlerFunc) HandleEnvelope(from *Link, env Envelope) {
	f(from, env)
}

// ============================================================================
//                              Link
// ============================================================================

// Link 已完成握手的双向链路
type Link struct {
	conn     net.Conn
	local    Identity
	remote   Identity
	inbound  bool
	dialAddr string

	queue chan Envelope
	done  chan struct{}

	handler Handler
	onClose func(*Link, error)

	startOnce sync.Once
	closeOnce sync.Once
	errMu     sync.Mutex
	err       error
}

// newLink 包装已握手的连接；调用 start 后开始收发
func newLink(conn net.Conn, local, remote Identity, inbound bool, queueSize int, handler Handler, onClose func(*Link, error)) *Link {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Link{
		conn:    conn,
		local:   local,
		remote:  remote,
		inbound: inbound,
		queue:   make(chan Envelope, queueSize),
		done:    make(chan struct{}),
		handler: handler,
		onClose: onClose,
	}
}

// RemoteID 返回远端节点标识
func (l *Link) RemoteID() types.NodeID {
	return l.remote.ID
}

// RemoteAddr 返回远端监听地址；对方未监听时返回连接的远端地址
func (l *Link) RemoteAddr() string {
	if l.remote.ListenAddr != "" {
		return l.remote.ListenAddr
	}
	return l.conn.RemoteAddr().String()
}

// Inbound 是否为入站链路
func (l *Link) Inbound() bool {
	return l.inbound
}

// Done 返回链路关闭时关闭的通道
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err 返回拆除原因；链路存活或被主动关闭时为 nil
func (l *Link) Err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	return l.err
}

// IsClosed 链路是否已关闭
func (l *Link) IsClosed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Send 将信封放入发送队列
//
// 队列满时阻塞，直到有空位、链路关闭（ErrLinkClosed）或 ctx 结束。
// 入队成功不代表对方已收到。
func (l *Link) Send(ctx context.Context, env Envelope) error {
	select {
	case <-l.done:
		return ErrLinkClosed
	default:
	}

	select {
	case l.queue <- env:
		return nil
	case <-l.done:
		return ErrLinkClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend 不等待地将信封放入发送队列；队列已满返回 ErrQueueFull
func (l *Link) TrySend(env Envelope) error {
	select {
	case <-l.done:
		return ErrLinkClosed
	default:
	}

	select {
	case l.queue <- env:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close 主动关闭链路
func (l *Link) Close() error {
	l.teardown(nil)
	return nil
}

// start 启动收发循环
func (l *Link) start() {
	l.startOnce.Do(func() {
		go l.txLoop()
		go l.rxLoop()
	})
}

// txLoop 发送循环
func (l *Link) txLoop() {
	w := bufio.NewWriter(l.conn)
	for {
		select {
		case <-l.done:
			return
		case env := <-l.queue:
			if err := WriteFrame(w, env.Marshal()); err != nil {
				l.teardown(err)
				return
			}
			if err := w.Flush(); err != nil {
				l.teardown(err)
				return
			}
		}
	}
}

// rxLoop 接收循环
func (l *Link) rxLoop() {
	r := bufio.NewReader(l.conn)
	for {
		data, err := ReadFrame(r)
		if err != nil {
			l.teardown(err)
			return
		}

		var env Envelope
		if err := env.Unmarshal(data); err != nil {
			logger.Warn("丢弃格式错误的信封", "peer", l.remote.ID.ShortString(), "error", err)
			continue
		}

		if l.handler != nil {
			l.handler.HandleEnvelope(l, env)
		}
	}
}

// teardown 拆除链路，只执行一次
func (l *Link) teardown(reason error) {
	l.closeOnce.Do(func() {
		if isClosedConnErr(reason) {
			reason = nil
		}

		l.errMu.Lock()
		l.err = reason
		l.errMu.Unlock()

		close(l.done)
		_ = l.conn.Close()

		if reason != nil {
			logger.Debug("链路断开", "peer", l.remote.ID.ShortString(), "reason", reason)
		}

		if l.onClose != nil {
			l.onClose(l, reason)
		}
	})
}

// isClosedConnErr 判断是否为本端关闭连接导致的错误
func isClosedConnErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

// eofLike 判断是否为对端正常关闭
func eofLike(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
