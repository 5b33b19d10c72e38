package tcp

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-cns/pkg/lib/log"
)

var logger = log.Logger("core/transport/tcp")

// ============================================================================
//                              配置
// ============================================================================

// Config TCP 传输配置
type Config struct {
	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// KeepAlive TCP keepalive 周期；0 表示使用系统默认
	KeepAlive time.Duration

	// NoDelay 是否禁用 Nagle 算法
	NoDelay bool
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		DialTimeout: 10 * time.Second,
		KeepAlive:   30 * time.Second,
		NoDelay:     true,
	}
}

// ============================================================================
//                              Transport 实现
// ============================================================================

// Transport TCP 传输层
//
// 只负责建立字节流连接；握手和分帧由 link 层完成。
type Transport struct {
	config Config

	listeners   map[net.Listener]struct{}
	listenersMu sync.Mutex

	closed atomic.Bool
}

// NewTransport 创建 TCP 传输层
func NewTransport(config Config) *Transport {
	return &Transport{
		config:    config,
		listeners: make(map[net.Listener]struct{}),
	}
}

// Dial 建立出站连接
//
// addr 为 host:port 形式。
func (t *Transport) Dial(ctx context.Context, addr string) (net.Conn, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	dialer := &net.Dialer{
		Timeout:   t.config.DialTimeout,
		KeepAlive: t.config.KeepAlive,
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDialFailed, addr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok && t.config.NoDelay {
		_ = tcpConn.SetNoDelay(true)
	}

	logger.Debug("出站连接建立", "remote", conn.RemoteAddr().String())
	return conn, nil
}

// Listen 监听入站连接
//
// addr 为 host:port 形式，端口为 0 时由系统分配。
func (t *Transport) Listen(addr string) (net.Listener, error) {
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrListenFailed, addr, err)
	}

	t.listenersMu.Lock()
	t.listeners[ln] = struct{}{}
	t.listenersMu.Unlock()

	logger.Info("开始监听", "addr", ln.Addr().String())
	return &listener{Listener: ln, t: t}, nil
}

// Close 关闭传输层及其所有监听器
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.listenersMu.Lock()
	defer t.listenersMu.Unlock()

	var err error
	for ln := range t.listeners {
		err = multierr.Append(err, ln.Close())
	}
	t.listeners = make(map[net.Listener]struct{})
	return err
}

// listener 关闭时从传输层注销
type listener struct {
	net.Listener
	t    *Transport
	once sync.Once
}

func (l *listener) Close() error {
	var err error
	l.once.Do(func() {
		l.t.listenersMu.Lock()
		delete(l.t.listeners, l.Listener)
		l.t.listenersMu.Unlock()
		err = l.Listener.Close()
	})
	return err
}
