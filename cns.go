package cns

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-cns/internal/cns/client"
	"github.com/dep2p/go-cns/internal/cns/namedchan"
	"github.com/dep2p/go-cns/internal/cns/server"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	"github.com/dep2p/go-cns/pkg/types"
)

// Version 当前版本
const Version = "v0.1.0"

var logger = log.Logger("cns")

// stopTimeout Fx 应用停止超时
const stopTimeout = 15 * time.Second

// Node 名称服务节点
type Node struct {
	app *fx.App

	// 由 Fx 注入
	host   pkgif.Host
	server *server.Server
	proxy  *client.Proxy

	names *namedchan.Manager

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建节点但不启动
func New(opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	node := &Node{}
	app, err := buildFxApp(o, node)
	if err != nil {
		return nil, err
	}
	node.app = app
	return node, nil
}

// Start 启动节点
//
// 启动失败时已启动的组件会被回滚。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	if err := n.app.Start(ctx); err != nil {
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("start node: %w", err)
	}
	if n.proxy != nil {
		n.names = namedchan.NewManager(n.host, n.proxy, 0)
	}
	n.started = true

	logger.Info("节点已启动",
		"id", n.host.ID().ShortString(),
		"addr", n.host.Addr(),
		"server", n.server != nil,
		"client", n.proxy != nil)
	return nil
}

// Close 关闭节点
//
// 先销毁命名通道端，再按启动的逆序停止各组件。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true
	if !n.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if n.names != nil {
		if err := n.names.DestroyAll(ctx); err != nil {
			logger.Warn("销毁命名通道端失败", "error", err)
		}
	}
	return n.app.Stop(ctx)
}

// StartServer 创建并启动运行名称服务端的节点
func StartServer(ctx context.Context, opts ...Option) (*Node, error) {
	return start(ctx, append([]Option{WithServer(true)}, opts...)...)
}

// StartClient 创建并启动连接到 serverAddrs 的客户端节点
//
// 默认不监听入站连接；需要被其他节点直接连接时追加 WithListenAddr。
func StartClient(ctx context.Context, serverAddrs []string, opts ...Option) (*Node, error) {
	base := []Option{WithListenAddr(""), WithServerAddrs(serverAddrs...)}
	return start(ctx, append(base, opts...)...)
}

func start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := node.Start(ctx); err != nil {
		return nil, err
	}
	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              访问器
// ════════════════════════════════════════════════════════════════════════════

// ID 返回节点标识
func (n *Node) ID() types.NodeID {
	return n.host.ID()
}

// Addr 返回节点对外地址；纯客户端节点为空
func (n *Node) Addr() string {
	return n.host.Addr()
}

// Host 返回底层节点
func (n *Node) Host() pkgif.Host {
	return n.host
}

// Server 返回名称服务端
func (n *Node) Server() (*server.Server, error) {
	if n.server == nil {
		return nil, ErrNoServer
	}
	return n.server, nil
}

// Proxy 返回客户端代理
func (n *Node) Proxy() (*client.Proxy, error) {
	if n.proxy == nil {
		return nil, ErrNoClient
	}
	return n.proxy, nil
}

// Names 返回命名通道端管理器；未启用客户端时为 nil
func (n *Node) Names() *namedchan.Manager {
	return n.names
}
