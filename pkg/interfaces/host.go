package interfaces

import (
	"context"

	"github.com/dep2p/go-cns/pkg/types"
)

// PortHandler 处理投递到本地端口的负载
//
// 在链路接收循环中同步调用，实现必须尽快返回（通常只做入队）。
type PortHandler func(from types.NodeID, payload []byte)

// Service 可安装到节点服务注册表的服务
type Service interface {
	// Start 启动服务
	Start(ctx context.Context) error

	// Stop 停止服务
	Stop(ctx context.Context) error
}

// Host 定义节点接口
//
// Host 持有节点身份、监听器与链路注册表，把链路上的信封按端口分发给
// 本地处理器，并提供按名称查找的服务注册表。
type Host interface {
	// ID 返回节点标识
	ID() types.NodeID

	// Addr 返回节点对外地址；纯客户端节点为空
	Addr() string

	// Bind 将处理器绑定到指定端口；端口已占用返回 ErrAddressInUse
	Bind(port uint64, handler PortHandler) error

	// BindAny 将处理器绑定到一个空闲的动态端口
	BindAny(handler PortHandler) (uint64, error)

	// Unbind 解除端口绑定
	Unbind(port uint64)

	// Send 通过已有链路向节点的端口发送负载
	Send(ctx context.Context, node types.NodeID, port uint64, payload []byte) error

	// TrySend 与 Send 相同，但发送队列已满时立即返回错误而不等待
	TrySend(node types.NodeID, port uint64, payload []byte) error

	// SendTo 向位置发送负载，必要时按位置中的地址建立链路
	SendTo(ctx context.Context, loc types.Location, payload []byte) error

	// Connect 建立到地址的链路，返回对方节点标识
	Connect(ctx context.Context, addr string) (types.NodeID, error)

	// Install 以名称安装服务；名称已存在返回错误
	Install(name string, svc Service) error

	// Service 按名称查找服务
	Service(name string) (Service, bool)

	// Uninstall 移除服务
	Uninstall(name string)

	// EventBus 返回节点事件总线
	EventBus() EventBus

	// Close 关闭节点
	Close() error
}
