// Package host 实现节点（Host）
//
// host 作为 Core Layer 的聚合点，整合传输层、链路注册表与事件总线，
// 为名称服务和通道端提供统一的节点接口。
//
// # Host 架构
//
// Host 采用门面（Facade）模式，组合以下组件：
//   - Transport: TCP 字节流
//   - Link Registry: 握手、分帧与每节点唯一链路
//   - EventBus: 链路事件通知
//   - 端口表: 信封按 Port 分发给本地处理器
//   - 服务注册表: 按名称安装的服务（例如 "Channel Name Server"）
//
// # 端口
//
// 端口是节点内的通道地址。小于 DynamicPortBase 的端口留给知名服务
// （名称服务默认使用端口 1），BindAny 从 DynamicPortBase 起分配。
//
// # 使用示例
//
//	h, err := host.New(host.DefaultConfig(), eventbus.NewBus())
//	err = h.Start(ctx)
//
//	port, err := h.BindAny(func(from types.NodeID, payload []byte) { ... })
//	err = h.SendTo(ctx, types.Location{Node: id, Addr: addr, Port: 1}, data)
package host
