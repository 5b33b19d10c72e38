// Package client 实现通道名称服务的客户端代理
//
// Proxy 是每个节点上的名称服务门面：登录服务端后，把 Resolve / Register /
// Lease / Deregister 同步调用转换为请求/响应交换。
//
// # 关联
//
// 每个调用以 RequestID 关联一个一次性通道，而不是依赖全局顺序：
// 解析响应可能在很久之后、乱序到达。同一节点上对同一 (name, level) 的
// 并发解析合并为一个线上请求，响应到达后按排队顺序唤醒。
//
// # 失败
//
//   - 与服务端的链路丢失：所有未完成调用返回 ErrLinkLost，之后的调用返回
//     ErrNotConnected；代理不自动重连
//   - 协议层拒绝：ErrRegisterRejected / ErrLeaseRejected / ErrDeregisterRejected
//   - 可选的 RequestTimeout 与 ctx 只解除单个调用的阻塞，不影响其他调用
//
// # 默认代理
//
// SetDefault / Default / ClearDefault 提供显式的进程级默认代理，
// Fx 模块在登录成功后设置、停止前清除。
package client
