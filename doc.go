// Package cns 组装通道名称服务节点
//
// 通道名称服务（Channel Name Server, CNS）让分布在网络中的进程以符号名称
// 在分层命名空间中注册通道端点，并让其他进程把名称解析回可连接的位置。
//
// 一个节点由以下部分组成，按配置条件加载：
//
//   - Host：节点身份、TCP 监听、链路注册表、端口分发与服务注册表（必需）
//   - Server：权威名称服务端（config.Server.Enable）
//   - Proxy：客户端代理（config.Client.Enable）
//   - Names：命名通道端管理器（随 Proxy 提供）
//
// # 快速开始
//
//	// 名称服务端
//	srv, err := cns.StartServer(ctx, cns.WithListenAddr("0.0.0.0:7400"))
//	defer srv.Close()
//
//	// 客户端节点
//	node, err := cns.StartClient(ctx, []string{"10.0.0.1:7400"})
//	defer node.Close()
//
//	in, err := node.Names().CreateInput(ctx, "svc.echo", types.Global)
//	msg, err := in.Recv(ctx)
package cns
