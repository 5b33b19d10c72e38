// Package server 实现通道名称服务端
//
// 服务端持有四张权威表：名称绑定、租约、排队解析和客户端会话，
// 只由一个事件循环访问。事件循环按优先级选择：
//
//  1. 停止信号：退出循环，释放管理端口
//  2. 链路丢失：清理该节点的会话、绑定和排队解析（租约保留）
//  3. 入站消息：Logon / Register / Resolve / Lease / Deregister
//
// # 协议语义
//
//   - Register：未绑定且未租用时直接成功；已租用时必须出示租约凭证；
//     已绑定时同一位置的重复注册总是成功，换位置必须出示当前凭证。
//     每次成功都签发新凭证，并唤醒同名、作用域为其后代的排队解析。
//   - Resolve：从请求作用域沿父作用域查找，最近的优先；找不到时在原作用域排队。
//   - Lease：先用出示的凭证释放已有绑定或租约，再签发新租约。
//     已被租用的名称只能由持有租约凭证的一方续租。
//   - Deregister：凭证匹配或名称不存在时成功，凭证不符时失败。
//
// 处理器中的 panic 在循环边界恢复并记录，不影响后续消息。
// 响应不等待发送队列：客户端队列已满时丢弃该响应并计数，事件循环不因慢客户端停顿。
//
// # 使用示例
//
//	srv, err := server.New(h, store, server.DefaultConfig())
//	if err := srv.Start(ctx); err != nil {
//	    // 管理端口已被占用
//	}
//	defer srv.Stop(ctx)
package server
