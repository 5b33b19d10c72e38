package types

import "time"

// ============================================================================
//                              链路事件
// ============================================================================

// EvtLinkLost 链路丢失事件
//
// 每条已注册链路在拆除时恰好发出一次。CNS 服务端据此清理该节点的注册和
// 排队解析，客户端代理据此唤醒所有阻塞中的调用。
type EvtLinkLost struct {
	// Node 远端节点
	Node NodeID

	// Addr 远端监听地址
	Addr string

	// Reason 断开原因
	Reason error

	// Time 事件时间
	Time time.Time
}

// EvtLinkUp 链路建立事件
type EvtLinkUp struct {
	Node    NodeID
	Addr    string
	Inbound bool
	Time    time.Time
}
