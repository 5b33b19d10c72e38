package cns

import "errors"

// 公共错误定义
var (
	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("cns: node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("cns: node closed")

	// ErrNoServer 本节点没有运行名称服务端
	ErrNoServer = errors.New("cns: server not enabled on this node")

	// ErrNoClient 本节点没有运行客户端代理
	ErrNoClient = errors.New("cns: client not enabled on this node")
)
