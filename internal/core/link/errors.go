package link

import "errors"

var (
	// ErrLinkClosed 链路已关闭
	ErrLinkClosed = errors.New("link: closed")

	// ErrProtocolMismatch 握手协议标识不匹配
	ErrProtocolMismatch = errors.New("link: protocol mismatch")

	// ErrInvalidIdentity 握手中对方身份无效（为空或与本地相同）
	ErrInvalidIdentity = errors.New("link: invalid peer identity")

	// ErrHandshakeFailed 握手失败
	ErrHandshakeFailed = errors.New("link: handshake failed")

	// ErrFrameTooLarge 帧超过大小上限
	ErrFrameTooLarge = errors.New("link: frame too large")

	// ErrRegistryClosed 注册表已关闭
	ErrRegistryClosed = errors.New("link: registry closed")

	// ErrNoLink 没有到该节点的链路
	ErrNoLink = errors.New("link: no link to node")

	// ErrQueueFull 发送队列已满
	ErrQueueFull = errors.New("link: send queue full")
)
