package host

import "errors"

var (
	// ErrAddressInUse 端口已被绑定
	ErrAddressInUse = errors.New("host: address in use")

	// ErrServiceExists 服务名已被占用
	ErrServiceExists = errors.New("host: service already installed")

	// ErrHostClosed 节点已关闭
	ErrHostClosed = errors.New("host: closed")

	// ErrNoRoute 没有到目标节点的链路且位置中没有地址
	ErrNoRoute = errors.New("host: no route to node")
)
