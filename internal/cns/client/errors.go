package client

import "errors"

var (
	// ErrConnectFailed 所有配置的服务端地址都无法连接
	ErrConnectFailed = errors.New("client: cannot connect to name server")

	// ErrLogonRejected 服务端拒绝登录
	ErrLogonRejected = errors.New("client: logon rejected")

	// ErrNotConnected 尚未登录或链路已丢失
	ErrNotConnected = errors.New("client: not connected")

	// ErrLinkLost 等待响应期间与服务端的链路丢失
	ErrLinkLost = errors.New("client: link to name server lost")

	// ErrRegisterRejected 注册被拒绝
	ErrRegisterRejected = errors.New("client: register rejected")

	// ErrLeaseRejected 租约被拒绝
	ErrLeaseRejected = errors.New("client: lease rejected")

	// ErrDeregisterRejected 注销被拒绝
	ErrDeregisterRejected = errors.New("client: deregister rejected")

	// ErrRequestTimeout 调用方超时
	ErrRequestTimeout = errors.New("client: request timed out")

	// ErrProxyClosed 代理已关闭
	ErrProxyClosed = errors.New("client: proxy closed")

	// ErrNoDefault 未设置默认代理
	ErrNoDefault = errors.New("client: no default proxy")

	// ErrAlreadyConnected 重复登录
	ErrAlreadyConnected = errors.New("client: already connected")
)

// ErrNotFound 服务端返回空位置
var ErrNotFound = errors.New("client: name not found")
