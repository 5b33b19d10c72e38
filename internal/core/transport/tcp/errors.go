package tcp

import "errors"

var (
	// ErrTransportClosed 传输已关闭
	ErrTransportClosed = errors.New("tcp: transport closed")

	// ErrDialFailed 拨号失败
	ErrDialFailed = errors.New("tcp: dial failed")

	// ErrListenFailed 监听失败
	ErrListenFailed = errors.New("tcp: listen failed")
)
