package channel

import "errors"

// ErrChannelClosed 通道端已关闭
var ErrChannelClosed = errors.New("channel: closed")
