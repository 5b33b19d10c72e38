package channel

import (
	"context"
	"sync/atomic"

	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/types"
)

// Output 输出端
//
// 持有目标位置，每次发送都经由节点的链路注册表路由。
type Output struct {
	host   pkgif.Host
	target types.Location
	closed atomic.Bool
}

// NewOutput 创建写向 target 的输出端
func NewOutput(h pkgif.Host, target types.Location) *Output {
	return &Output{host: h, target: target}
}

// Target 返回目标位置
func (o *Output) Target() types.Location {
	return o.target
}

// Send 发送负载
func (o *Output) Send(ctx context.Context, payload []byte) error {
	if o.closed.Load() {
		return ErrChannelClosed
	}
	return o.host.SendTo(ctx, o.target, payload)
}

// Close 关闭输出端
//
// 输出端不独占链路，关闭只是使后续发送失败。
func (o *Output) Close() error {
	o.closed.Store(true)
	return nil
}

// IsClosed 是否已关闭
func (o *Output) IsClosed() bool {
	return o.closed.Load()
}
