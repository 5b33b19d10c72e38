package channel

import (
	"context"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/lib/log"
	"github.com/dep2p/go-cns/pkg/types"
)

var logger = log.Logger("core/channel")

// DefaultBufferSize 输入端默认缓冲大小
const DefaultBufferSize = 64

// Message 输入端收到的消息
type Message struct {
	// From 发送方节点
	From types.NodeID

	// Payload 负载
	Payload []byte
}

// Input 输入端
//
// 绑定在节点的一个动态端口上。负载在链路接收循环中入队，缓冲满时丢弃并记录。
type Input struct {
	host pkgif.Host
	loc  types.Location

	msgs chan Message
	done chan struct{}

	// mu 保护投递与关闭之间的竞争
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewInput 在节点上创建输入端
func NewInput(h pkgif.Host, bufSize int) (*Input, error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	in := &Input{
		host: h,
		msgs: make(chan Message, bufSize),
		done: make(chan struct{}),
	}

	port, err := h.BindAny(in.deliver)
	if err != nil {
		return nil, err
	}
	in.loc = types.Location{Node: h.ID(), Addr: h.Addr(), Port: port}
	return in, nil
}

// Location 返回输入端位置
func (in *Input) Location() types.Location {
	return in.loc
}

// Recv 接收一条消息
//
// 阻塞直到收到消息、ctx 结束或输入端关闭。
func (in *Input) Recv(ctx context.Context) (Message, error) {
	// 关闭前已入队的消息仍可读出
	select {
	case m := <-in.msgs:
		return m, nil
	default:
	}

	select {
	case m := <-in.msgs:
		return m, nil
	case <-in.done:
		return Message{}, ErrChannelClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Chan 返回消息通道，便于在 select 中使用
func (in *Input) Chan() <-chan Message {
	return in.msgs
}

// Dropped 返回因缓冲满被丢弃的消息数
func (in *Input) Dropped() uint64 {
	return in.dropped.Load()
}

// Close 关闭输入端并释放端口
func (in *Input) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	close(in.done)
	in.mu.Unlock()

	in.host.Unbind(in.loc.Port)
	return nil
}

// IsClosed 是否已关闭
func (in *Input) IsClosed() bool {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.closed
}

func (in *Input) deliver(from types.NodeID, payload []byte) {
	in.mu.RLock()
	defer in.mu.RUnlock()

	if in.closed {
		return
	}
	select {
	case in.msgs <- Message{From: from, Payload: payload}:
	default:
		if in.dropped.Add(1) == 1 {
			logger.Warn("输入端缓冲已满，丢弃消息", "port", in.loc.Port, "from", from.ShortString())
		}
	}
}
