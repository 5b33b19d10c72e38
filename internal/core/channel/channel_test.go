package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/internal/core/host"
	"github.com/dep2p/go-cns/pkg/types"
	"github.com/dep2p/go-cns/tests/testutil"
)

func newHost(t *testing.T) *host.Host {
	t.Helper()

	h, err := host.New(host.DefaultConfig(), eventbus.NewBus())
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// TestChannel_Remote 测试跨节点收发
func TestChannel_Remote(t *testing.T) {
	a, b := newHost(t), newHost(t)
	ctx := testutil.TestContext(t, 5*time.Second)

	in, err := NewInput(b, 8)
	require.NoError(t, err)
	defer in.Close()

	loc := in.Location()
	assert.Equal(t, b.ID(), loc.Node)
	assert.Equal(t, b.Addr(), loc.Addr)
	assert.GreaterOrEqual(t, loc.Port, host.DynamicPortBase)

	out := NewOutput(a, loc)
	for i := 0; i < 3; i++ {
		require.NoError(t, out.Send(ctx, []byte{byte(i)}))
	}
	for i := 0; i < 3; i++ {
		msg, err := in.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, a.ID(), msg.From)
		assert.Equal(t, []byte{byte(i)}, msg.Payload)
	}
}

// TestChannel_Local 测试同节点收发
func TestChannel_Local(t *testing.T) {
	h := newHost(t)
	ctx := testutil.TestContext(t, 5*time.Second)

	in, err := NewInput(h, 0)
	require.NoError(t, err)
	defer in.Close()

	payload := []byte("ping")
	require.NoError(t, NewOutput(h, in.Location()).Send(ctx, payload))
	payload[0] = 'P'

	msg, err := in.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), msg.Payload, "本地投递必须复制负载")
	assert.Equal(t, h.ID(), msg.From)
}

// TestInput_Close 测试输入端关闭
func TestInput_Close(t *testing.T) {
	h := newHost(t)

	in, err := NewInput(h, 1)
	require.NoError(t, err)
	port := in.Location().Port

	require.NoError(t, in.Close())
	require.NoError(t, in.Close())
	assert.True(t, in.IsClosed())

	_, err = in.Recv(context.Background())
	assert.ErrorIs(t, err, ErrChannelClosed)

	// 端口已释放，可重新绑定
	assert.NoError(t, h.Bind(port, func(types.NodeID, []byte) {}))
}

// TestInput_Recv_Context 测试接收超时
func TestInput_Recv_Context(t *testing.T) {
	in, err := NewInput(newHost(t), 1)
	require.NoError(t, err)
	defer in.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = in.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestInput_Overflow 测试缓冲满时丢弃
func TestInput_Overflow(t *testing.T) {
	h := newHost(t)
	ctx := context.Background()

	in, err := NewInput(h, 1)
	require.NoError(t, err)
	defer in.Close()

	out := NewOutput(h, in.Location())
	require.NoError(t, out.Send(ctx, []byte("a")))
	require.NoError(t, out.Send(ctx, []byte("b")))
	assert.Equal(t, uint64(1), in.Dropped())

	msg, err := in.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), msg.Payload)
}

// TestOutput_Close 测试输出端关闭
func TestOutput_Close(t *testing.T) {
	h := newHost(t)
	out := NewOutput(h, types.Location{Node: h.ID(), Port: 5000})

	require.NoError(t, out.Close())
	assert.True(t, out.IsClosed())
	assert.ErrorIs(t, out.Send(context.Background(), nil), ErrChannelClosed)
}
