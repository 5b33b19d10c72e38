package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/internal/core/link"
	pkgif "github.com/dep2p/go-cns/pkg/interfaces"
	"github.com/dep2p/go-cns/pkg/types"
	"github.com/dep2p/go-cns/tests/testutil"
)

type received struct {
	from    types.NodeID
	payload []byte
}

func newTestHost(t *testing.T, listen bool) *Host {
	t.Helper()

	cfg := DefaultConfig()
	if !listen {
		cfg.ListenAddr = ""
	}
	h, err := New(cfg, eventbus.NewBus())
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func sink(ch chan received) pkgif.PortHandler {
	return func(from types.NodeID, payload []byte) {
		ch <- received{from, payload}
	}
}

// TestHost_Identity 测试节点身份与地址
func TestHost_Identity(t *testing.T) {
	h := newTestHost(t, true)
	assert.False(t, h.ID().IsEmpty())
	assert.NotEmpty(t, h.Addr())

	c := newTestHost(t, false)
	assert.Empty(t, c.Addr(), "纯客户端节点没有地址")

	cfg := DefaultConfig()
	cfg.ID = "fixed-id"
	cfg.AdvertiseAddr = "10.0.0.1:7000"
	fixed, err := New(cfg, eventbus.NewBus())
	require.NoError(t, err)
	defer fixed.Close()
	assert.Equal(t, types.NodeID("fixed-id"), fixed.ID())
	assert.Equal(t, "10.0.0.1:7000", fixed.Addr())
}

// TestHost_Bind 测试端口绑定
func TestHost_Bind(t *testing.T) {
	h := newTestHost(t, false)
	noop := func(types.NodeID, []byte) {}

	require.NoError(t, h.Bind(1, noop))
	assert.ErrorIs(t, h.Bind(1, noop), ErrAddressInUse)
	assert.Error(t, h.Bind(0, noop))

	h.Unbind(1)
	assert.NoError(t, h.Bind(1, noop))

	p1, err := h.BindAny(noop)
	require.NoError(t, err)
	p2, err := h.BindAny(noop)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p1, DynamicPortBase)
	assert.NotEqual(t, p1, p2)
}

// TestHost_SendTo 测试跨节点按位置发送与按节点回复
func TestHost_SendTo(t *testing.T) {
	server := newTestHost(t, true)
	client := newTestHost(t, false)

	srvCh := make(chan received, 4)
	require.NoError(t, server.Bind(1, sink(srvCh)))

	cliCh := make(chan received, 4)
	replyPort, err := client.BindAny(sink(cliCh))
	require.NoError(t, err)

	ctx := testutil.TestContext(t, 5*time.Second)
	loc := types.Location{Node: server.ID(), Addr: server.Addr(), Port: 1}
	require.NoError(t, client.SendTo(ctx, loc, []byte("hello")))

	got := testutil.Recv(t, srvCh, 2*time.Second, "服务端未收到")
	assert.Equal(t, client.ID(), got.from)
	assert.Equal(t, []byte("hello"), got.payload)

	// 服务端经同一链路回复没有监听地址的客户端
	require.NoError(t, server.Send(ctx, client.ID(), replyPort, []byte("world")))
	reply := testutil.Recv(t, cliCh, 2*time.Second, "客户端未收到")
	assert.Equal(t, server.ID(), reply.from)
	assert.Equal(t, []byte("world"), reply.payload)
}

// TestHost_SendLocal 测试发往本节点的负载直接分发
func TestHost_SendLocal(t *testing.T) {
	h := newTestHost(t, false)

	ch := make(chan received, 1)
	port, err := h.BindAny(sink(ch))
	require.NoError(t, err)

	require.NoError(t, h.SendTo(context.Background(), types.Location{Node: h.ID(), Port: port}, []byte("x")))
	got := testutil.Recv(t, ch, time.Second, "本地分发")
	assert.Equal(t, h.ID(), got.from)

	require.NoError(t, h.TrySend(h.ID(), port, []byte("y")))
	got = testutil.Recv(t, ch, time.Second, "本地分发不等待")
	assert.Equal(t, []byte("y"), got.payload)
}

// TestHost_SendNoRoute 测试无路由
func TestHost_SendNoRoute(t *testing.T) {
	h := newTestHost(t, false)
	ctx := context.Background()

	assert.ErrorIs(t, h.Send(ctx, "ghost", 1, nil), link.ErrNoLink)
	assert.ErrorIs(t, h.TrySend("ghost", 1, nil), link.ErrNoLink)
	assert.ErrorIs(t, h.SendTo(ctx, types.Location{Node: "ghost", Port: 1}, nil), ErrNoRoute)
}

// TestHost_Connect 测试建链返回对方身份
func TestHost_Connect(t *testing.T) {
	server := newTestHost(t, true)
	client := newTestHost(t, false)

	id, err := client.Connect(context.Background(), server.Addr())
	require.NoError(t, err)
	assert.Equal(t, server.ID(), id)
}

type fakeService struct{}

func (fakeService) Start(context.Context) error { return nil }
func (fakeService) Stop(context.Context) error  { return nil }

// TestHost_Services 测试服务注册表
func TestHost_Services(t *testing.T) {
	h := newTestHost(t, false)

	require.NoError(t, h.Install("Channel Name Server", fakeService{}))
	assert.ErrorIs(t, h.Install("Channel Name Server", fakeService{}), ErrServiceExists)

	svc, ok := h.Service("Channel Name Server")
	assert.True(t, ok)
	assert.Equal(t, fakeService{}, svc)

	h.Uninstall("Channel Name Server")
	_, ok = h.Service("Channel Name Server")
	assert.False(t, ok)
}

// TestHost_Close 测试关闭
func TestHost_Close(t *testing.T) {
	h, err := New(DefaultConfig(), eventbus.NewBus())
	require.NoError(t, err)
	require.NoError(t, h.Start(context.Background()))

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	assert.ErrorIs(t, h.Start(context.Background()), ErrHostClosed)
	assert.ErrorIs(t, h.Send(context.Background(), "x", 1, nil), ErrHostClosed)
	_, err = h.Connect(context.Background(), "127.0.0.1:1")
	assert.ErrorIs(t, err, ErrHostClosed)
}
