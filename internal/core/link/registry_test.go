package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/pkg/types"
)

// TestRegistry_SendReceive 测试建链后收发信封
func TestRegistry_SendReceive(t *testing.T) {
	a := newTestNode(t, "node-a")
	b := newTestNode(t, "node-b")

	l, err := a.reg.GetOrCreate(context.Background(), b.addr)
	require.NoError(t, err)
	assert.Equal(t, types.NodeID("node-b"), l.RemoteID())
	assert.False(t, l.Inbound())

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, l.Send(context.Background(), Envelope{Port: i, Payload: []byte("x")}))
	}

	// 同一链路内保持顺序
	for i := uint64(1); i <= 3; i++ {
		select {
		case env := <-b.recv:
			assert.Equal(t, i, env.Port)
		case <-time.After(2 * time.Second):
			t.Fatal("信封未送达")
		}
	}

	require.Eventually(t, func() bool {
		_, ok := b.reg.Get("node-a")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	back, _ := b.reg.Get("node-a")
	assert.True(t, back.Inbound())
	assert.Equal(t, a.addr, back.RemoteAddr())
}

// TestRegistry_GetOrCreateReuses 测试并发获取复用同一链路
func TestRegistry_GetOrCreateReuses(t *testing.T) {
	a := newTestNode(t, "node-a")
	b := newTestNode(t, "node-b")

	const n = 8
	links := make([]*Link, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			l, err := a.reg.GetOrCreate(context.Background(), b.addr)
			assert.NoError(t, err)
			links[i] = l
		}(i)
	}
	wg.Wait()

	for _, l := range links {
		assert.Same(t, links[0], l)
	}
	assert.Len(t, a.reg.Links(), 1)
}

// TestRegistry_DialFailure 测试拨号失败
func TestRegistry_DialFailure(t *testing.T) {
	a := newTestNode(t, "node-a")

	_, err := a.reg.GetOrCreate(context.Background(), "127.0.0.1:1")
	assert.Error(t, err)
	assert.Empty(t, a.reg.Links())
}

// TestRegistry_LinkLostOnce 测试对端关闭时恰好一次链路丢失事件
func TestRegistry_LinkLostOnce(t *testing.T) {
	a := newTestNode(t, "node-a")
	b := newTestNode(t, "node-b")

	sub, err := a.bus.Subscribe(new(types.EvtLinkLost), eventbus.Lossless())
	require.NoError(t, err)
	defer sub.Close()

	l, err := a.reg.GetOrCreate(context.Background(), b.addr)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := b.reg.Get("node-a")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.reg.Close())

	select {
	case evt := <-sub.Out():
		lost := evt.(types.EvtLinkLost)
		assert.Equal(t, types.NodeID("node-b"), lost.Node)
		assert.Equal(t, b.addr, lost.Addr)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到链路丢失事件")
	}

	select {
	case evt := <-sub.Out():
		t.Fatalf("重复的链路丢失事件: %v", evt)
	case <-time.After(100 * time.Millisecond):
	}

	<-l.Done()
	assert.ErrorIs(t, l.Send(context.Background(), Envelope{Port: 1}), ErrLinkClosed)
	_, ok := a.reg.Get("node-b")
	assert.False(t, ok)
}

// TestLink_CloseIdempotent 测试主动关闭
func TestLink_CloseIdempotent(t *testing.T) {
	a := newTestNode(t, "node-a")
	b := newTestNode(t, "node-b")

	sub, err := a.bus.Subscribe(new(types.EvtLinkLost), eventbus.Lossless())
	require.NoError(t, err)
	defer sub.Close()

	l, err := a.reg.GetOrCreate(context.Background(), b.addr)
	require.NoError(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.True(t, l.IsClosed())
	assert.NoError(t, l.Err(), "主动关闭没有错误原因")

	select {
	case <-sub.Out():
	case <-time.After(2 * time.Second):
		t.Fatal("未收到链路丢失事件")
	}
	select {
	case evt := <-sub.Out():
		t.Fatalf("重复的链路丢失事件: %v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}

// TestLink_SendRespectsContext 测试队列满时 ctx 取消
func TestLink_SendRespectsContext(t *testing.T) {
	ca, _ := loopbackPair(t)

	// 未启动收发循环，队列只有一个空位
	l := newLink(ca, Identity{ID: "a"}, Identity{ID: "b"}, false, 1, nil, nil)
	require.NoError(t, l.Send(context.Background(), Envelope{Port: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.Send(ctx, Envelope{Port: 2}), context.DeadlineExceeded)

	// 关闭唤醒阻塞中的发送
	done := make(chan error, 1)
	go func() { done <- l.Send(context.Background(), Envelope{Port: 3}) }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, l.Close())
	assert.ErrorIs(t, <-done, ErrLinkClosed)
}

// TestLink_TrySend 测试不等待的发送
func TestLink_TrySend(t *testing.T) {
	ca, _ := loopbackPair(t)

	l := newLink(ca, Identity{ID: "a"}, Identity{ID: "b"}, false, 1, nil, nil)
	require.NoError(t, l.TrySend(Envelope{Port: 1}))
	assert.ErrorIs(t, l.TrySend(Envelope{Port: 2}), ErrQueueFull)

	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.TrySend(Envelope{Port: 3}), ErrLinkClosed)
}

// TestRegistry_DuplicateTieBreak 测试重复链路取舍
func TestRegistry_DuplicateTieBreak(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(types.EvtLinkLost), eventbus.Lossless())
	require.NoError(t, err)
	defer sub.Close()

	reg, err := NewRegistry(Identity{ID: "node-b"}, DefaultConfig(), nil, nil, bus)
	require.NoError(t, err)
	defer reg.Close()

	remote := Identity{ID: "node-a", ListenAddr: "127.0.0.1:7000"}
	newDup := func(inbound bool) *Link {
		c, _ := loopbackPair(t)
		l := newLink(c, reg.local, remote, inbound, 4, nil, reg.onLinkClosed)
		if !inbound {
			l.dialAddr = remote.ListenAddr
		}
		return l
	}

	// node-a < node-b：由 node-a 拨出的链路（本端入站）胜出
	outbound := newDup(false)
	got, err := reg.register(outbound)
	require.NoError(t, err)
	assert.Same(t, outbound, got)

	inbound := newDup(true)
	got, err = reg.register(inbound)
	require.NoError(t, err)
	assert.Same(t, inbound, got)
	assert.True(t, outbound.IsClosed(), "落选链路应被关闭")

	// 反向顺序：后到的出站链路落选
	late := newDup(false)
	got, err = reg.register(late)
	require.NoError(t, err)
	assert.Same(t, inbound, got)
	assert.True(t, late.IsClosed())

	cur, ok := reg.Get("node-a")
	require.True(t, ok)
	assert.Same(t, inbound, cur)

	select {
	case evt := <-sub.Out():
		t.Fatalf("落选链路不应产生事件: %v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}
