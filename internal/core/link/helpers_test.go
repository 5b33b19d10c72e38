package link

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/internal/core/transport/tcp"
	"github.com/dep2p/go-cns/pkg/types"
)

// testNode 回环地址上的测试节点
type testNode struct {
	id   types.NodeID
	addr string
	bus  *eventbus.Bus
	reg  *Registry
	recv chan Envelope
}

func newTestNode(t *testing.T, id types.NodeID) *testNode {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	n := &testNode{
		id:   id,
		addr: ln.Addr().String(),
		bus:  eventbus.NewBus(),
		recv: make(chan Envelope, 64),
	}

	handler := HandlerFunc(func(_ *Link, env Envelope) {
		n.recv <- env
	})
	n.reg, err = NewRegistry(Identity{ID: id, ListenAddr: n.addr}, DefaultConfig(),
		tcp.NewTransport(tcp.DefaultConfig()), handler, n.bus)
	require.NoError(t, err)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { _, _ = n.reg.Accept(conn) }()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		_ = n.reg.Close()
	})
	return n
}

// loopbackPair 返回一对已连接的 TCP 连接
func loopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	server, ok := <-accepted
	require.True(t, ok)

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}
