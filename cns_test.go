package cns

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/internal/cns/server"
	"github.com/dep2p/go-cns/pkg/types"
	"github.com/dep2p/go-cns/tests/testutil"
)

// TestStartServerAndClient 测试服务端节点与客户端节点的组装
func TestStartServerAndClient(t *testing.T) {
	ctx := testutil.TestContext(t, 10*time.Second)
	reg := prometheus.NewRegistry()

	srvNode, err := StartServer(ctx, WithMetricsRegisterer(reg))
	require.NoError(t, err)
	defer srvNode.Close()

	srv, err := srvNode.Server()
	require.NoError(t, err)
	assert.Equal(t, server.StateRunning, srv.State())
	_, err = srvNode.Proxy()
	assert.ErrorIs(t, err, ErrNoClient)
	assert.Nil(t, srvNode.Names())

	consumer, err := StartClient(ctx, []string{srvNode.Addr()})
	require.NoError(t, err)
	defer consumer.Close()
	assert.Empty(t, consumer.Addr(), "纯客户端节点不监听")

	producer, err := StartClient(ctx, []string{srvNode.Addr()}, WithListenAddr(testutil.LoopbackAddr))
	require.NoError(t, err)
	defer producer.Close()

	in, err := consumer.Names().CreateInput(ctx, testutil.EchoName, types.Global)
	require.NoError(t, err)

	out, err := producer.Names().CreateOutput(ctx, testutil.EchoName, types.Global)
	require.NoError(t, err)

	// 纯客户端节点的位置不含地址，无链路的生产者无法投递
	assert.Empty(t, in.Location().Addr)
	err = out.Send(ctx, []byte("ping"))
	assert.Error(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

// TestNode_EchoRoundTrip 测试两个监听节点之间的命名通道
func TestNode_EchoRoundTrip(t *testing.T) {
	ctx := testutil.TestContext(t, 10*time.Second)

	srvNode, err := StartServer(ctx)
	require.NoError(t, err)
	defer srvNode.Close()

	listen := WithListenAddr(testutil.LoopbackAddr)
	consumer, err := StartClient(ctx, []string{srvNode.Addr()}, listen)
	require.NoError(t, err)
	defer consumer.Close()
	producer, err := StartClient(ctx, []string{srvNode.Addr()}, listen)
	require.NoError(t, err)
	defer producer.Close()

	in, err := consumer.Names().CreateInput(ctx, testutil.EchoName, types.Global)
	require.NoError(t, err)
	out, err := producer.Names().CreateOutput(ctx, testutil.EchoName, types.Global)
	require.NoError(t, err)

	require.NoError(t, out.Send(ctx, []byte("ping")))
	msg, err := in.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), msg.Payload)
	assert.Equal(t, producer.ID(), msg.From)

	// 关闭消费者节点会注销其名称
	require.NoError(t, consumer.Close())
	srv, _ := srvNode.Server()
	testutil.Eventually(t, 5*time.Second, func() bool { return srv.Stats().Bindings == 0 }, "注销完成")
}

// TestNode_Lifecycle 测试节点生命周期
func TestNode_Lifecycle(t *testing.T) {
	ctx := context.Background()

	node, err := New(WithServer(true), WithMetricsRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	require.NoError(t, node.Start(ctx))
	assert.ErrorIs(t, node.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, node.Close())
	require.NoError(t, node.Close())
	assert.ErrorIs(t, node.Start(ctx), ErrNodeClosed)
}

// TestNew_InvalidConfig 测试无效配置
func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithClient(true))
	assert.Error(t, err, "客户端既无服务端地址也无本地服务端")

	_, err = New(WithConfig(nil))
	assert.Error(t, err)

	cfg := config.NewConfig()
	cfg.Server.Enable = true
	cfg.Client.Enable = true
	node, err := New(WithConfig(cfg))
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	defer node.Close()

	p, err := node.Proxy()
	require.NoError(t, err)
	assert.Equal(t, node.ID(), p.ServerID(), "同节点的服务端")
}
