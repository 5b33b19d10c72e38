package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-cns/config"
	"github.com/dep2p/go-cns/internal/cns/server"
	"github.com/dep2p/go-cns/internal/core/eventbus"
	"github.com/dep2p/go-cns/internal/core/host"
	"github.com/dep2p/go-cns/pkg/types"
)

// TestModule 测试同节点服务端与代理的 Fx 组装
func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.Enable = true
	cfg.Client.Enable = true

	var proxy *Proxy
	app := fxtest.New(t,
		fx.Supply(cfg),
		eventbus.Module(),
		host.Module(),
		server.Module(),
		Module(),
		fx.Populate(&proxy),
	)
	app.RequireStart()

	require.True(t, proxy.Connected())
	got, err := Default()
	require.NoError(t, err)
	assert.Same(t, proxy, got)

	_, err = proxy.Register(context.Background(), "svc", types.Global, types.Location{Node: "n", Port: 1}, types.NoKey)
	assert.NoError(t, err)

	app.RequireStop()
	_, err = Default()
	assert.ErrorIs(t, err, ErrNoDefault)
}

// TestConfigFromUnified 测试本节点服务端的服务名沿用到代理
func TestConfigFromUnified(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.Enable = true
	cfg.Server.ServiceName = "names"

	c := ConfigFromUnified(cfg)
	assert.Equal(t, "names", c.ServiceName)
	assert.Empty(t, c.ServerAddrs)

	// 连接远端服务端时使用客户端自己的配置
	cfg.Client.ServerAddrs = []string{"10.0.0.1:7400"}
	cfg.Client.ServiceName = "remote"
	c = ConfigFromUnified(cfg)
	assert.Equal(t, "remote", c.ServiceName)
	assert.Equal(t, []string{"10.0.0.1:7400"}, c.ServerAddrs)

	assert.Equal(t, DefaultConfig(), ConfigFromUnified(nil))
}
