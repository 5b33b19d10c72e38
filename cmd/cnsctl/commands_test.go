package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"

	"github.com/dep2p/go-cns/pkg/types"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("level", "/", "")
	set.String("key", "", "")
	set.String("server", "", "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(nil, set, nil)
}

// TestParseTarget 测试子命令参数解析
func TestParseTarget(t *testing.T) {
	key := types.RegistrationKey{Seq: 7}

	tg, err := parseTarget(newContext(t, "-level", "/dc1/rack2", "-key", key.String(), "svc.echo"))
	require.NoError(t, err)
	assert.Equal(t, types.Name("svc.echo"), tg.name)
	assert.Equal(t, types.MustAccessLevel("dc1", "rack2"), tg.level)
	assert.Equal(t, key, tg.key)

	tg, err = parseTarget(newContext(t, "svc.echo"))
	require.NoError(t, err)
	assert.True(t, tg.level.IsGlobal())
	assert.True(t, tg.key.IsZero())

	_, err = parseTarget(newContext(t))
	assert.Error(t, err, "缺少名称")

	_, err = parseTarget(newContext(t, "-key", "garbage", "svc.echo"))
	assert.Error(t, err)
}

// TestServerAddrs 测试服务地址解析
func TestServerAddrs(t *testing.T) {
	addrs, err := serverAddrs(newContext(t, "-server", "127.0.0.1:7300, 127.0.0.1:7301,"))
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:7300", "127.0.0.1:7301"}, addrs)

	_, err = serverAddrs(newContext(t))
	assert.Error(t, err)
}
