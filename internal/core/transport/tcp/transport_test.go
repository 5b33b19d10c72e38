package tcp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransport_DialListen 测试回环地址上的拨号与监听
func TestTransport_DialListen(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 4)
		_, _ = io.ReadFull(c, buf)
		accepted <- buf
	}()

	conn, err := tr.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	select {
	case got := <-accepted:
		assert.Equal(t, []byte("ping"), got)
	case <-time.After(2 * time.Second):
		t.Fatal("未收到数据")
	}
}

// TestTransport_DialRefused 测试拨号失败
func TestTransport_DialRefused(t *testing.T) {
	tr := NewTransport(DefaultConfig())
	defer tr.Close()

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = tr.Dial(context.Background(), addr)
	assert.ErrorIs(t, err, ErrDialFailed)
}

// TestTransport_Close 测试关闭后不可用
func TestTransport_Close(t *testing.T) {
	tr := NewTransport(DefaultConfig())

	ln, err := tr.Listen("127.0.0.1:0")
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	_, err = ln.Accept()
	assert.Error(t, err, "监听器应已关闭")

	_, err = tr.Listen("127.0.0.1:0")
	assert.ErrorIs(t, err, ErrTransportClosed)
	_, err = tr.Dial(context.Background(), "127.0.0.1:1")
	assert.ErrorIs(t, err, ErrTransportClosed)
}
