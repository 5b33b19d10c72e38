package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handshakeResult struct {
	remote Identity
	err    error
}

func runHandshakes(t *testing.T, a, b Identity, protoA, protoB string) (handshakeResult, handshakeResult) {
	t.Helper()

	ca, cb := loopbackPair(t)

	resB := make(chan handshakeResult, 1)
	go func() {
		remote, err := Handshake(cb, b, protoB, time.Second)
		resB <- handshakeResult{remote, err}
	}()

	remote, err := Handshake(ca, a, protoA, time.Second)
	return handshakeResult{remote, err}, <-resB
}

// TestHandshake_Success 测试握手交换身份
func TestHandshake_Success(t *testing.T) {
	a := Identity{ID: "node-a", ListenAddr: "127.0.0.1:1000"}
	b := Identity{ID: "node-b"}

	ra, rb := runHandshakes(t, a, b, DefaultProtocolID, DefaultProtocolID)
	require.NoError(t, ra.err)
	require.NoError(t, rb.err)
	assert.Equal(t, b, ra.remote)
	assert.Equal(t, a, rb.remote)
}

// TestHandshake_ProtocolMismatch 测试协议标识不匹配
func TestHandshake_ProtocolMismatch(t *testing.T) {
	ra, rb := runHandshakes(t, Identity{ID: "a"}, Identity{ID: "b"}, "/cns/link/1.0.0", "/other/1.0.0")
	assert.ErrorIs(t, ra.err, ErrProtocolMismatch)
	assert.ErrorIs(t, rb.err, ErrProtocolMismatch)
}

// TestHandshake_InvalidIdentity 测试空身份和自连接
func TestHandshake_InvalidIdentity(t *testing.T) {
	ra, _ := runHandshakes(t, Identity{ID: "a"}, Identity{}, DefaultProtocolID, DefaultProtocolID)
	assert.ErrorIs(t, ra.err, ErrInvalidIdentity)

	ra, rb := runHandshakes(t, Identity{ID: "same"}, Identity{ID: "same"}, DefaultProtocolID, DefaultProtocolID)
	assert.ErrorIs(t, ra.err, ErrInvalidIdentity)
	assert.ErrorIs(t, rb.err, ErrInvalidIdentity)
}

// TestHandshake_Timeout 测试对方不响应时超时
func TestHandshake_Timeout(t *testing.T) {
	ca, _ := loopbackPair(t)

	start := time.Now()
	_, err := Handshake(ca, Identity{ID: "a"}, DefaultProtocolID, 100*time.Millisecond)
	assert.ErrorIs(t, err, ErrHandshakeFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}
