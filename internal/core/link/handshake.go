package link

import (
	"fmt"
	"net"
	"time"

	linkpb "github.com/dep2p/go-cns/pkg/lib/proto/link"
)

// Identity 链路一端的身份
type Identity = linkpb.Identity

// Handshake 在已建立的连接上执行握手，返回对方身份
//
// 双方先各写一帧协议标识并校验对方的，再交换 Identity。
// 任何失败都会关闭 conn。timeout 为 0 表示不设截止时间。
func Handshake(conn net.Conn, local Identity, protocolID string, timeout time.Duration) (remote Identity, err error) {
	defer func() {
		if err != nil {
			_ = conn.Close()
		}
	}()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return remote, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	// 1. 协议标识
	if err := WriteFrame(conn, (&linkpb.Hello{ProtocolID: protocolID}).Marshal()); err != nil {
		return remote, fmt.Errorf("%w: write hello: %v", ErrHandshakeFailed, err)
	}
	data, err := ReadFrame(conn)
	if err != nil {
		return remote, fmt.Errorf("%w: read hello: %v", ErrHandshakeFailed, err)
	}
	var hello linkpb.Hello
	if err := hello.Unmarshal(data); err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if hello.ProtocolID != protocolID {
		return remote, fmt.Errorf("%w: got %q, want %q", ErrProtocolMismatch, hello.ProtocolID, protocolID)
	}

	// 2. 节点身份
	if err := WriteFrame(conn, local.Marshal()); err != nil {
		return remote, fmt.Errorf("%w: write identity: %v", ErrHandshakeFailed, err)
	}
	data, err = ReadFrame(conn)
	if err != nil {
		return remote, fmt.Errorf("%w: read identity: %v", ErrHandshakeFailed, err)
	}
	if err := remote.Unmarshal(data); err != nil {
		return remote, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if remote.ID.IsEmpty() || remote.ID == local.ID {
		return remote, fmt.Errorf("%w: %q", ErrInvalidIdentity, remote.ID)
	}

	return remote, nil
}
