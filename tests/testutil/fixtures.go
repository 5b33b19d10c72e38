// Package testutil 提供测试辅助工具
package testutil

import (
	"net"
	"testing"
)

// 测试数据固件
//
// 提供测试中常用的常量值，确保测试一致性。

const (
	// LoopbackAddr 回环监听地址，端口由系统分配
	LoopbackAddr = "127.0.0.1:0"

	// EchoName 往返测试使用的通道名称
	EchoName = "svc.echo"
)

// UnusedAddr 返回一个当前无人监听的回环地址
func UnusedAddr(t testing.TB) string {
	t.Helper()

	ln, err := net.Listen("tcp", LoopbackAddr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
