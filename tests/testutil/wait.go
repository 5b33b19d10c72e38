package testutil

import (
	"context"
	"testing"
	"time"
)

// WaitForCondition 等待条件满足或超时
//
// 返回条件是否满足（超时返回 false）。
func WaitForCondition(t testing.TB, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 立即检查一次
	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// Eventually 在指定时间内重试条件检查，超时则 fail 测试
//
// 检查间隔 10ms。
//
// 示例:
//
//	testutil.Eventually(t, 2*time.Second, func() bool {
//	    return srv.Stats().Sessions == 1
//	}, "应该建立会话")
func Eventually(t testing.TB, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()

	if !WaitForCondition(t, timeout, 10*time.Millisecond, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// Never 在指定时间内条件始终不满足，否则 fail 测试
func Never(t testing.TB, window time.Duration, condition func() bool, msg string) {
	t.Helper()

	if WaitForCondition(t, window, 10*time.Millisecond, condition) {
		t.Fatalf("条件意外满足: %s", msg)
	}
}

// Recv 在超时内从通道接收一个值，超时则 fail 测试
func Recv[T any](t testing.TB, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("接收超时: %s", msg)
		var zero T
		return zero
	}
}

// TestContext 返回带超时的 context，测试结束时取消
func TestContext(t testing.TB, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
