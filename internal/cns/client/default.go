package client

import "sync"

// ============================================================================
//                              默认代理
// ============================================================================

// 进程级默认代理
//
// 由组装层在代理登录成功后设置，在关闭前清除；库代码应优先显式传递 *Proxy。
var (
	defaultMu    sync.RWMutex
	defaultProxy *Proxy
)

// SetDefault 设置默认代理，返回之前的值
func SetDefault(p *Proxy) *Proxy {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	prev := defaultProxy
	defaultProxy = p
	return prev
}

// Default 返回默认代理
func Default() (*Proxy, error) {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	if defaultProxy == nil {
		return nil, ErrNoDefault
	}
	return defaultProxy, nil
}

// ClearDefault 清除默认代理
//
// 只有当前默认代理是 p 时才清除，避免关闭旧代理时误清新代理。
func ClearDefault(p *Proxy) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultProxy == p {
		defaultProxy = nil
	}
}
