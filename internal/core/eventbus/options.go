package eventbus

import pkgif "github.com/dep2p/go-cns/pkg/interfaces"

// ============================================================================
// 本地选项函数
// ============================================================================

// BufSize 设置订阅缓冲区大小
func BufSize(size int) pkgif.SubscriptionOpt {
	return pkgif.BufSize(size)
}

// Lossless 设置订阅为无损模式
func Lossless() pkgif.SubscriptionOpt {
	return pkgif.Lossless()
}

// Stateful 设置发射器为有状态模式
func Stateful() pkgif.EmitterOpt {
	return pkgif.Stateful()
}
